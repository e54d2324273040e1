package fat

import (
	"fmt"

	"github.com/rstms/vfs"
)

// Result is the native status code of a FAT volume operation.
type Result int

const (
	OK Result = iota
	DiskErr
	IntErr
	NotReady
	NoFile
	NoPath
	InvalidName
	Denied
	Exist
	InvalidObject
	WriteProtected
	InvalidDrive
	NotEnabled
	NoFilesystem
	MkfsAborted
	Timeout
	Locked
	NotEnoughCore
	TooManyOpenFiles
	InvalidParameter
)

var resultNames = [...]string{
	"ok", "disk error", "internal error", "not ready", "no file", "no path",
	"invalid name", "denied", "exists", "invalid object", "write protected",
	"invalid drive", "not enabled", "no filesystem", "mkfs aborted", "timeout",
	"locked", "not enough core", "too many open files", "invalid parameter",
}

func (r Result) Error() string {
	if r >= 0 && int(r) < len(resultNames) {
		return "fat: " + resultNames[r]
	}
	return fmt.Sprintf("fat: result %d", int(r))
}

var errnoTable = map[Result]vfs.Errno{
	DiskErr:          vfs.ErrIO,
	IntErr:           vfs.ErrInternal,
	NotReady:         vfs.ErrBusy,
	NoFile:           vfs.ErrNotFound,
	NoPath:           vfs.ErrNotDir,
	InvalidName:      vfs.ErrInvalid,
	Denied:           vfs.ErrNoSpace,
	Exist:            vfs.ErrExists,
	InvalidObject:    vfs.ErrBadHandle,
	WriteProtected:   vfs.ErrReadOnly,
	InvalidDrive:     vfs.ErrNoDevice,
	NotEnabled:       vfs.ErrNoDevice,
	NoFilesystem:     vfs.ErrNoFilesystem,
	MkfsAborted:      vfs.ErrInvalid,
	Timeout:          vfs.ErrTimeout,
	Locked:           vfs.ErrLocked,
	NotEnoughCore:    vfs.ErrNoMemory,
	TooManyOpenFiles: vfs.ErrTooManyFiles,
	InvalidParameter: vfs.ErrInvalid,
}

// Errno translates the result. Codes outside the table are I/O errors.
func (r Result) Errno() vfs.Errno {
	if r == OK {
		return 0
	}
	if e, ok := errnoTable[r]; ok {
		return e
	}
	return vfs.ErrIO
}

// errno converts a native error into the portable code.
func errno(err error) error {
	if err == nil {
		return nil
	}
	if r, ok := err.(Result); ok {
		if r == OK {
			return nil
		}
		return r.Errno()
	}
	return vfs.ErrIO
}
