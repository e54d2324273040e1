package vfs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errno is a negative POSIX style error code. Every backend adapter
// translates its native codes into one of these.
type Errno int

const (
	ErrNotFound     Errno = -2
	ErrIO           Errno = -5
	ErrNoFilesystem Errno = -6
	ErrBadHandle    Errno = -9
	ErrNoMemory     Errno = -12
	ErrBusy         Errno = -16
	ErrExists       Errno = -17
	ErrNoDevice     Errno = -19
	ErrNotDir       Errno = -20
	ErrIsDir        Errno = -21
	ErrInvalid      Errno = -22
	ErrTooManyFiles Errno = -24
	ErrTooLarge     Errno = -27
	ErrNoSpace      Errno = -28
	ErrReadOnly     Errno = -30
	ErrNameTooLong  Errno = -36
	ErrLocked       Errno = -37
	ErrNotEmpty     Errno = -39
	ErrInternal     Errno = -88
	ErrTimeout      Errno = -110
)

var errnoText = map[Errno]string{
	ErrNotFound:     "no such file or directory",
	ErrIO:           "input/output error",
	ErrNoFilesystem: "no filesystem",
	ErrBadHandle:    "bad file handle",
	ErrNoMemory:     "out of memory",
	ErrBusy:         "device busy",
	ErrExists:       "file exists",
	ErrNoDevice:     "no such device",
	ErrNotDir:       "not a directory",
	ErrIsDir:        "is a directory",
	ErrInvalid:      "invalid argument",
	ErrTooManyFiles: "too many open files",
	ErrTooLarge:     "file too large",
	ErrNoSpace:      "no space left on device",
	ErrReadOnly:     "read-only filesystem",
	ErrNameTooLong:  "file name too long",
	ErrLocked:       "no locks available",
	ErrNotEmpty:     "directory not empty",
	ErrInternal:     "internal filesystem error",
	ErrTimeout:      "timed out",
}

func (e Errno) Error() string {
	if s, ok := errnoText[e]; ok {
		return s
	}
	return fmt.Sprintf("errno %d", int(e))
}

// Code extracts the Errno carried by err. Nil maps to 0 and errors that
// carry no code collapse to ErrIO.
func Code(err error) Errno {
	if err == nil {
		return 0
	}
	var e Errno
	if errors.As(err, &e) {
		return e
	}
	return ErrIO
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	return Code(err) == ErrNotFound
}
