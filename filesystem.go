package vfs

import "time"

// A FileSystem is one backend bound to a drive. Names are drive relative,
// slash separated, without a leading slash; "" is the drive root. Every
// error returned carries an Errno.
type FileSystem interface {
	Kind() Kind
	// Mount binds native state. fixed is passed through so a backend can
	// choose between a forced and a lazy mount.
	Mount(fixed bool) error
	Unmount() error
	Format() error
	Open(name string, flag Flag) (Stream, error)
	OpenDir(name string) (Cursor, error)
	Stat(name string) (Info, error)
	Mkdir(name string) error
	Remove(name string) error
	Rename(from, to string) error
	// Touch pushes the timestamps and writable attributes of info onto name.
	Touch(name string, info *Info) error
	Label() (string, error)
	SetLabel(label string) error
	Usage() (Usage, error)
	// Busy probes the backend lock without taking it.
	Busy() bool
}

// Stream is an open backend file.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// Seek moves to an absolute position. A backend may clamp; the caller
	// verifies with Tell.
	Seek(pos int64) error
	Tell() int64
	Size() int64
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Cursor iterates one directory. Next returns ErrNotFound when exhausted.
// A backend may put its own item id in Info.Inode; it is folded into the
// synthetic inode.
type Cursor interface {
	Next() (Info, error)
	Close() error
}

// ModTimer is implemented by streams of backends that keep no native
// modification time and need it handed in.
type ModTimer interface {
	SetModTime(t time.Time)
}
