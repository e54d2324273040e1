package vfs

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// File is an open file on a mounted drive. It is invalid once closed.
type File struct {
	v       *VFS
	drive   *Drive
	stream  Stream
	path    string
	flag    Flag
	mtime   time.Time
	created bool
	written bool
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
	_ io.StringWriter    = (*File)(nil)
)

// Open opens path with the portable flags. A drive root cannot be opened
// as a file. On failure no handle is returned and nothing is held.
func (v *VFS) Open(path string, flag Flag) (*File, error) {
	d, _, name, rooted, err := v.resolve(path, false)
	if err != nil {
		return nil, err
	}
	if name == "" || !rooted {
		return nil, ErrBadHandle
	}
	if flag&ReadWrite == 0 {
		flag |= Read
	}
	f := &File{
		v:    v,
		path: path,
		flag: flag,
	}
	if v.objects != nil && flag.Has(Create) {
		if _, err := d.FS.Stat(name); IsNotFound(err) {
			f.created = true
		}
	}
	stream, err := d.FS.Open(name, flag)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	f.stream = stream
	f.drive = d
	if flag.Has(Append) {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			stream.Close()
			f.drive = nil
			return nil, err
		}
	}
	return f, nil
}

func (f *File) valid() error {
	if f == nil || f.drive == nil {
		return ErrBadHandle
	}
	return nil
}

// Path is the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Close releases the backend file. The handle is detached whatever the
// backend reports.
func (f *File) Close() error {
	if err := f.valid(); err != nil {
		return err
	}
	err := f.stream.Close()
	f.drive = nil
	f.stream = nil
	switch {
	case f.created:
		f.v.object(ObjectAdded, f.path)
	case f.written:
		f.v.object(ObjectChanged, f.path)
	}
	return err
}

// Read returns io.EOF once nothing is left.
func (f *File) Read(p []byte) (int, error) {
	if err := f.valid(); err != nil {
		return 0, err
	}
	n, err := f.stream.Read(p)
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	if err := f.valid(); err != nil {
		return 0, err
	}
	n, err := f.stream.Write(p)
	if n > 0 {
		f.written = true
		if timer, ok := f.stream.(ModTimer); ok {
			f.mtime = f.v.now()
			timer.SetModTime(f.mtime)
		}
	}
	return n, err
}

func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// ReadLine reads up to and including the next newline, which is stripped.
// It returns io.EOF when nothing was read.
func (f *File) ReadLine() (string, error) {
	if err := f.valid(); err != nil {
		return "", err
	}
	var line []byte
	var c [1]byte
	for {
		n, err := f.Read(c[:])
		if n == 0 || err != nil {
			if err == io.EOF && len(line) > 0 {
				return string(line), nil
			}
			return string(line), err
		}
		if c[0] == '\n' {
			break
		}
		line = append(line, c[0])
	}
	if l := len(line); l > 0 && line[l-1] == '\r' {
		line = line[:l-1]
	}
	return string(line), nil
}

// Seek moves to offset relative to whence. A backend that clamps the
// target instead of reaching it yields ErrNoSpace.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.valid(); err != nil {
		return 0, err
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.stream.Tell() + offset
	case io.SeekEnd:
		target = f.stream.Size() + offset
	default:
		return 0, ErrInvalid
	}
	if target < 0 {
		return 0, ErrInvalid
	}
	if err := f.stream.Seek(target); err != nil {
		return 0, err
	}
	if f.stream.Tell() != target {
		return f.stream.Tell(), ErrNoSpace
	}
	return target, nil
}

func (f *File) Rewind() error {
	_, err := f.Seek(0, io.SeekStart)
	return err
}

func (f *File) Sync() error {
	if err := f.valid(); err != nil {
		return err
	}
	return f.stream.Sync()
}

// Truncate cuts or extends the file to size bytes.
func (f *File) Truncate(size int64) error {
	if err := f.valid(); err != nil {
		return err
	}
	if size < 0 {
		return ErrInvalid
	}
	err := f.stream.Truncate(size)
	if err == nil {
		f.written = true
		if timer, ok := f.stream.(ModTimer); ok {
			f.mtime = f.v.now()
			timer.SetModTime(f.mtime)
		}
	}
	return err
}

func (f *File) Tell() (int64, error) {
	if err := f.valid(); err != nil {
		return 0, err
	}
	return f.stream.Tell(), nil
}

func (f *File) Size() (int64, error) {
	if err := f.valid(); err != nil {
		return 0, err
	}
	return f.stream.Size(), nil
}

// EOF reports whether the position is at or past the end. A closed
// handle is at EOF.
func (f *File) EOF() bool {
	if f.valid() != nil {
		return true
	}
	return f.stream.Tell() >= f.stream.Size()
}
