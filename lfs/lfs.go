// Package lfs is the log-structured backend: a littlefs style native API
// kept on media, with custom attributes, and its vfs adapter.
package lfs

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/rstms/vfs/media"
)

const kind = "lfs"

// Error is a native littlefs code; values are negative errno numbers.
type Error int

const (
	ErrOK          Error = 0
	ErrIO          Error = -5
	ErrCorrupt     Error = -84
	ErrNoEnt       Error = -2
	ErrExist       Error = -17
	ErrNotDir      Error = -20
	ErrIsDir       Error = -21
	ErrNotEmpty    Error = -39
	ErrBadF        Error = -9
	ErrFBig        Error = -27
	ErrInval       Error = -22
	ErrNoSpc       Error = -28
	ErrNoMem       Error = -12
	ErrNoAttr      Error = -61
	ErrNameTooLong Error = -36
)

func (e Error) Error() string {
	return fmt.Sprintf("lfs: error %d", int(e))
}

// OpenFlag is the native open mode.
type OpenFlag int

const (
	RdOnly OpenFlag = 1
	WrOnly OpenFlag = 2
	RdWr   OpenFlag = 3
	Creat  OpenFlag = 0x0100
	Excl   OpenFlag = 0x0200
	Trunc  OpenFlag = 0x0400
	Append OpenFlag = 0x0800
)

type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

type Type uint8

const (
	TypeReg Type = 1
	TypeDir Type = 2
)

// Info is a directory record.
type Info struct {
	Type Type
	Size uint32
	Name string
}

// Attr is a custom attribute attached to an open file. Buffer is filled
// on open and written back when the file is synced.
type Attr struct {
	Type   uint8
	Buffer []byte
	Size   int
}

// Config is the block device geometry and the name and attribute limits.
type Config struct {
	BlockSize  uint32
	BlockCount uint32
	NameMax    int
	AttrMax    int
	FileMax    int64
}

func (c Config) withDefaults() Config {
	if c.NameMax == 0 {
		c.NameMax = 255
	}
	if c.AttrMax == 0 {
		c.AttrMax = 1022
	}
	if c.FileMax == 0 {
		c.FileMax = 0x7FFFFFFF
	}
	return c
}

// FS is the work area of one littlefs instance.
type FS struct {
	m       *media.Media
	cfg     Config
	mounted bool
	open    map[string]int
}

func NewFS(m *media.Media, cfg Config) *FS {
	geom := m.Geometry()
	if cfg.BlockSize == 0 {
		cfg.BlockSize = geom.BlockSize
	}
	if cfg.BlockCount == 0 {
		cfg.BlockCount = geom.Blocks
	}
	return &FS{m: m, cfg: cfg.withDefaults(), open: map[string]int{}}
}

func (fs *FS) Config() Config {
	return fs.cfg
}

func (fs *FS) Format() error {
	fs.m.Lock()
	defer fs.m.Unlock()
	if err := fs.m.Format(kind); err != nil {
		return ErrIO
	}
	if !fs.mounted {
		fs.m.Release()
	}
	return nil
}

func (fs *FS) Mount() error {
	fs.m.Lock()
	defer fs.m.Unlock()
	if err := fs.m.Load(kind); err != nil {
		return ErrCorrupt
	}
	fs.mounted = true
	return nil
}

func (fs *FS) Unmount() error {
	fs.m.Lock()
	defer fs.m.Unlock()
	fs.mounted = false
	fs.m.Release()
	return nil
}

func (fs *FS) stored(p string) (string, error) {
	if !fs.mounted {
		return "", ErrInval
	}
	for _, part := range strings.Split(p, "/") {
		if len(part) > fs.cfg.NameMax {
			return "", ErrNameTooLong
		}
	}
	return fs.m.Resolve(p, false), nil
}

func (fs *FS) parentDir(stored string) error {
	fi, err := fs.m.Stat(path.Dir(stored))
	if err != nil {
		return ErrNoEnt
	}
	if !fi.IsDir() {
		return ErrNotDir
	}
	return nil
}

func (fs *FS) Stat(p string) (Info, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	stored, err := fs.stored(p)
	if err != nil {
		return Info{}, err
	}
	fi, err := fs.m.Stat(stored)
	if err != nil {
		return Info{}, ErrNoEnt
	}
	return info(stored, fi), nil
}

func info(stored string, fi os.FileInfo) Info {
	out := Info{Type: TypeReg, Name: path.Base(stored)}
	if stored == "/" {
		out.Name = "/"
	}
	if fi.IsDir() {
		out.Type = TypeDir
	} else {
		out.Size = uint32(fi.Size())
	}
	return out
}

// GetAttr copies attribute typ of p into buf and returns its full size.
func (fs *FS) GetAttr(p string, typ uint8, buf []byte) (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	stored, err := fs.stored(p)
	if err != nil {
		return 0, err
	}
	if _, err := fs.m.Stat(stored); err != nil {
		return 0, ErrNoEnt
	}
	data, ok := fs.m.Attr(stored, typ)
	if !ok {
		return 0, ErrNoAttr
	}
	copy(buf, data)
	return len(data), nil
}

func (fs *FS) SetAttr(p string, typ uint8, data []byte) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	if len(data) > fs.cfg.AttrMax {
		return ErrNoSpc
	}
	stored, err := fs.stored(p)
	if err != nil {
		return err
	}
	if _, err := fs.m.Stat(stored); err != nil {
		return ErrNoEnt
	}
	if err := fs.m.SetAttr(stored, typ, data); err != nil {
		return ErrIO
	}
	return nil
}

func (fs *FS) RemoveAttr(p string, typ uint8) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	stored, err := fs.stored(p)
	if err != nil {
		return err
	}
	if err := fs.m.RemoveAttr(stored, typ); err != nil {
		return ErrIO
	}
	return nil
}

func (fs *FS) Mkdir(p string) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	stored, err := fs.stored(p)
	if err != nil {
		return err
	}
	if stored == "/" {
		return ErrExist
	}
	if _, err := fs.m.Stat(stored); err == nil {
		return ErrExist
	}
	if err := fs.parentDir(stored); err != nil {
		return err
	}
	if ok, _ := fs.m.Fits(0, 1); !ok {
		return ErrNoSpc
	}
	if err := fs.m.Fs().Mkdir(stored, 0700); err != nil {
		return ErrIO
	}
	return nil
}

func (fs *FS) Remove(p string) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	stored, err := fs.stored(p)
	if err != nil {
		return err
	}
	if stored == "/" {
		return ErrInval
	}
	fi, err := fs.m.Stat(stored)
	if err != nil {
		return ErrNoEnt
	}
	if fi.IsDir() {
		entries, err := fs.m.List(stored)
		if err != nil {
			return ErrIO
		}
		if len(entries) > 0 {
			return ErrNotEmpty
		}
	}
	if err := fs.m.Fs().Remove(stored); err != nil {
		return ErrIO
	}
	if err := fs.m.Forget(stored); err != nil {
		return ErrIO
	}
	return nil
}

// Rename replaces an existing target of the same type; a directory target
// must be empty.
func (fs *FS) Rename(from, to string) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	src, err := fs.stored(from)
	if err != nil {
		return err
	}
	dst, err := fs.stored(to)
	if err != nil {
		return err
	}
	sfi, err := fs.m.Stat(src)
	if err != nil {
		return ErrNoEnt
	}
	if src == dst {
		return nil
	}
	if err := fs.parentDir(dst); err != nil {
		return err
	}
	if dfi, err := fs.m.Stat(dst); err == nil {
		switch {
		case sfi.IsDir() && !dfi.IsDir():
			return ErrNotDir
		case !sfi.IsDir() && dfi.IsDir():
			return ErrIsDir
		case dfi.IsDir():
			if entries, _ := fs.m.List(dst); len(entries) > 0 {
				return ErrNotEmpty
			}
		}
		if err := fs.m.Fs().RemoveAll(dst); err != nil {
			return ErrIO
		}
		fs.m.Forget(dst)
	}
	if err := fs.m.Fs().Rename(src, dst); err != nil {
		return ErrIO
	}
	if err := fs.m.Move(src, dst); err != nil {
		return ErrIO
	}
	return nil
}

// Size returns the number of blocks in use.
func (fs *FS) Size() (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	if !fs.mounted {
		return 0, ErrInval
	}
	used, err := fs.m.Used()
	if err != nil {
		return 0, ErrIO
	}
	return int(used), nil
}

// Busy reports whether an operation holds the instance.
func (fs *FS) Busy() bool {
	return fs.m.Locked()
}

// Dir is an open directory. Like littlefs it yields "." and ".." first.
type Dir struct {
	fs      *FS
	entries []os.FileInfo
	pos     int
}

func (fs *FS) DirOpen(p string) (*Dir, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	stored, err := fs.stored(p)
	if err != nil {
		return nil, err
	}
	fi, err := fs.m.Stat(stored)
	if err != nil {
		return nil, ErrNoEnt
	}
	if !fi.IsDir() {
		return nil, ErrNotDir
	}
	entries, err := fs.m.List(stored)
	if err != nil {
		return nil, ErrIO
	}
	return &Dir{fs: fs, entries: entries, pos: -2}, nil
}

// Read fills info and reports false once the directory is exhausted.
func (d *Dir) Read(out *Info) (bool, error) {
	if d.fs == nil {
		return false, ErrBadF
	}
	switch {
	case d.pos == -2:
		*out = Info{Type: TypeDir, Name: "."}
	case d.pos == -1:
		*out = Info{Type: TypeDir, Name: ".."}
	case d.pos < len(d.entries):
		e := d.entries[d.pos]
		*out = info("/"+e.Name(), e)
	default:
		return false, nil
	}
	d.pos++
	return true, nil
}

func (d *Dir) Rewind() {
	d.pos = -2
}

func (d *Dir) Close() error {
	if d.fs == nil {
		return ErrBadF
	}
	d.fs = nil
	return nil
}

// File is an open littlefs file.
type File struct {
	fs     *FS
	f      afero.File
	stored string
	flags  OpenFlag
	pos    int64
	size   int64
	attrs  []*Attr
	dirty  bool
}

// OpenFile opens p. attrs are read now and written back on sync when the
// file is writable.
func (fs *FS) OpenFile(p string, flags OpenFlag, attrs ...*Attr) (*File, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	stored, err := fs.stored(p)
	if err != nil {
		return nil, err
	}
	if stored == "/" {
		return nil, ErrIsDir
	}
	osflags := os.O_RDWR
	fi, err := fs.m.Stat(stored)
	switch {
	case err != nil:
		if flags&Creat == 0 {
			return nil, ErrNoEnt
		}
		if err := fs.parentDir(stored); err != nil {
			return nil, err
		}
		osflags |= os.O_CREATE
	case fi.IsDir():
		return nil, ErrIsDir
	case flags&Excl != 0 && flags&Creat != 0:
		return nil, ErrExist
	}
	if flags&Trunc != 0 && flags&WrOnly != 0 {
		osflags |= os.O_TRUNC
	}
	f, err := fs.m.Fs().OpenFile(stored, osflags, 0600)
	if err != nil {
		return nil, ErrIO
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ErrIO
	}
	for _, a := range attrs {
		a.Size = 0
		if data, ok := fs.m.Attr(stored, a.Type); ok {
			a.Size = copy(a.Buffer, data)
		}
	}
	fs.open[stored]++
	return &File{
		fs:     fs,
		f:      f,
		stored: stored,
		flags:  flags,
		size:   st.Size(),
		attrs:  attrs,
		dirty:  osflags&(os.O_CREATE|os.O_TRUNC) != 0,
	}, nil
}

func (f *File) Read(p []byte) (int, error) {
	if f.fs == nil {
		return 0, ErrBadF
	}
	if f.flags&RdOnly == 0 {
		return 0, ErrBadF
	}
	if f.pos >= f.size {
		return 0, nil
	}
	if rem := f.size - f.pos; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := f.f.ReadAt(p, f.pos)
	if err != nil && err != io.EOF {
		return n, ErrIO
	}
	f.pos += int64(n)
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	if f.fs == nil {
		return 0, ErrBadF
	}
	if f.flags&WrOnly == 0 {
		return 0, ErrBadF
	}
	f.fs.m.Lock()
	defer f.fs.m.Unlock()
	if f.flags&Append != 0 {
		f.pos = f.size
	}
	end := f.pos + int64(len(p))
	if end > f.fs.cfg.FileMax {
		return 0, ErrFBig
	}
	if ok, _ := f.fs.m.Fits(f.size, end); !ok {
		return 0, ErrNoSpc
	}
	n, err := f.f.WriteAt(p, f.pos)
	f.pos += int64(n)
	if f.pos > f.size {
		f.size = f.pos
	}
	f.dirty = f.dirty || n > 0
	if err != nil {
		return n, ErrIO
	}
	return n, nil
}

// Seek positions the file; past the end is allowed and reads nothing.
func (f *File) Seek(off int64, whence Whence) (int64, error) {
	if f.fs == nil {
		return 0, ErrBadF
	}
	var pos int64
	switch whence {
	case SeekSet:
		pos = off
	case SeekCur:
		pos = f.pos + off
	case SeekEnd:
		pos = f.size + off
	default:
		return 0, ErrInval
	}
	if pos < 0 || pos > f.fs.cfg.FileMax {
		return 0, ErrInval
	}
	f.pos = pos
	return pos, nil
}

func (f *File) Tell() int64 {
	return f.pos
}

func (f *File) Size() int64 {
	return f.size
}

func (f *File) Truncate(size int64) error {
	if f.fs == nil {
		return ErrBadF
	}
	if f.flags&WrOnly == 0 {
		return ErrBadF
	}
	f.fs.m.Lock()
	defer f.fs.m.Unlock()
	if size > f.fs.cfg.FileMax {
		return ErrFBig
	}
	if ok, _ := f.fs.m.Fits(f.size, size); !ok {
		return ErrNoSpc
	}
	if err := f.f.Truncate(size); err != nil {
		return ErrIO
	}
	f.size = size
	f.dirty = true
	return nil
}

// Sync flushes data and writes the attached attributes of a writable
// file.
func (f *File) Sync() error {
	if f.fs == nil {
		return ErrBadF
	}
	if f.flags&WrOnly == 0 {
		return nil
	}
	f.fs.m.Lock()
	defer f.fs.m.Unlock()
	if f.dirty {
		if err := f.f.Sync(); err != nil {
			return ErrIO
		}
	}
	for _, a := range f.attrs {
		if a.Size > len(a.Buffer) {
			a.Size = len(a.Buffer)
		}
		if err := f.fs.m.SetAttr(f.stored, a.Type, a.Buffer[:a.Size]); err != nil {
			return ErrIO
		}
	}
	f.dirty = false
	return nil
}

func (f *File) Close() error {
	if f.fs == nil {
		return ErrBadF
	}
	err := f.Sync()
	if cerr := f.f.Close(); cerr != nil && err == nil {
		err = ErrIO
	}
	f.fs.m.Lock()
	if f.fs.open[f.stored]--; f.fs.open[f.stored] <= 0 {
		delete(f.fs.open, f.stored)
	}
	f.fs.m.Unlock()
	f.fs = nil
	return err
}
