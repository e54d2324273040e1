package lfs

import (
	"encoding/binary"
	"path"
	"time"

	"github.com/rstms/vfs"
	"github.com/rstms/vfs/media"
)

// custom attribute types
const (
	AttrLabel  uint8 = 0x70
	AttrCreate uint8 = 0x74
	AttrModify uint8 = 0x75
)

const labelMax = 64

// FileSystem adapts a littlefs instance to vfs.FileSystem. Timestamps live
// in the create and modify attributes as little endian unix seconds.
type FileSystem struct {
	media *media.Media
	cfg   Config
	fs    *FS
	owned bool
	Now   func() time.Time
}

var _ vfs.FileSystem = (*FileSystem)(nil)

func New(m *media.Media, cfg Config) *FileSystem {
	return &FileSystem{media: m, cfg: cfg, Now: time.Now}
}

// NewWithFS wraps a caller owned instance that survives unmount.
func NewWithFS(fs *FS) *FileSystem {
	return &FileSystem{media: fs.m, cfg: fs.cfg, fs: fs, Now: time.Now}
}

func errno(err error) error {
	if err == nil {
		return nil
	}
	e, ok := err.(Error)
	if !ok {
		return vfs.ErrIO
	}
	switch e {
	case ErrOK:
		return nil
	case ErrNoAttr:
		return vfs.ErrNotFound
	case ErrCorrupt:
		return vfs.ErrIO
	}
	return vfs.Errno(e)
}

func stamp(t time.Time) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(t.Unix()))
}

func unstamp(b []byte) time.Time {
	if len(b) < 8 {
		return time.Time{}
	}
	s := int64(binary.LittleEndian.Uint64(b))
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}

func (f *FileSystem) Kind() vfs.Kind {
	return vfs.KindLog
}

func (f *FileSystem) instance() (*FS, error) {
	if f.fs == nil {
		return nil, vfs.ErrNoDevice
	}
	return f.fs, nil
}

// Instance is the current work area, nil while not allocated.
func (f *FileSystem) Instance() *FS {
	return f.fs
}

// Mount reports any failure as ErrNoFilesystem.
func (f *FileSystem) Mount(fixed bool) error {
	if f.fs == nil {
		f.fs = NewFS(f.media, f.cfg)
		f.owned = true
	}
	if err := f.fs.Mount(); err != nil {
		if f.owned {
			f.fs = nil
			f.owned = false
		}
		return vfs.ErrNoFilesystem
	}
	return nil
}

func (f *FileSystem) Unmount() error {
	if f.fs == nil {
		return vfs.ErrNotFound
	}
	err := f.fs.Unmount()
	if f.owned {
		f.fs = nil
		f.owned = false
	}
	return errno(err)
}

// Format lays down an empty filesystem and stamps the root creation time.
func (f *FileSystem) Format() error {
	fs := f.fs
	if fs == nil {
		fs = NewFS(f.media, f.cfg)
	}
	if err := fs.Format(); err != nil {
		return errno(err)
	}
	if !fs.mounted {
		if err := fs.Mount(); err != nil {
			return errno(err)
		}
		defer fs.Unmount()
	}
	return errno(fs.SetAttr("", AttrCreate, stamp(f.Now())))
}

func openFlags(flag vfs.Flag) OpenFlag {
	var out OpenFlag
	if flag.Has(vfs.Read) {
		out |= RdOnly
	}
	if flag.Has(vfs.Write) {
		out |= WrOnly
	}
	if flag.Has(vfs.Create) {
		out |= Creat
	}
	if flag.Has(vfs.Exclusive) {
		out |= Excl
	}
	if flag.Has(vfs.Truncate) {
		out |= Trunc
	}
	return out
}

func (f *FileSystem) Open(name string, flag vfs.Flag) (vfs.Stream, error) {
	fs, err := f.instance()
	if err != nil {
		return nil, err
	}
	created := &Attr{Type: AttrCreate, Buffer: make([]byte, 8)}
	modified := &Attr{Type: AttrModify, Buffer: make([]byte, 8)}
	file, err := fs.OpenFile(name, openFlags(flag), created, modified)
	if err != nil {
		return nil, errno(err)
	}
	if created.Size == 0 {
		now := stamp(f.Now())
		fs.SetAttr(name, AttrCreate, now)
		fs.SetAttr(name, AttrModify, now)
		copy(created.Buffer, now)
		created.Size = len(now)
		copy(modified.Buffer, now)
		modified.Size = len(now)
	}
	return &stream{file: file, modified: modified}, nil
}

func (f *FileSystem) OpenDir(name string) (vfs.Cursor, error) {
	fs, err := f.instance()
	if err != nil {
		return nil, err
	}
	dir, err := fs.DirOpen(name)
	if err != nil {
		return nil, errno(err)
	}
	return &cursor{f: f, fs: fs, dir: dir, name: name}, nil
}

func (f *FileSystem) times(fs *FS, name string) (created, modified time.Time) {
	buf := make([]byte, 8)
	if n, err := fs.GetAttr(name, AttrCreate, buf); err == nil && n == 8 {
		created = unstamp(buf)
	}
	if n, err := fs.GetAttr(name, AttrModify, buf); err == nil && n == 8 {
		modified = unstamp(buf)
	}
	return created, modified
}

func (f *FileSystem) translate(fs *FS, name string, li Info) vfs.Info {
	info := vfs.Info{
		Name:      li.Name,
		Size:      uint64(li.Size),
		Attr:      vfs.AttrRead | vfs.AttrWrite | vfs.AttrExec,
		BlockSize: fs.cfg.BlockSize,
		Blocks:    vfs.Blocks(uint64(li.Size), fs.cfg.BlockSize),
	}
	if li.Type == TypeDir {
		info.Attr |= vfs.AttrDir
	} else {
		info.Attr |= vfs.AttrRegular
	}
	info.Created, info.Modified = f.times(fs, name)
	return info
}

func (f *FileSystem) Stat(name string) (vfs.Info, error) {
	fs, err := f.instance()
	if err != nil {
		return vfs.Info{}, err
	}
	li, err := fs.Stat(name)
	if err != nil {
		return vfs.Info{}, errno(err)
	}
	return f.translate(fs, name, li), nil
}

func (f *FileSystem) Mkdir(name string) error {
	fs, err := f.instance()
	if err != nil {
		return err
	}
	if err := fs.Mkdir(name); err != nil {
		return errno(err)
	}
	return errno(fs.SetAttr(name, AttrCreate, stamp(f.Now())))
}

func (f *FileSystem) Remove(name string) error {
	fs, err := f.instance()
	if err != nil {
		return err
	}
	return errno(fs.Remove(name))
}

func (f *FileSystem) Rename(from, to string) error {
	fs, err := f.instance()
	if err != nil {
		return err
	}
	return errno(fs.Rename(from, to))
}

// Touch writes the non-zero timestamps of info.
func (f *FileSystem) Touch(name string, info *vfs.Info) error {
	fs, err := f.instance()
	if err != nil {
		return err
	}
	if _, err := fs.Stat(name); err != nil {
		return errno(err)
	}
	if !info.Created.IsZero() {
		if err := fs.SetAttr(name, AttrCreate, stamp(info.Created)); err != nil {
			return errno(err)
		}
	}
	if !info.Modified.IsZero() {
		if err := fs.SetAttr(name, AttrModify, stamp(info.Modified)); err != nil {
			return errno(err)
		}
	}
	return nil
}

func (f *FileSystem) Label() (string, error) {
	fs, err := f.instance()
	if err != nil {
		return "", err
	}
	buf := make([]byte, labelMax)
	n, err := fs.GetAttr("", AttrLabel, buf)
	if err == ErrNoAttr {
		return "", nil
	}
	if err != nil {
		return "", errno(err)
	}
	if n > len(buf) {
		n = len(buf)
	}
	return string(buf[:n]), nil
}

func (f *FileSystem) SetLabel(label string) error {
	fs, err := f.instance()
	if err != nil {
		return err
	}
	if len(label) > labelMax {
		return vfs.ErrNameTooLong
	}
	return errno(fs.SetAttr("", AttrLabel, []byte(label)))
}

func (f *FileSystem) Usage() (vfs.Usage, error) {
	fs, err := f.instance()
	if err != nil {
		return vfs.Usage{}, err
	}
	used, err := fs.Size()
	if err != nil {
		return vfs.Usage{}, errno(err)
	}
	u := vfs.Usage{
		Blocks:    fs.cfg.BlockCount,
		BlockSize: fs.cfg.BlockSize,
	}
	if uint32(used) < u.Blocks {
		u.Free = u.Blocks - uint32(used)
	}
	u.Created, _ = f.times(fs, "")
	return u, nil
}

func (f *FileSystem) Busy() bool {
	return f.media.Locked()
}

type stream struct {
	file     *File
	modified *Attr
}

var _ vfs.ModTimer = (*stream)(nil)

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.file.Read(p)
	return n, errno(err)
}

func (s *stream) Write(p []byte) (int, error) {
	n, err := s.file.Write(p)
	return n, errno(err)
}

func (s *stream) Seek(pos int64) error {
	_, err := s.file.Seek(pos, SeekSet)
	return errno(err)
}

func (s *stream) Tell() int64 {
	return s.file.Tell()
}

func (s *stream) Size() int64 {
	return s.file.Size()
}

func (s *stream) Sync() error {
	return errno(s.file.Sync())
}

func (s *stream) Truncate(size int64) error {
	return errno(s.file.Truncate(size))
}

func (s *stream) Close() error {
	return errno(s.file.Close())
}

// SetModTime stages the modify attribute; it is written on sync or close.
func (s *stream) SetModTime(t time.Time) {
	copy(s.modified.Buffer, stamp(t))
	s.modified.Size = 8
}

type cursor struct {
	f    *FileSystem
	fs   *FS
	dir  *Dir
	name string
}

func (c *cursor) Next() (vfs.Info, error) {
	var li Info
	for {
		ok, err := c.dir.Read(&li)
		if err != nil {
			return vfs.Info{}, errno(err)
		}
		if !ok {
			return vfs.Info{}, vfs.ErrNotFound
		}
		if li.Name == "." || li.Name == ".." {
			continue
		}
		return c.f.translate(c.fs, path.Join(c.name, li.Name), li), nil
	}
}

func (c *cursor) Close() error {
	return errno(c.dir.Close())
}
