package flat

import (
	"strings"
	"time"

	"github.com/rstms/vfs"
	"github.com/rstms/vfs/media"
)

var errnoTable = map[Code]vfs.Errno{
	ErrUnformatted: vfs.ErrNoFilesystem,
	ErrNameLength:  vfs.ErrInvalid,
	ErrFormatParam: vfs.ErrInvalid,
	ErrIndexFull:   vfs.ErrNoSpace,
	ErrFlashFull:   vfs.ErrNoSpace,
	ErrNoFile:      vfs.ErrNotFound,
	ErrClosedFile:  vfs.ErrReadOnly,
	ErrNotWritable: vfs.ErrReadOnly,
	ErrDescriptor:  vfs.ErrBadHandle,
	-142:           vfs.ErrBadHandle,
	ErrIndexDefect: vfs.ErrBadHandle,
	ErrLowVoltage:  vfs.ErrBusy,
	ErrPowerFail:   vfs.ErrBusy,
}

func errno(err error) error {
	if err == nil {
		return nil
	}
	c, ok := err.(Code)
	if !ok {
		return vfs.ErrIO
	}
	if c >= 0 {
		return nil
	}
	if e, ok := errnoTable[c]; ok {
		return e
	}
	return vfs.ErrIO
}

// Shorten fits name into NameLen by replacing the tail of the base with
// "~1", keeping the extension.
func Shorten(name string) string {
	if len(name) <= NameLen {
		return name
	}
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 && len(name)-i <= NameLen-3 {
		ext = name[i:]
	}
	return name[:NameLen-2-len(ext)] + "~1" + ext
}

// FileSystem adapts a flash index to vfs.FileSystem. The flash has no
// directories below the root, no mtime and a label fixed by configuration.
type FileSystem struct {
	media *media.Media
	fs    *FS
	owned bool
	name  string
	Now   func() time.Time
}

var _ vfs.FileSystem = (*FileSystem)(nil)

func New(m *media.Media, label string) *FileSystem {
	return &FileSystem{media: m, name: label, Now: time.Now}
}

// NewWithFS wraps a caller owned instance that survives unmount.
func NewWithFS(fs *FS, label string) *FileSystem {
	return &FileSystem{media: fs.m, fs: fs, name: label, Now: time.Now}
}

// Instance is the current flash instance, nil while not allocated.
func (f *FileSystem) Instance() *FS {
	return f.fs
}

func (f *FileSystem) Kind() vfs.Kind {
	return vfs.KindFlat
}

func (f *FileSystem) instance() (*FS, error) {
	if f.fs == nil {
		return nil, vfs.ErrNoDevice
	}
	return f.fs, nil
}

func (f *FileSystem) Mount(fixed bool) error {
	if f.fs == nil {
		f.fs = NewFS(f.media)
		f.fs.Now = f.Now
		f.owned = true
	}
	if err := f.fs.Start(); err != nil {
		if f.owned {
			f.fs = nil
			f.owned = false
		}
		return errno(err)
	}
	return nil
}

func (f *FileSystem) Unmount() error {
	if f.fs == nil {
		return vfs.ErrNotFound
	}
	f.fs.Stop()
	if f.owned {
		f.fs = nil
		f.owned = false
	}
	return nil
}

func (f *FileSystem) Format() error {
	fs := f.fs
	if fs == nil {
		fs = NewFS(f.media)
	}
	return errno(fs.Format(FormatSoft))
}

// native name of a drive relative path
func native(name string) (string, error) {
	if strings.Contains(name, "/") {
		return "", vfs.ErrNotFound
	}
	return Shorten(name), nil
}

// length reports the stored size of name and whether it exists.
func (f *FileSystem) length(fs *FS, name string) (uint32, bool) {
	d, err := fs.Open(name, OpenRaw)
	if err != nil {
		return 0, false
	}
	d.Close()
	return d.FileLen, true
}

func (f *FileSystem) exists(fs *FS, name string) bool {
	_, ok := f.length(fs, name)
	return ok
}

func (f *FileSystem) Open(name string, flag vfs.Flag) (vfs.Stream, error) {
	fs, err := f.instance()
	if err != nil {
		return nil, err
	}
	if name, err = native(name); err != nil {
		return nil, err
	}
	// written files cannot be continued
	if flag.Has(vfs.Write|vfs.Append) && !flag.Has(vfs.Truncate) {
		if n, ok := f.length(fs, name); ok && n > 0 {
			return nil, vfs.ErrReadOnly
		}
	}
	var flags OpenFlag
	if flag.Has(vfs.Read) {
		flags |= OpenRead
	}
	if flag.Has(vfs.Write) {
		flags |= OpenWrite | OpenCRC
		if flag.Has(vfs.Truncate) {
			flags |= OpenCreate
		}
	}
	if flag.Has(vfs.Create) {
		exists := f.exists(fs, name)
		if exists && flag.Has(vfs.Exclusive) {
			return nil, vfs.ErrExists
		}
		if !exists {
			flags |= OpenCreate
		}
	}
	d, err := fs.Open(name, flags)
	if err != nil {
		return nil, errno(err)
	}
	return &stream{d: d}, nil
}

func (f *FileSystem) OpenDir(name string) (vfs.Cursor, error) {
	fs, err := f.instance()
	if err != nil {
		return nil, err
	}
	if name != "" {
		if n, err := native(name); err == nil && f.exists(fs, n) {
			return nil, vfs.ErrNotDir
		}
		return nil, vfs.ErrNotFound
	}
	return &cursor{fs: fs, blockSize: f.media.Geometry().BlockSize}, nil
}

func translate(st Stat, blockSize uint32) vfs.Info {
	t := time.Unix(int64(st.CTime), 0).UTC()
	if st.CTime == 0 || st.CTime == 0xFFFFFFFF {
		t = time.Time{}
	}
	return vfs.Info{
		Name:      st.Name,
		Size:      uint64(st.FileLen),
		Created:   t,
		Modified:  t,
		Attr:      vfs.AttrRead | vfs.AttrWrite | vfs.AttrRegular,
		BlockSize: blockSize,
		Blocks:    vfs.Blocks(uint64(st.FileLen), blockSize),
	}
}

func (f *FileSystem) Stat(name string) (vfs.Info, error) {
	fs, err := f.instance()
	if err != nil {
		return vfs.Info{}, err
	}
	if name == "" {
		u, err := f.Usage()
		if err != nil {
			return vfs.Info{}, err
		}
		return vfs.Info{
			Name:      f.name,
			Size:      u.Used(),
			Created:   u.Created,
			Modified:  u.Created,
			Attr:      vfs.AttrDir | vfs.AttrRead | vfs.AttrWrite | vfs.AttrFlat,
			BlockSize: u.BlockSize,
			Blocks:    u.Blocks,
		}, nil
	}
	if name, err = native(name); err != nil {
		return vfs.Info{}, err
	}
	d, err := fs.Open(name, OpenRead)
	if err != nil {
		return vfs.Info{}, errno(err)
	}
	defer d.Close()
	info := translate(Stat{Name: name, FileLen: d.FileLen, CTime: d.CTime}, f.media.Geometry().BlockSize)
	info.Inode = d.ID()
	return info, nil
}

// Mkdir fails: the flash has only the root directory.
func (f *FileSystem) Mkdir(name string) error {
	return vfs.ErrInvalid
}

func (f *FileSystem) Remove(name string) error {
	fs, err := f.instance()
	if err != nil {
		return err
	}
	if name, err = native(name); err != nil {
		return err
	}
	d, err := fs.Open(name, OpenRaw)
	if err != nil {
		return errno(err)
	}
	return errno(d.Delete())
}

func (f *FileSystem) Rename(from, to string) error {
	fs, err := f.instance()
	if err != nil {
		return err
	}
	if from, err = native(from); err != nil {
		return err
	}
	if to, err = native(to); err != nil {
		return err
	}
	old, err := fs.Open(from, OpenRaw)
	if err != nil {
		return errno(err)
	}
	if from == to {
		return errno(old.Close())
	}
	target, err := fs.Open(to, OpenWrite|OpenCreate)
	if err != nil {
		old.Close()
		return errno(err)
	}
	return errno(fs.Rename(old, target))
}

// Touch does nothing; the creation time is fixed when the file is written.
func (f *FileSystem) Touch(name string, info *vfs.Info) error {
	return nil
}

func (f *FileSystem) Label() (string, error) {
	return f.name, nil
}

func (f *FileSystem) SetLabel(label string) error {
	return vfs.ErrInvalid
}

func (f *FileSystem) Usage() (vfs.Usage, error) {
	fs, err := f.instance()
	if err != nil {
		return vfs.Usage{}, err
	}
	di, err := fs.DiskInfo()
	if err != nil {
		return vfs.Usage{}, errno(err)
	}
	bs := f.media.Geometry().BlockSize
	u := vfs.Usage{
		BlockSize: bs,
		Blocks:    (di.TotalSize + bs - 1) / bs,
		Free:      di.AvailableSize / bs,
	}
	if di.CreationDate != 0 {
		u.Created = time.Unix(int64(di.CreationDate), 0).UTC()
	}
	return u, nil
}

func (f *FileSystem) Busy() bool {
	return f.media.Locked()
}

type stream struct {
	d *Desc
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.d.Read(p)
	return n, errno(err)
}

func (s *stream) Write(p []byte) (int, error) {
	n, err := s.d.Write(p)
	return n, errno(err)
}

// Seek stops at the end of the data.
func (s *stream) Seek(pos int64) error {
	if pos > int64(s.d.FileLen) {
		pos = int64(s.d.FileLen)
	}
	s.d.FilePos = uint32(pos)
	return nil
}

func (s *stream) Tell() int64 {
	return int64(s.d.FilePos)
}

func (s *stream) Size() int64 {
	return int64(s.d.FileLen)
}

func (s *stream) Sync() error {
	return nil
}

func (s *stream) Truncate(size int64) error {
	return vfs.ErrInvalid
}

func (s *stream) Close() error {
	return errno(s.d.Close())
}

type cursor struct {
	fs        *FS
	blockSize uint32
	index     int
	done      bool
}

func (c *cursor) Next() (vfs.Info, error) {
	for !c.done {
		i := c.index
		st, flags, err := c.fs.Info(i)
		if err == ErrIndexRange || (err == nil && flags == 0) {
			c.done = true
			break
		}
		if err != nil {
			return vfs.Info{}, errno(err)
		}
		c.index++
		if flags&StatActive == 0 {
			continue
		}
		info := translate(st, c.blockSize)
		info.Attr |= vfs.AttrExec
		info.Inode = uint32(i) + 1
		return info, nil
	}
	return vfs.Info{}, vfs.ErrNotFound
}

func (c *cursor) Close() error {
	c.done = true
	return nil
}
