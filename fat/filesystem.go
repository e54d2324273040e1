package fat

import (
	"time"

	"github.com/rstms/vfs"
	"github.com/rstms/vfs/fattime"
	"github.com/rstms/vfs/media"
)

// FileSystem adapts a FAT volume to vfs.FileSystem.
type FileSystem struct {
	media *media.Media
	vol   *Volume
	owned bool
	Now   func() time.Time
}

// ensure FileSystem implements vfs.FileSystem
var _ vfs.FileSystem = (*FileSystem)(nil)

// New returns a FileSystem whose volume work area is allocated on the
// first mount and released on unmount.
func New(m *media.Media) *FileSystem {
	return &FileSystem{media: m, Now: time.Now}
}

// NewWithVolume returns a FileSystem over a caller owned volume that
// survives unmount.
func NewWithVolume(vol *Volume) *FileSystem {
	return &FileSystem{media: vol.m, vol: vol, Now: vol.Now}
}

func (f *FileSystem) Kind() vfs.Kind {
	return vfs.KindFAT
}

// Volume is the current work area, nil while not allocated.
func (f *FileSystem) Volume() *Volume {
	return f.vol
}

func (f *FileSystem) volume() (*Volume, error) {
	if f.vol == nil {
		return nil, vfs.ErrNoDevice
	}
	return f.vol, nil
}

// Mount checks the filesystem immediately on fixed drives and lazily on
// removable ones.
func (f *FileSystem) Mount(fixed bool) error {
	if f.vol == nil {
		f.vol = NewVolume(f.media)
		f.vol.Now = f.Now
		f.owned = true
	}
	if err := f.vol.Mount(fixed); err != nil {
		f.vol.Unmount()
		if f.owned {
			f.vol = nil
			f.owned = false
		}
		return errno(err)
	}
	return nil
}

func (f *FileSystem) Unmount() error {
	if f.vol == nil {
		return vfs.ErrNotFound
	}
	err := f.vol.Unmount()
	if f.owned {
		f.vol = nil
		f.owned = false
	}
	return errno(err)
}

func (f *FileSystem) Format() error {
	vol := f.vol
	if vol == nil {
		vol = NewVolume(f.media)
		vol.Now = f.Now
	}
	return errno(vol.Mkfs())
}

func openMode(flag vfs.Flag) Mode {
	var mode Mode
	if flag.Has(vfs.Read) {
		mode |= ModeRead
	}
	if flag.Has(vfs.Write) {
		mode |= ModeWrite
		if flag.Has(vfs.Truncate) {
			mode |= CreateAlways
		}
		if flag.Has(vfs.Exclusive) {
			mode |= CreateNew
		}
		if flag.Has(vfs.Create) {
			mode |= OpenAlways
		}
	}
	return mode
}

func (f *FileSystem) Open(name string, flag vfs.Flag) (vfs.Stream, error) {
	vol, err := f.volume()
	if err != nil {
		return nil, err
	}
	file, err := vol.Open(name, openMode(flag))
	if err != nil {
		return nil, errno(err)
	}
	return &stream{file: file}, nil
}

func (f *FileSystem) OpenDir(name string) (vfs.Cursor, error) {
	vol, err := f.volume()
	if err != nil {
		return nil, err
	}
	dir, err := vol.OpenDir(name)
	if err != nil {
		return nil, errno(err)
	}
	return &cursor{dir: dir, blockSize: f.media.Geometry().BlockSize}, nil
}

func (f *FileSystem) Stat(name string) (vfs.Info, error) {
	vol, err := f.volume()
	if err != nil {
		return vfs.Info{}, err
	}
	fi, err := vol.Stat(name)
	if err != nil {
		return vfs.Info{}, errno(err)
	}
	return translate(fi, f.media.Geometry().BlockSize), nil
}

func (f *FileSystem) Mkdir(name string) error {
	vol, err := f.volume()
	if err != nil {
		return err
	}
	return errno(vol.Mkdir(name))
}

func (f *FileSystem) Remove(name string) error {
	vol, err := f.volume()
	if err != nil {
		return err
	}
	return errno(vol.Unlink(name))
}

func (f *FileSystem) Rename(from, to string) error {
	vol, err := f.volume()
	if err != nil {
		return err
	}
	return errno(vol.Rename(from, to))
}

// Touch sets the hidden and system bits and any non-zero timestamps.
func (f *FileSystem) Touch(name string, info *vfs.Info) error {
	vol, err := f.volume()
	if err != nil {
		return err
	}
	if info.Attr != 0 {
		var attr Attrib
		if info.Attr&vfs.AttrHidden != 0 {
			attr |= AttrHidden
		}
		if info.Attr&vfs.AttrSystem != 0 {
			attr |= AttrSystem
		}
		if err := vol.Chmod(name, attr, AttrHidden|AttrSystem); err != nil {
			return errno(err)
		}
	}
	var fi FileInfo
	fi.CDate, fi.CTime = fattime.Encode(info.Created)
	fi.FDate, fi.FTime = fattime.Encode(info.Modified)
	if fi.CDate|fi.CTime|fi.FDate|fi.FTime != 0 {
		return errno(vol.Utime(name, fi))
	}
	return nil
}

func (f *FileSystem) Label() (string, error) {
	vol, err := f.volume()
	if err != nil {
		return "", err
	}
	label, err := vol.GetLabel()
	return label, errno(err)
}

func (f *FileSystem) SetLabel(label string) error {
	vol, err := f.volume()
	if err != nil {
		return err
	}
	return errno(vol.SetLabel(label))
}

func (f *FileSystem) Usage() (vfs.Usage, error) {
	vol, err := f.volume()
	if err != nil {
		return vfs.Usage{}, err
	}
	free, total, size, err := vol.GetFree()
	if err != nil {
		return vfs.Usage{}, errno(err)
	}
	return vfs.Usage{
		Blocks:    total,
		BlockSize: size,
		Free:      free,
		Created:   f.media.Created(),
	}, nil
}

func (f *FileSystem) Busy() bool {
	return f.media.Locked()
}

func translate(fi FileInfo, blockSize uint32) vfs.Info {
	info := vfs.Info{
		Name:      fi.Name,
		Size:      uint64(fi.Size),
		Created:   fattime.Decode(fi.CDate, fi.CTime),
		Modified:  fattime.Decode(fi.FDate, fi.FTime),
		Attr:      vfs.AttrRead | vfs.AttrExec,
		Inode:     fi.Cluster,
		BlockSize: blockSize,
		Blocks:    vfs.Blocks(uint64(fi.Size), blockSize),
	}
	if fi.IsDir() {
		info.Attr |= vfs.AttrDir
	} else {
		info.Attr |= vfs.AttrRegular
	}
	if !fi.IsReadOnly() {
		info.Attr |= vfs.AttrWrite
	}
	if fi.IsHidden() {
		info.Attr |= vfs.AttrHidden
	}
	if fi.IsSystem() {
		info.Attr |= vfs.AttrSystem
	}
	return info
}

type stream struct {
	file *File
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.file.Read(p)
	return n, errno(err)
}

func (s *stream) Write(p []byte) (int, error) {
	n, err := s.file.Write(p)
	return n, errno(err)
}

func (s *stream) Seek(pos int64) error {
	return errno(s.file.Lseek(pos))
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

// Truncate moves to size, cuts there and returns to the old position when
// it is still inside the file.
func (s *stream) Truncate(size int64) error {
	pos := s.file.Tell()
	if err := s.file.Lseek(size); err != nil {
		return errno(err)
	}
	if s.file.Tell() != size {
		return vfs.ErrNoSpace
	}
	if err := s.file.Truncate(); err != nil {
		return errno(err)
	}
	if pos > size {
		pos = size
	}
	return errno(s.file.Lseek(pos))
}

func (s *stream) Close() error {
	return errno(s.file.Close())
}

type cursor struct {
	dir       *DirReader
	blockSize uint32
}

// Next skips the dot entries.
func (c *cursor) Next() (vfs.Info, error) {
	for {
		fi, err := c.dir.Read()
		if err != nil {
			return vfs.Info{}, errno(err)
		}
		switch fi.Name {
		case "":
			return vfs.Info{}, vfs.ErrNotFound
		case ".", "..":
			continue
		}
		return translate(fi, c.blockSize), nil
	}
}

func (c *cursor) Close() error {
	return errno(c.dir.Close())
}
