// Package flat is the flat append-only flash backend: a JesFS style native
// API kept on media and its vfs adapter. There are no directories; files
// are written once, front to back, and live in numbered index slots.
package flat

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/rstms/vfs/crc"
	"github.com/rstms/vfs/media"
)

const kind = "jesfs"

// NameLen is the longest stored file name.
const NameLen = 21

// SectorSize is the physical sector size of the flash.
const SectorSize = 4096

// MaxFiles is the size of the file index.
const MaxFiles = 1000

// Code is a native status; failures are -1xx.
type Code int16

const (
	OK              Code = 0
	ErrTimeout      Code = -101
	ErrUnformatted  Code = -108
	ErrNameLength   Code = -110
	ErrIndexFull    Code = -111
	ErrFlashFull    Code = -113
	ErrIndexRange   Code = -115
	ErrNotOpen      Code = -117
	ErrNotWritable  Code = -118
	ErrNoFile       Code = -124
	ErrFileFlags    Code = -125
	ErrClosedFile   Code = -127
	ErrDescriptor   Code = -129
	ErrRenameFlags  Code = -133
	ErrRenameTarget Code = -134
	ErrRenameOpen   Code = -135
	ErrWriteFailed  Code = -137
	ErrFormatParam  Code = -139
	ErrIndexDefect  Code = -143
	ErrLowVoltage   Code = -147
	ErrPowerFail    Code = -148
)

var codeText = map[Code]string{
	ErrTimeout:      "flash timeout",
	ErrUnformatted:  "unknown magic",
	ErrNameLength:   "filename too long or short",
	ErrIndexFull:    "index full",
	ErrFlashFull:    "flash full",
	ErrIndexRange:   "index out of range",
	ErrNotOpen:      "file not open",
	ErrNotWritable:  "file not open for writing",
	ErrNoFile:       "file not found",
	ErrFileFlags:    "illegal file flags",
	ErrClosedFile:   "closed files can not be continued",
	ErrDescriptor:   "descriptor corrupted",
	ErrRenameFlags:  "rename target opened read or raw",
	ErrRenameTarget: "rename target not empty",
	ErrRenameOpen:   "rename needs both files open",
	ErrWriteFailed:  "write failed",
	ErrFormatParam:  "format parameter",
	ErrIndexDefect:  "index defect",
	ErrLowVoltage:   "voltage too low",
	ErrPowerFail:    "flash not accessible",
}

func (c Code) Error() string {
	if s, ok := codeText[c]; ok {
		return "jesfs: " + s
	}
	return fmt.Sprintf("jesfs: error %d", int(c))
}

// OpenFlag selects the access mode of a descriptor.
type OpenFlag uint8

const (
	OpenRead   OpenFlag = 1
	OpenWrite  OpenFlag = 2
	OpenRaw    OpenFlag = 4
	OpenCreate OpenFlag = 8
	OpenCRC    OpenFlag = 0x20
)

// StatFlag describes an index slot.
type StatFlag uint8

const (
	StatActive   StatFlag = 1
	StatInactive StatFlag = 2
	StatCRC      StatFlag = 4
)

// FormatMode selects how much of the flash is erased.
type FormatMode int

const (
	FormatSoft FormatMode = iota
	FormatFull
)

// attribute types on media
const (
	attrCTime uint8 = 1
	attrCRC   uint8 = 2
)

// Stat is the index entry of one file.
type Stat struct {
	Name    string
	FileLen uint32
	CTime   uint32
	CRC     uint32
}

// DiskInfo describes the flash.
type DiskInfo struct {
	TotalSize     uint32
	AvailableSize uint32
	Files         uint32
	CreationDate  uint32
}

// FS is one flash chip.
type FS struct {
	m       *media.Media
	started bool
	Now     func() time.Time
}

func NewFS(m *media.Media) *FS {
	return &FS{m: m, Now: time.Now}
}

// Start checks the flash and loads the index.
func (fs *FS) Start() error {
	fs.m.Lock()
	defer fs.m.Unlock()
	if err := fs.m.Load(kind); err != nil {
		return ErrUnformatted
	}
	fs.started = true
	return nil
}

// Stop puts the flash to sleep.
func (fs *FS) Stop() {
	fs.m.Lock()
	defer fs.m.Unlock()
	fs.started = false
	fs.m.Release()
}

func (fs *FS) Format(mode FormatMode) error {
	if mode != FormatSoft && mode != FormatFull {
		return ErrFormatParam
	}
	fs.m.Lock()
	defer fs.m.Unlock()
	if err := fs.m.Format(kind); err != nil {
		return ErrWriteFailed
	}
	if !fs.started {
		fs.m.Release()
	}
	return nil
}

func stored(name string) string {
	return "/" + name
}

func osFlags(flags OpenFlag) int {
	if flags&OpenWrite != 0 {
		return os.O_RDWR
	}
	return os.O_RDONLY
}

func stamp(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func (fs *FS) word(name string, typ uint8) (uint32, bool) {
	b, ok := fs.m.Attr(name, typ)
	if !ok || len(b) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

// Desc is an open file.
type Desc struct {
	fs      *FS
	name    string
	flags   OpenFlag
	file    afero.File
	sum     *crc.Digest
	fresh   bool
	FilePos uint32
	FileLen uint32
	CTime   uint32
	CRC     uint32
}

// Open opens name. OpenCreate starts an empty file, replacing any file of
// that name.
func (fs *FS) Open(name string, flags OpenFlag) (*Desc, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	if !fs.started {
		return nil, ErrUnformatted
	}
	if name == "" || len(name) > NameLen || strings.ContainsAny(name, "/\\") {
		return nil, ErrNameLength
	}
	p := stored(name)
	fi, err := fs.m.Stat(p)
	exists := err == nil
	if !exists && flags&OpenCreate == 0 {
		return nil, ErrNoFile
	}
	d := &Desc{fs: fs, name: name, flags: flags}
	if flags&OpenCreate != 0 {
		if !exists && fs.m.Issued() >= MaxFiles {
			return nil, ErrIndexFull
		}
		if ok, _ := fs.m.Fits(0, 1); !ok && !exists {
			return nil, ErrFlashFull
		}
		f, err := fs.m.Fs().Create(p)
		if err != nil {
			return nil, ErrWriteFailed
		}
		fs.m.ID(p)
		d.CTime = uint32(fs.Now().Unix())
		if err := fs.m.SetAttr(p, attrCTime, stamp(d.CTime)); err != nil {
			f.Close()
			return nil, ErrWriteFailed
		}
		fs.m.RemoveAttr(p, attrCRC)
		d.file = f
		d.fresh = true
	} else {
		f, err := fs.m.Fs().OpenFile(p, osFlags(flags), 0600)
		if err != nil {
			return nil, ErrNoFile
		}
		d.file = f
		d.FileLen = uint32(fi.Size())
		d.CTime, _ = fs.word(p, attrCTime)
		d.CRC, _ = fs.word(p, attrCRC)
	}
	if flags&OpenCRC != 0 {
		d.sum = crc.New()
	}
	return d, nil
}

// ID is the index slot holding the file, starting at 1.
func (d *Desc) ID() uint32 {
	if d.fs == nil {
		return 0
	}
	d.fs.m.Lock()
	defer d.fs.m.Unlock()
	return d.fs.m.ID(stored(d.name))
}

func (d *Desc) Name() string {
	return d.name
}

func (d *Desc) check() error {
	if d == nil || d.fs == nil {
		return ErrNotOpen
	}
	if d.file == nil {
		return ErrDescriptor
	}
	return nil
}

// Read copies from the current position and returns the count, 0 at the
// end.
func (d *Desc) Read(p []byte) (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	if d.flags&(OpenRead|OpenRaw) == 0 {
		return 0, ErrFileFlags
	}
	if d.FilePos >= d.FileLen {
		return 0, nil
	}
	if rem := d.FileLen - d.FilePos; uint32(len(p)) > rem {
		p = p[:rem]
	}
	n, err := d.file.ReadAt(p, int64(d.FilePos))
	if err != nil && err != io.EOF {
		return n, ErrDescriptor
	}
	d.FilePos += uint32(n)
	return n, nil
}

// Write appends at the end. A file is continued only by the descriptor
// that created it or while it is still empty.
func (d *Desc) Write(p []byte) (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	if d.flags&OpenWrite == 0 {
		return 0, ErrNotWritable
	}
	if !d.fresh && d.FileLen > 0 {
		return 0, ErrClosedFile
	}
	d.fs.m.Lock()
	defer d.fs.m.Unlock()
	end := int64(d.FileLen) + int64(len(p))
	if ok, _ := d.fs.m.Fits(int64(d.FileLen), end); !ok {
		return 0, ErrFlashFull
	}
	n, err := d.file.WriteAt(p, int64(d.FileLen))
	if d.sum != nil {
		d.sum.Write(p[:n])
	}
	d.FileLen += uint32(n)
	d.FilePos = d.FileLen
	d.fresh = true
	if err != nil {
		return n, ErrWriteFailed
	}
	return n, nil
}

// Rewind moves the read position to the start.
func (d *Desc) Rewind() error {
	if err := d.check(); err != nil {
		return err
	}
	d.FilePos = 0
	return nil
}

func (d *Desc) writable() bool {
	return d.flags&OpenWrite != 0
}

// Close finishes the file. With OpenCRC the checksum of the written data
// is stored in the index.
func (d *Desc) Close() error {
	if err := d.check(); err != nil {
		return err
	}
	fs := d.fs
	fs.m.Lock()
	defer fs.m.Unlock()
	var err error
	if d.writable() && d.sum != nil && d.fresh {
		d.CRC = d.sum.Sum32()
		if fs.m.SetAttr(stored(d.name), attrCRC, stamp(d.CRC)) != nil {
			err = ErrWriteFailed
		}
	}
	if d.file.Close() != nil && err == nil {
		err = ErrWriteFailed
	}
	d.fs = nil
	d.file = nil
	return err
}

// Delete removes the file of a descriptor opened for reading or raw.
func (d *Desc) Delete() error {
	if err := d.check(); err != nil {
		return err
	}
	if d.writable() {
		return ErrFileFlags
	}
	fs := d.fs
	fs.m.Lock()
	defer fs.m.Unlock()
	d.file.Close()
	d.fs = nil
	d.file = nil
	p := stored(d.name)
	if err := fs.m.Fs().Remove(p); err != nil {
		return ErrNoFile
	}
	if err := fs.m.Forget(p); err != nil {
		return ErrIndexDefect
	}
	return nil
}

// Rename gives the contents of from the name of to. to must be a freshly
// created empty file; both descriptors are closed afterwards.
func (fs *FS) Rename(from, to *Desc) error {
	if from.check() != nil || to.check() != nil {
		return ErrRenameOpen
	}
	if !to.writable() || to.flags&OpenCreate == 0 {
		return ErrRenameFlags
	}
	if to.FileLen != 0 {
		return ErrRenameTarget
	}
	fs.m.Lock()
	defer fs.m.Unlock()
	from.file.Close()
	to.file.Close()
	from.fs, from.file = nil, nil
	to.fs, to.file = nil, nil
	src, dst := stored(from.name), stored(to.name)
	if src == dst {
		return nil
	}
	if err := fs.m.Fs().Remove(dst); err != nil {
		return ErrIndexDefect
	}
	if err := fs.m.Forget(dst); err != nil {
		return ErrIndexDefect
	}
	if err := fs.m.Fs().Rename(src, dst); err != nil {
		return ErrWriteFailed
	}
	if err := fs.m.Move(src, dst); err != nil {
		return ErrIndexDefect
	}
	return nil
}

// Info reports index slot i. A zero flag marks the end of the used index.
func (fs *FS) Info(i int) (Stat, StatFlag, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	if !fs.started {
		return Stat{}, 0, ErrUnformatted
	}
	if i < 0 || i >= MaxFiles {
		return Stat{}, 0, ErrIndexRange
	}
	id := uint32(i) + 1
	if id > fs.m.Issued() {
		return Stat{}, 0, nil
	}
	name, ok := fs.m.Name(id)
	if !ok {
		return Stat{}, StatInactive, nil
	}
	p := stored(name)
	fi, err := fs.m.Stat(p)
	if err != nil {
		return Stat{}, StatInactive, nil
	}
	st := Stat{Name: name, FileLen: uint32(fi.Size())}
	st.CTime, _ = fs.word(p, attrCTime)
	flags := StatActive
	if sum, ok := fs.word(p, attrCRC); ok {
		st.CRC = sum
		flags |= StatCRC
	}
	return st, flags, nil
}

// DiskInfo reports the flash size and what is left.
func (fs *FS) DiskInfo() (DiskInfo, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	if !fs.started {
		return DiskInfo{}, ErrUnformatted
	}
	geom := fs.m.Geometry()
	free, err := fs.m.Free()
	if err != nil {
		return DiskInfo{}, ErrIndexDefect
	}
	info := DiskInfo{
		TotalSize:     geom.Blocks * geom.BlockSize,
		AvailableSize: free * geom.BlockSize,
		Files:         uint32(len(fs.m.Names())),
	}
	if c := fs.m.Created(); !c.IsZero() {
		info.CreationDate = uint32(c.Unix())
	}
	return info, nil
}

// Busy reports whether an operation holds the flash.
func (fs *FS) Busy() bool {
	return fs.m.Locked()
}
