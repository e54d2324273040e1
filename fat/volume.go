package fat

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/rstms/vfs/fattime"
	"github.com/rstms/vfs/media"
)

const kind = "fat"

// Mode is the native open mode.
type Mode uint8

const (
	ModeRead     Mode = 0x01
	ModeWrite    Mode = 0x02
	OpenExisting Mode = 0x00
	CreateNew    Mode = 0x04
	CreateAlways Mode = 0x08
	OpenAlways   Mode = 0x10
	OpenAppend   Mode = 0x30
)

const invalidChars = "\"*:<>?|\x7f"

// Volume is the work area of one mounted FAT volume kept on media.
type Volume struct {
	m       *media.Media
	Now     func() time.Time
	MaxOpen int

	mounted bool
	checked bool
	open    map[string]int
}

func NewVolume(m *media.Media) *Volume {
	return &Volume{
		m:       m,
		Now:     time.Now,
		MaxOpen: 8,
		open:    map[string]int{},
	}
}

// Mount registers the volume. With check set the filesystem is verified
// now, otherwise on first access.
func (v *Volume) Mount(check bool) error {
	v.m.Lock()
	defer v.m.Unlock()
	v.mounted = true
	v.checked = false
	if check {
		return v.ready()
	}
	return nil
}

func (v *Volume) Unmount() error {
	v.m.Lock()
	defer v.m.Unlock()
	if !v.mounted {
		return NotEnabled
	}
	v.mounted = false
	v.checked = false
	v.m.Release()
	return nil
}

func (v *Volume) ready() error {
	if !v.mounted {
		return NotEnabled
	}
	if v.checked {
		return nil
	}
	if err := v.m.Load(kind); err != nil {
		return NoFilesystem
	}
	v.checked = true
	return nil
}

// Mkfs creates an empty volume.
func (v *Volume) Mkfs() error {
	v.m.Lock()
	defer v.m.Unlock()
	if v.openCount() > 0 {
		return Locked
	}
	if err := v.m.Format(kind); err != nil {
		return DiskErr
	}
	v.checked = v.mounted
	if !v.mounted {
		v.m.Release()
	}
	return nil
}

func (v *Volume) openCount() int {
	n := 0
	for _, c := range v.open {
		n += c
	}
	return n
}

// lookup validates name and returns its stored path.
func (v *Volume) lookup(name string) (string, error) {
	if err := v.ready(); err != nil {
		return "", err
	}
	if strings.ContainsAny(name, invalidChars) {
		return "", InvalidName
	}
	for _, part := range strings.Split(name, "/") {
		if len(part) > 255 {
			return "", InvalidName
		}
	}
	return v.m.Resolve(name, true), nil
}

// missing picks NoFile or NoPath for an absent stored path.
func (v *Volume) missing(stored string) error {
	dir := path.Dir(stored)
	if fi, err := v.m.Stat(dir); err != nil || !fi.IsDir() {
		return NoPath
	}
	return NoFile
}

func (v *Volume) record(stored string, fi os.FileInfo) record {
	if data, ok := v.m.Attr(stored, recordAttr); ok {
		return decodeRecord(data)
	}
	d, t := stamp(fi)
	return record{cdate: d, ctime: t, mdate: d, mtime: t}
}

func (v *Volume) setRecord(stored string, r record) error {
	if err := v.m.SetAttr(stored, recordAttr, r.encode()); err != nil {
		return DiskErr
	}
	return nil
}

func (v *Volume) newRecord(attrib Attrib) record {
	d, t := fattime.Encode(v.Now())
	return record{attrib: attrib, cdate: d, ctime: t, mdate: d, mtime: t}
}

func (v *Volume) info(stored string, fi os.FileInfo) FileInfo {
	r := v.record(stored, fi)
	out := FileInfo{
		Name:    fi.Name(),
		FDate:   r.mdate,
		FTime:   r.mtime,
		CDate:   r.cdate,
		CTime:   r.ctime,
		Attrib:  r.attrib &^ AttrDirectory,
		Cluster: v.m.ID(stored),
	}
	if fi.IsDir() {
		out.Attrib |= AttrDirectory
	} else {
		out.Size = uint32(fi.Size())
	}
	return out
}

func (v *Volume) Stat(name string) (FileInfo, error) {
	v.m.Lock()
	defer v.m.Unlock()
	if name == "" {
		return FileInfo{}, InvalidName
	}
	stored, err := v.lookup(name)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := v.m.Stat(stored)
	if err != nil {
		return FileInfo{}, v.missing(stored)
	}
	info := v.info(stored, fi)
	info.AltName = ShortName(info.Name)
	return info, nil
}

func (v *Volume) OpenDir(name string) (*DirReader, error) {
	v.m.Lock()
	defer v.m.Unlock()
	stored, err := v.lookup(name)
	if err != nil {
		return nil, err
	}
	fi, err := v.m.Stat(stored)
	if err != nil {
		return nil, NoPath
	}
	if !fi.IsDir() {
		return nil, NoPath
	}
	entries, err := v.m.List(stored)
	if err != nil {
		return nil, DiskErr
	}
	return &DirReader{v: v, stored: stored, entries: entries}, nil
}

func (v *Volume) Mkdir(name string) error {
	v.m.Lock()
	defer v.m.Unlock()
	if name == "" {
		return InvalidName
	}
	stored, err := v.lookup(name)
	if err != nil {
		return err
	}
	if _, err := v.m.Stat(stored); err == nil {
		return Exist
	}
	if fi, err := v.m.Stat(path.Dir(stored)); err != nil || !fi.IsDir() {
		return NoPath
	}
	if ok, _ := v.m.Fits(0, 1); !ok {
		return Denied
	}
	if err := v.m.Fs().Mkdir(stored, 0700); err != nil {
		return DiskErr
	}
	v.m.ID(stored)
	return v.setRecord(stored, v.newRecord(AttrDirectory))
}

// Unlink removes a file or an empty directory.
func (v *Volume) Unlink(name string) error {
	v.m.Lock()
	defer v.m.Unlock()
	if name == "" {
		return InvalidName
	}
	stored, err := v.lookup(name)
	if err != nil {
		return err
	}
	fi, err := v.m.Stat(stored)
	if err != nil {
		return v.missing(stored)
	}
	if v.open[stored] > 0 {
		return Locked
	}
	if v.record(stored, fi).attrib&AttrReadOnly != 0 {
		return Denied
	}
	if fi.IsDir() {
		entries, err := v.m.List(stored)
		if err != nil {
			return DiskErr
		}
		if len(entries) > 0 {
			return Denied
		}
	}
	if err := v.m.Fs().Remove(stored); err != nil {
		return DiskErr
	}
	if err := v.m.Forget(stored); err != nil {
		return DiskErr
	}
	return nil
}

func (v *Volume) Rename(from, to string) error {
	v.m.Lock()
	defer v.m.Unlock()
	if from == "" || to == "" {
		return InvalidName
	}
	src, err := v.lookup(from)
	if err != nil {
		return err
	}
	dst, err := v.lookup(to)
	if err != nil {
		return err
	}
	if _, err := v.m.Stat(src); err != nil {
		return v.missing(src)
	}
	if v.open[src] > 0 {
		return Locked
	}
	if _, err := v.m.Stat(dst); err == nil && !strings.EqualFold(src, dst) {
		return Exist
	}
	if fi, err := v.m.Stat(path.Dir(dst)); err != nil || !fi.IsDir() {
		return NoPath
	}
	if err := v.m.Fs().Rename(src, dst); err != nil {
		return DiskErr
	}
	if err := v.m.Move(src, dst); err != nil {
		return DiskErr
	}
	return nil
}

// Chmod changes the attributes selected by mask.
func (v *Volume) Chmod(name string, attr, mask Attrib) error {
	v.m.Lock()
	defer v.m.Unlock()
	stored, err := v.lookup(name)
	if err != nil {
		return err
	}
	fi, err := v.m.Stat(stored)
	if err != nil {
		return v.missing(stored)
	}
	mask &= attrSettable
	r := v.record(stored, fi)
	r.attrib = r.attrib&^mask | attr&mask
	return v.setRecord(stored, r)
}

// Utime sets the stamps of name. Zero words leave a stamp unchanged.
func (v *Volume) Utime(name string, fi FileInfo) error {
	v.m.Lock()
	defer v.m.Unlock()
	stored, err := v.lookup(name)
	if err != nil {
		return err
	}
	st, err := v.m.Stat(stored)
	if err != nil {
		return v.missing(stored)
	}
	r := v.record(stored, st)
	if fi.FDate|fi.FTime != 0 {
		r.mdate, r.mtime = fi.FDate, fi.FTime
	}
	if fi.CDate|fi.CTime != 0 {
		r.cdate, r.ctime = fi.CDate, fi.CTime
	}
	return v.setRecord(stored, r)
}

// GetFree returns the free and total cluster counts and the cluster size.
func (v *Volume) GetFree() (free, total, size uint32, err error) {
	v.m.Lock()
	defer v.m.Unlock()
	if err := v.ready(); err != nil {
		return 0, 0, 0, err
	}
	free, ferr := v.m.Free()
	if ferr != nil {
		return 0, 0, 0, DiskErr
	}
	geom := v.m.Geometry()
	return free, geom.Blocks, geom.BlockSize, nil
}

func (v *Volume) GetLabel() (string, error) {
	v.m.Lock()
	defer v.m.Unlock()
	if err := v.ready(); err != nil {
		return "", err
	}
	return v.m.Label(), nil
}

// SetLabel stores an upper cased label of at most 11 characters.
func (v *Volume) SetLabel(label string) error {
	v.m.Lock()
	defer v.m.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) > 11 || strings.ContainsAny(label, invalidChars+"+,./;=[]\\") {
		return InvalidName
	}
	if err := v.m.SetLabel(label); err != nil {
		return DiskErr
	}
	return nil
}

// Busy reports whether another operation holds the volume.
func (v *Volume) Busy() bool {
	return v.m.Locked()
}
