package vfs

import (
	"strings"

	"github.com/pkg/errors"
)

func (v *VFS) Mkdir(path string) error {
	d, _, name, _, err := v.resolve(path, false)
	if err != nil {
		return err
	}
	if name == "" {
		return ErrExists
	}
	if err := d.FS.Mkdir(name); err != nil {
		return err
	}
	v.object(ObjectAdded, path)
	return nil
}

func (v *VFS) Remove(path string) error {
	d, _, name, _, err := v.resolve(path, false)
	if err != nil {
		return err
	}
	if name == "" {
		return ErrBusy
	}
	if err := d.FS.Remove(name); err != nil {
		return err
	}
	v.object(ObjectRemoved, path)
	return nil
}

// Rename moves from to to on the same drive. to may omit the prefix.
func (v *VFS) Rename(from, to string) error {
	d, _, name, _, err := v.resolve(from, false)
	if err != nil {
		return err
	}
	target := clean(to)
	if strings.Contains(to, ":") {
		td, _, tname, _, err := v.resolve(to, false)
		if err != nil {
			return err
		}
		if td != d {
			return ErrInvalid
		}
		target = tname
	}
	if name == "" || target == "" {
		return ErrInvalid
	}
	if err := d.FS.Rename(name, target); err != nil {
		return err
	}
	v.object(ObjectRemoved, from)
	v.object(ObjectAdded, to)
	return nil
}

// Stat describes path. A drive root yields the drive's aggregate record.
// The inode matches the one Dir.Read reports for the same entry: the
// backend's native id, else the entry's position in its directory.
func (v *VFS) Stat(path string) (Info, error) {
	d, pos, name, _, err := v.resolve(path, false)
	if err != nil {
		return Info{}, err
	}
	if name == "" {
		return v.driveInfo(d)
	}
	info, err := d.FS.Stat(name)
	if err != nil {
		return Info{}, err
	}
	info.Device = uint8(d.index)
	dir := parent(name)
	item := info.Inode
	if item == 0 {
		item = ordinal(d.FS, dir, info.Name)
	}
	if item != 0 {
		info.Inode = v.layout.Encode(uint32(pos), d.folder(dir), item)
	}
	return info, nil
}

// ordinal is the 1-based position of entry name in directory dir, the item
// number Dir.Read assigns when the backend has no native id. 0 when the
// entry cannot be found.
func ordinal(fs FileSystem, dir, name string) uint32 {
	cursor, err := fs.OpenDir(dir)
	if err != nil {
		return 0
	}
	defer cursor.Close()
	for seq := uint32(1); ; seq++ {
		info, err := cursor.Next()
		if err != nil {
			return 0
		}
		if info.Name == name {
			return seq
		}
	}
}

// Touch applies the timestamps and attributes in info to path where the
// backend keeps them.
func (v *VFS) Touch(path string, info *Info) error {
	d, _, name, _, err := v.resolve(path, false)
	if err != nil {
		return err
	}
	if info == nil {
		info = &Info{Modified: v.now()}
	}
	return d.FS.Touch(name, info)
}

func (v *VFS) Label(prefix string) (string, error) {
	d, _, _, _, err := v.resolve(prefix, false)
	if err != nil {
		return "", err
	}
	return d.FS.Label()
}

func (v *VFS) SetLabel(prefix, label string) error {
	d, _, _, _, err := v.resolve(prefix, false)
	if err != nil {
		return err
	}
	return d.FS.SetLabel(label)
}

// Format creates an empty filesystem on the drive, mounted or not.
func (v *VFS) Format(prefix string) error {
	d, _, _, _, err := v.resolve(prefix, true)
	if err != nil {
		return err
	}
	if err := d.FS.Format(); err != nil {
		return errors.Wrapf(err, "format %s", d.Prefix)
	}
	d.folders = nil
	return nil
}

func (v *VFS) usage(prefix string) (Usage, error) {
	d, _, _, _, err := v.resolve(prefix, false)
	if err != nil {
		return Usage{}, err
	}
	return d.FS.Usage()
}

// FsSize returns the capacity of a mounted drive in bytes.
func (v *VFS) FsSize(prefix string) (uint64, error) {
	u, err := v.usage(prefix)
	if err != nil {
		return 0, err
	}
	return u.Total(), nil
}

// FsFree returns the free bytes of a mounted drive.
func (v *VFS) FsFree(prefix string) (uint64, error) {
	u, err := v.usage(prefix)
	if err != nil {
		return 0, err
	}
	return u.Available(), nil
}

// FsType names the backend family of a mounted drive.
func (v *VFS) FsType(prefix string) (string, error) {
	d, _, _, _, err := v.resolve(prefix, false)
	if err != nil {
		return "", err
	}
	return d.Kind().String(), nil
}

// CheckBusy probes whether the backend of prefix holds its lock.
func (v *VFS) CheckBusy(prefix string) bool {
	d, _, _, _, err := v.resolve(prefix, true)
	if err != nil {
		return false
	}
	return d.FS.Busy()
}

// Check scans the root directory of a mounted drive for records left by
// erased flash and returns ErrInternal when one is found.
func (v *VFS) Check(prefix string) error {
	dir, err := v.OpenDir(prefix)
	if err != nil {
		return err
	}
	defer dir.Close()
	for {
		info, err := dir.Read()
		if IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Corrupt() {
			return errors.Wrapf(ErrInternal, "%s: corrupt entry", prefix)
		}
	}
}
