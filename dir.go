package vfs

import (
	"strings"

	"github.com/rstms/vfs/wildcard"
)

// Dir is an open directory.
type Dir struct {
	v       *VFS
	drive   *Drive
	cursor  Cursor
	storage uint32
	name    string
	pattern string
	folder  uint32
	seq     uint32
}

// OpenDir opens a directory on a mounted drive. An empty path, or a single
// character that names no drive, opens the root listing of mounted drives.
func (v *VFS) OpenDir(path string) (*Dir, error) {
	d, pos, name, _, err := v.resolve(path, false)
	if err != nil {
		if len(strings.TrimSpace(path)) <= 1 {
			cursor, _ := v.root.FS.OpenDir("")
			return &Dir{v: v, drive: v.root, cursor: cursor}, nil
		}
		return nil, err
	}
	cursor, err := d.FS.OpenDir(name)
	if err != nil {
		return nil, err
	}
	return &Dir{
		v:       v,
		drive:   d,
		cursor:  cursor,
		storage: uint32(pos),
		name:    name,
		folder:  d.folder(name),
	}, nil
}

// IsRoot reports whether the directory is the drive listing.
func (dir *Dir) IsRoot() bool {
	return dir.drive != nil && dir.drive == dir.v.root
}

// Read returns the next entry, ErrNotFound once the directory is
// exhausted.
func (dir *Dir) Read() (Info, error) {
	if dir == nil || dir.drive == nil {
		return Info{}, ErrBadHandle
	}
	info, err := dir.cursor.Next()
	if err != nil {
		return Info{}, err
	}
	if dir.IsRoot() {
		return info, nil
	}
	dir.seq++
	item := info.Inode
	if item == 0 {
		item = dir.seq
	}
	info.Inode = dir.v.layout.Encode(dir.storage, dir.folder, item)
	info.Device = uint8(dir.drive.index)
	return info, nil
}

// FindNext returns the next entry whose name matches the pattern given to
// FindFirst.
func (dir *Dir) FindNext() (Info, error) {
	for {
		info, err := dir.Read()
		if err != nil {
			return Info{}, err
		}
		if dir.pattern == "" || wildcard.Match(dir.pattern, info.Name) {
			return info, nil
		}
	}
}

// Close detaches the directory. Later calls fail with ErrBadHandle.
func (dir *Dir) Close() error {
	if dir == nil || dir.drive == nil {
		return ErrBadHandle
	}
	err := dir.cursor.Close()
	dir.drive = nil
	dir.cursor = nil
	return err
}

// FindFirst opens path and returns the first entry matching pattern. When
// nothing matches the directory is closed before returning.
func (v *VFS) FindFirst(path, pattern string) (*Dir, Info, error) {
	dir, err := v.OpenDir(path)
	if err != nil {
		return nil, Info{}, err
	}
	dir.pattern = pattern
	info, err := dir.FindNext()
	if err != nil {
		dir.Close()
		return nil, Info{}, err
	}
	return dir, info, nil
}

// Walk visits every entry below path depth first, directories before
// their contents.
func (v *VFS) Walk(path string, fn func(path string, info Info) error) error {
	dir, err := v.OpenDir(path)
	if err != nil {
		return err
	}
	var entries []Info
	for {
		info, err := dir.Read()
		if IsNotFound(err) {
			break
		}
		if err != nil {
			dir.Close()
			return err
		}
		entries = append(entries, info)
	}
	if err := dir.Close(); err != nil {
		return err
	}
	base := strings.TrimRight(path, "/\\")
	for _, info := range entries {
		child := base + "/" + info.Name
		if err := fn(child, info); err != nil {
			return err
		}
		if info.IsDir() {
			if err := v.Walk(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
