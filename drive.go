package vfs

import (
	"path"
	"strings"
)

// Event is a mount lifecycle transition.
type Event int

const (
	EventMounted Event = iota + 1
	EventUnmounted
	EventMountFailed
)

func (e Event) String() string {
	switch e {
	case EventMounted:
		return "mounted"
	case EventUnmounted:
		return "unmounted"
	case EventMountFailed:
		return "mount_failed"
	}
	return "unknown"
}

// EventFunc receives lifecycle events. It runs synchronously inside Mount
// and Unmount and may call back into v.
type EventFunc func(v *VFS, d *Drive, ev Event)

// Drive binds a prefix such as "A:" to a backend.
type Drive struct {
	Prefix  string
	FS      FileSystem
	Fixed   bool
	OnEvent EventFunc

	index   int // 0 unmounted, else position+1
	namelen int
	folders map[string]uint32
}

// Mounted reports whether the drive currently routes paths.
func (d *Drive) Mounted() bool {
	return d.index != 0
}

// Index is the 1-based mounted position, 0 while unmounted.
func (d *Drive) Index() int {
	return d.index
}

func (d *Drive) Kind() Kind {
	if d.FS == nil {
		return KindNone
	}
	return d.FS.Kind()
}

// folder returns the stable folder number of a directory, root is 0.
func (d *Drive) folder(dir string) uint32 {
	if dir == "" {
		return 0
	}
	if d.folders == nil {
		d.folders = map[string]uint32{}
	}
	key := strings.ToUpper(dir)
	id, ok := d.folders[key]
	if !ok {
		id = uint32(len(d.folders) + 1)
		d.folders[key] = id
	}
	return id
}

// prefixed reports whether p starts with the drive prefix, case-insensitive.
func (d *Drive) prefixed(p string) bool {
	return d.namelen > 0 && len(p) >= d.namelen && strings.EqualFold(p[:d.namelen], d.Prefix)
}

// Find resolves path to a drive position. A drive matches when its prefix
// starts path, case-insensitive, and it is mounted or force is set. When no
// prefix matches, a path without a drive separator selects the only drive
// if exactly one is registered.
func (v *VFS) Find(p string, force bool) (int, error) {
	for i, d := range v.drives {
		if d.prefixed(p) && (force || d.Mounted()) {
			return i, nil
		}
	}
	if len(v.drives) == 1 && !strings.Contains(p, ":") {
		if force || v.drives[0].Mounted() {
			return 0, nil
		}
	}
	return -1, ErrNotFound
}

// Drives returns the registered drives in registration order.
func (v *VFS) Drives() []*Drive {
	return v.drives
}

// Volume returns the prefix of the n-th registered drive.
func (v *VFS) Volume(n int) (string, bool) {
	if n < 0 || n >= len(v.drives) {
		return "", false
	}
	return v.drives[n].Prefix, true
}

// Drive returns the drive registered under prefix, mounted or not.
func (v *VFS) Drive(prefix string) (*Drive, error) {
	i, err := v.Find(prefix, true)
	if err != nil {
		return nil, err
	}
	return v.drives[i], nil
}

// resolve splits p into its drive and the drive relative name. rooted
// reports whether the prefix was followed by a separator or absent.
func (v *VFS) resolve(p string, force bool) (d *Drive, pos int, name string, rooted bool, err error) {
	pos, err = v.Find(p, force)
	if err != nil {
		return nil, -1, "", false, err
	}
	d = v.drives[pos]
	rest := p
	prefixed := d.prefixed(p)
	if prefixed {
		rest = p[d.namelen:]
	}
	rooted = rest == "" || rest[0] == '/' || rest[0] == '\\' || !prefixed
	return d, pos, clean(rest), rooted, nil
}

// clean normalizes separators and returns a name without leading slash.
func clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}

func parent(name string) string {
	dir := path.Dir(name)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
