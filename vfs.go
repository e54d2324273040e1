// Package vfs routes path addressed file and directory operations to the
// backend mounted under a drive prefix such as "A:". It owns drive
// resolution, handles, error and flag translation, synthetic inode
// numbers and the mount lifecycle; the storage itself belongs to the
// backends.
//
// A VFS is not safe for concurrent use. Mount and unmount must be
// serialized against every path resolving call.
package vfs

import (
	"time"

	"github.com/rstms/vfs/inode"
)

// ObjectEvent reports a change to a file or directory, for consumers that
// mirror the drive contents elsewhere.
type ObjectEvent int

const (
	ObjectAdded ObjectEvent = iota + 1
	ObjectChanged
	ObjectRemoved
)

func (e ObjectEvent) String() string {
	switch e {
	case ObjectAdded:
		return "added"
	case ObjectChanged:
		return "changed"
	case ObjectRemoved:
		return "removed"
	}
	return "unknown"
}

type ObjectFunc func(ev ObjectEvent, path string)

// VFS is the drive table together with the operations dispatched over it.
type VFS struct {
	drives  []*Drive
	layout  inode.Layout
	now     func() time.Time
	objects ObjectFunc
	root    *Drive
}

type Option func(*VFS)

// WithLayout sets the inode field widths.
func WithLayout(l inode.Layout) Option {
	return func(v *VFS) {
		v.layout = l
	}
}

// WithClock replaces time.Now as the source of modification times.
func WithClock(now func() time.Time) Option {
	return func(v *VFS) {
		v.now = now
	}
}

func WithObjectEvents(fn ObjectFunc) Option {
	return func(v *VFS) {
		v.objects = fn
	}
}

// New builds the drive table. Drives stay unmounted until Mount or
// MountAll.
func New(drives []*Drive, opts ...Option) *VFS {
	v := &VFS{
		drives: drives,
		layout: inode.Default,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if !v.layout.Valid() {
		v.layout = inode.Default
	}
	for _, d := range drives {
		d.namelen = len(d.Prefix)
		d.index = 0
	}
	v.root = &Drive{FS: &rootFS{v: v}}
	return v
}

func (v *VFS) Layout() inode.Layout {
	return v.layout
}

func (v *VFS) raise(d *Drive, ev Event) {
	if d.OnEvent != nil {
		d.OnEvent(v, d, ev)
	}
}

func (v *VFS) object(ev ObjectEvent, path string) {
	if v.objects != nil {
		v.objects(ev, path)
	}
}
