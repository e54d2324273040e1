// Package observer holds lifecycle policies that attach to a drive's
// OnEvent hook.
package observer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rstms/vfs"
)

// Size renders a byte count the way mount messages report capacity.
func Size(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
	return fmt.Sprintf("%d kB", n/1024)
}

// Logger logs every transition. A freshly mounted drive is measured and its
// root directory checked for records left by erased flash.
func Logger(log *zap.Logger) vfs.EventFunc {
	return func(v *vfs.VFS, d *vfs.Drive, ev vfs.Event) {
		l := log.With(zap.String("drive", d.Prefix), zap.Stringer("kind", d.Kind()))
		switch ev {
		case vfs.EventMounted:
			size, err := v.FsSize(d.Prefix)
			if err != nil {
				l.Warn("mounted, capacity unknown", zap.Error(err))
				return
			}
			free, err := v.FsFree(d.Prefix)
			if err != nil {
				l.Warn("mounted, capacity unknown", zap.Error(err))
				return
			}
			l.Info("mounted", zap.String("size", Size(size)), zap.String("free", Size(free)))
			if err := v.Check(d.Prefix); err != nil {
				l.Error("filesystem check failed", zap.Error(err))
			}
		case vfs.EventUnmounted:
			l.Info("unmounted")
		case vfs.EventMountFailed:
			l.Warn("cannot mount")
		}
	}
}

// Recover formats a fixed drive whose mount failed, labels it with the
// drive letter and serial and mounts it again. Each drive is tried once.
func Recover(serial string) vfs.EventFunc {
	tried := map[string]bool{}
	return func(v *vfs.VFS, d *vfs.Drive, ev vfs.Event) {
		if ev != vfs.EventMountFailed || !d.Fixed || tried[d.Prefix] {
			return
		}
		tried[d.Prefix] = true
		if err := v.Format(d.Prefix); err != nil {
			return
		}
		if err := v.Mount(d.Prefix); err != nil {
			return
		}
		v.SetLabel(d.Prefix, Label(d.Prefix, serial))
	}
}

// Label is the recovery label: the prefix letters followed by serial,
// limited to the 11 characters a FAT label holds.
func Label(prefix, serial string) string {
	label := strings.TrimSuffix(prefix, ":") + serial
	if len(label) > 11 {
		label = label[:11]
	}
	return label
}

// Chain fans an event out to fns in order. Nil entries are skipped.
func Chain(fns ...vfs.EventFunc) vfs.EventFunc {
	return func(v *vfs.VFS, d *vfs.Drive, ev vfs.Event) {
		for _, fn := range fns {
			if fn != nil {
				fn(v, d, ev)
			}
		}
	}
}
