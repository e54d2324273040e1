package vfs

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Mount binds the backend of the drive named by prefix and raises
// EventMounted, or EventMountFailed leaving the drive unmounted. Mounting
// a mounted drive is a no-op. The returned error is the backend's even
// when an observer recovered the drive from inside the event.
func (v *VFS) Mount(prefix string) error {
	i, err := v.Find(prefix, true)
	if err != nil {
		return err
	}
	d := v.drives[i]
	if d.Mounted() {
		return nil
	}
	if d.FS == nil {
		v.raise(d, EventMountFailed)
		return ErrNoDevice
	}
	d.index = i + 1
	d.folders = nil
	if err := d.FS.Mount(d.Fixed); err != nil {
		d.index = 0
		v.raise(d, EventMountFailed)
		return errors.Wrapf(err, "mount %s", d.Prefix)
	}
	v.raise(d, EventMounted)
	return nil
}

// Unmount releases the backend of a mounted drive. The drive leaves the
// table and EventUnmounted is raised even when the backend reports an
// error.
func (v *VFS) Unmount(prefix string) error {
	i, err := v.Find(prefix, false)
	if err != nil {
		return err
	}
	d := v.drives[i]
	err = d.FS.Unmount()
	d.index = 0
	d.folders = nil
	v.raise(d, EventUnmounted)
	if err != nil {
		return errors.Wrapf(err, "unmount %s", d.Prefix)
	}
	return nil
}

// MountAll mounts every registered drive. Drives that fail stay
// unmounted; their errors are combined.
func (v *VFS) MountAll() error {
	var result error
	for _, d := range v.drives {
		if d.Mounted() {
			continue
		}
		result = multierr.Append(result, v.Mount(d.Prefix))
	}
	return result
}

func (v *VFS) UnmountAll() error {
	var result error
	for i := len(v.drives) - 1; i >= 0; i-- {
		d := v.drives[i]
		if !d.Mounted() {
			continue
		}
		result = multierr.Append(result, v.Unmount(d.Prefix))
	}
	return result
}
