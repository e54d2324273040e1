package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type seen struct {
	prefix string
	ev     Event
	index  int
}

func recorder(log *[]seen) EventFunc {
	return func(v *VFS, d *Drive, ev Event) {
		*log = append(*log, seen{d.Prefix, ev, d.Index()})
	}
}

func TestMountLifecycle(t *testing.T) {
	var log []seen
	v, _, b := twoDrives(t)
	v.drives[1].OnEvent = recorder(&log)

	b.mountErr = ErrNoFilesystem
	err := v.Mount("B:")
	require.Equal(t, ErrNoFilesystem, Code(err))
	require.Equal(t, []seen{{"B:", EventMountFailed, 0}}, log)
	require.False(t, v.drives[1].Mounted())

	b.mountErr = nil
	require.Nil(t, v.Mount("B:"))
	require.Equal(t, seen{"B:", EventMounted, 2}, log[1])
	require.Equal(t, 2, v.drives[1].Index())

	require.Nil(t, v.Mount("B:"))
	require.Len(t, log, 2)
	require.Equal(t, 2, b.mounts)

	require.Nil(t, v.Unmount("B:"))
	require.Equal(t, seen{"B:", EventUnmounted, 0}, log[2])
	require.Equal(t, 1, b.unmounts)
	require.Equal(t, ErrNotFound, v.Unmount("B:"))
	require.Len(t, log, 3)
}

func TestMountUnknown(t *testing.T) {
	v, _, _ := twoDrives(t)
	require.Equal(t, ErrNotFound, v.Mount("Q:"))
	var log []seen
	empty := New([]*Drive{{Prefix: "A:", OnEvent: recorder(&log)}, {Prefix: "B:"}})
	require.Equal(t, ErrNoDevice, empty.Mount("A:"))
	require.Equal(t, []seen{{"A:", EventMountFailed, 0}}, log)
	require.False(t, empty.drives[0].Mounted())
}

func TestMountRecoveredByObserver(t *testing.T) {
	var log []seen
	v, a, _ := twoDrives(t)
	a.mountErr = ErrNoFilesystem
	v.drives[0].OnEvent = func(v *VFS, d *Drive, ev Event) {
		log = append(log, seen{d.Prefix, ev, d.Index()})
		if ev == EventMountFailed {
			a.mountErr = nil
			require.Nil(t, v.Format(d.Prefix))
			require.Nil(t, v.Mount(d.Prefix))
		}
	}
	err := v.Mount("A:")
	require.Equal(t, ErrNoFilesystem, Code(err))
	require.True(t, v.drives[0].Mounted())
	require.Equal(t, []seen{
		{"A:", EventMountFailed, 0},
		{"A:", EventMounted, 1},
	}, log)
}

func TestMountAllUnmountAll(t *testing.T) {
	var log []seen
	v, a, _ := twoDrives(t)
	for _, d := range v.drives {
		d.OnEvent = recorder(&log)
	}
	a.mountErr = ErrIO
	err := v.MountAll()
	require.NotNil(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.False(t, v.drives[0].Mounted())
	require.True(t, v.drives[1].Mounted())

	a.mountErr = nil
	require.Nil(t, v.MountAll())
	require.Nil(t, v.UnmountAll())
	require.Equal(t, []seen{
		{"A:", EventMountFailed, 0},
		{"B:", EventMounted, 2},
		{"A:", EventMounted, 1},
		{"B:", EventUnmounted, 0},
		{"A:", EventUnmounted, 0},
	}, log)
	require.Nil(t, v.UnmountAll())
}

func TestEventString(t *testing.T) {
	require.Equal(t, "mounted", EventMounted.String())
	require.Equal(t, "unmounted", EventUnmounted.String())
	require.Equal(t, "mount_failed", EventMountFailed.String())
	require.Equal(t, "unknown", Event(0).String())
}
