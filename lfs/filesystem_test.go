package lfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rstms/vfs"
	"github.com/rstms/vfs/media"
)

var epoch = time.Date(2023, 5, 17, 8, 30, 1, 0, time.UTC)

func newMounted(t *testing.T) *FileSystem {
	m := media.NewMemory(media.Geometry{BlockSize: 256, Blocks: 64})
	f := New(m, Config{})
	f.Now = func() time.Time { return epoch }
	require.Nil(t, f.Format())
	require.Nil(t, f.Mount(true))
	return f
}

func TestErrno(t *testing.T) {
	require.Nil(t, errno(nil))
	require.Nil(t, errno(ErrOK))
	require.Equal(t, vfs.ErrNotFound, errno(ErrNoEnt))
	require.Equal(t, vfs.ErrNotFound, errno(ErrNoAttr))
	require.Equal(t, vfs.ErrIO, errno(ErrCorrupt))
	require.Equal(t, vfs.ErrNotEmpty, errno(ErrNotEmpty))
	require.Equal(t, vfs.ErrNoSpace, errno(ErrNoSpc))
	require.Equal(t, vfs.ErrTooLarge, errno(ErrFBig))
	require.Equal(t, vfs.ErrIO, errno(vfs.ErrBusy))
}

func TestOpenFlags(t *testing.T) {
	require.Equal(t, RdOnly, openFlags(vfs.Read))
	require.Equal(t, RdWr|Creat|Trunc, openFlags(vfs.ReadWrite|vfs.Create|vfs.Truncate))
	require.Equal(t, WrOnly|Creat|Excl, openFlags(vfs.Write|vfs.Create|vfs.Exclusive))
	require.Equal(t, WrOnly, openFlags(vfs.Write|vfs.Append))
}

func TestMountFailure(t *testing.T) {
	m := media.NewMemory(media.Geometry{BlockSize: 256, Blocks: 64})
	f := New(m, Config{})
	require.Equal(t, vfs.ErrNoFilesystem, f.Mount(true))
	require.Nil(t, f.Instance())
	require.Equal(t, vfs.ErrNotFound, f.Unmount())
}

func TestCallerOwnedInstance(t *testing.T) {
	m := media.NewMemory(media.Geometry{BlockSize: 256, Blocks: 64})
	fs := NewFS(m, Config{})
	f := NewWithFS(fs)
	require.Nil(t, f.Format())
	require.Nil(t, f.Mount(false))
	require.Nil(t, f.Unmount())
	require.Equal(t, fs, f.Instance())
}

func TestTimestampsInAttributes(t *testing.T) {
	f := newMounted(t)
	u, err := f.Usage()
	require.Nil(t, err)
	require.Equal(t, epoch, u.Created)
	require.Equal(t, uint32(64), u.Blocks)
	require.Equal(t, uint32(64), u.Free)

	s, err := f.Open("log.txt", vfs.Write|vfs.Create)
	require.Nil(t, err)
	_, err = s.Write([]byte("entry"))
	require.Nil(t, err)
	later := epoch.Add(time.Hour)
	s.(vfs.ModTimer).SetModTime(later)
	require.Nil(t, s.Close())

	info, err := f.Stat("log.txt")
	require.Nil(t, err)
	require.Equal(t, epoch, info.Created)
	require.Equal(t, later, info.Modified)
	require.Equal(t, uint64(5), info.Size)
	require.Equal(t, uint32(1), info.Blocks)
	require.Equal(t, vfs.AttrRead|vfs.AttrWrite|vfs.AttrExec|vfs.AttrRegular, info.Attr)
}

func TestMkdirStampsCreation(t *testing.T) {
	f := newMounted(t)
	require.Nil(t, f.Mkdir("logs"))
	info, err := f.Stat("logs")
	require.Nil(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, epoch, info.Created)
	require.Equal(t, vfs.ErrExists, f.Mkdir("logs"))
	require.Equal(t, vfs.ErrNotFound, f.Mkdir("no/such"))
}

func TestTouch(t *testing.T) {
	f := newMounted(t)
	s, err := f.Open("f", vfs.Write|vfs.Create)
	require.Nil(t, err)
	require.Nil(t, s.Close())
	when := time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)
	require.Nil(t, f.Touch("f", &vfs.Info{Created: when, Modified: when}))
	info, err := f.Stat("f")
	require.Nil(t, err)
	require.Equal(t, when, info.Created)
	require.Equal(t, when, info.Modified)
	require.Equal(t, vfs.ErrNotFound, f.Touch("missing", &vfs.Info{Modified: when}))
}

func TestLabel(t *testing.T) {
	f := newMounted(t)
	label, err := f.Label()
	require.Nil(t, err)
	require.Empty(t, label)
	require.Nil(t, f.SetLabel("Config"))
	label, err = f.Label()
	require.Nil(t, err)
	require.Equal(t, "Config", label)
}

func TestCursorSkipsDots(t *testing.T) {
	f := newMounted(t)
	require.Nil(t, f.Mkdir("d"))
	s, err := f.Open("d/x", vfs.Write|vfs.Create)
	require.Nil(t, err)
	require.Nil(t, s.Close())
	c, err := f.OpenDir("d")
	require.Nil(t, err)
	info, err := c.Next()
	require.Nil(t, err)
	require.Equal(t, "x", info.Name)
	require.Equal(t, epoch, info.Created)
	_, err = c.Next()
	require.Equal(t, vfs.ErrNotFound, err)
	require.Nil(t, c.Close())
}

func TestRemoveAndRename(t *testing.T) {
	f := newMounted(t)
	require.Nil(t, f.Mkdir("d"))
	s, err := f.Open("d/x", vfs.Write|vfs.Create)
	require.Nil(t, err)
	require.Nil(t, s.Close())
	require.Equal(t, vfs.ErrNotEmpty, f.Remove("d"))
	require.Nil(t, f.Rename("d/x", "y"))
	info, err := f.Stat("y")
	require.Nil(t, err)
	require.Equal(t, epoch, info.Created)
	require.Nil(t, f.Remove("d"))
	require.Equal(t, vfs.ErrNotFound, f.Remove("d"))
}

func TestSeekPastEnd(t *testing.T) {
	f := newMounted(t)
	s, err := f.Open("s", vfs.ReadWrite|vfs.Create)
	require.Nil(t, err)
	require.Nil(t, s.Seek(10))
	require.Equal(t, int64(10), s.Tell())
	n, err := s.Read(make([]byte, 4))
	require.Nil(t, err)
	require.Zero(t, n)
	_, err = s.Write([]byte("z"))
	require.Nil(t, err)
	require.Equal(t, int64(11), s.Size())
	require.Nil(t, s.Truncate(3))
	require.Equal(t, int64(3), s.Size())
	require.Nil(t, s.Close())
}

func TestNativeDirListsDots(t *testing.T) {
	m := media.NewMemory(media.Geometry{BlockSize: 256, Blocks: 64})
	fs := NewFS(m, Config{})
	require.Nil(t, fs.Format())
	require.Nil(t, fs.Mount())
	d, err := fs.DirOpen("")
	require.Nil(t, err)
	var info Info
	var names []string
	for {
		ok, err := d.Read(&info)
		require.Nil(t, err)
		if !ok {
			break
		}
		names = append(names, info.Name)
	}
	require.Equal(t, []string{".", ".."}, names)
	require.Nil(t, d.Close())
	require.Equal(t, ErrBadF, d.Close())
}
