package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func twoDrives(t *testing.T) (*VFS, *fakeFS, *fakeFS) {
	a, b := newFake(), newFake()
	v := New([]*Drive{
		{Prefix: "A:", FS: a, Fixed: true},
		{Prefix: "B:", FS: b},
	})
	return v, a, b
}

func TestFindRequiresMountOrForce(t *testing.T) {
	v, _, _ := twoDrives(t)
	_, err := v.Find("A:/x", false)
	require.Equal(t, ErrNotFound, err)
	i, err := v.Find("A:/x", true)
	require.Nil(t, err)
	require.Equal(t, 0, i)

	require.Nil(t, v.Mount("B:"))
	i, err = v.Find("b:/x", false)
	require.Nil(t, err)
	require.Equal(t, 1, i)

	_, err = v.Find("C:/x", true)
	require.Equal(t, ErrNotFound, err)
	_, err = v.Find("/x", true)
	require.Equal(t, ErrNotFound, err)
	_, err = v.Find("", true)
	require.Equal(t, ErrNotFound, err)
}

func TestFindSoleDrive(t *testing.T) {
	v := New([]*Drive{{Prefix: "FLASH:", FS: newFake()}})
	_, err := v.Find("/log.txt", false)
	require.Equal(t, ErrNotFound, err)
	i, err := v.Find("/log.txt", true)
	require.Nil(t, err)
	require.Equal(t, 0, i)
	_, err = v.Find("OTHER:/log.txt", true)
	require.Equal(t, ErrNotFound, err)

	require.Nil(t, v.Mount("FLASH:"))
	d, _, name, rooted, err := v.resolve("/logs/today.txt", false)
	require.Nil(t, err)
	require.Equal(t, "FLASH:", d.Prefix)
	require.Equal(t, "logs/today.txt", name)
	require.True(t, rooted)
	_, _, name, _, err = v.resolve("flash:/x", false)
	require.Nil(t, err)
	require.Equal(t, "x", name)
}

func TestSoleDriveWithoutSeparator(t *testing.T) {
	v := New([]*Drive{{Prefix: "flash", FS: newFake()}})
	require.Nil(t, v.Mount("flash"))
	d, _, name, rooted, err := v.resolve("flash/x", false)
	require.Nil(t, err)
	require.Equal(t, "flash", d.Prefix)
	require.Equal(t, "x", name)
	require.True(t, rooted)
	_, _, name, _, err = v.resolve("FLASH/logs/x", false)
	require.Nil(t, err)
	require.Equal(t, "logs/x", name)
	_, _, name, _, err = v.resolve("/x", false)
	require.Nil(t, err)
	require.Equal(t, "x", name)

	put(t, v, "flash/x.txt", "one")
	info, err := v.Stat("flash/x.txt")
	require.Nil(t, err)
	require.Equal(t, "x.txt", info.Name)

	two := New([]*Drive{{Prefix: "flash", FS: newFake()}, {Prefix: "sd", FS: newFake()}})
	require.Nil(t, two.MountAll())
	put(t, two, "flash/x.txt", "one")
	info, err = two.Stat("flash/x.txt")
	require.Nil(t, err)
	require.Equal(t, "x.txt", info.Name)
}

func TestFindTiesGoToFirstRegistered(t *testing.T) {
	v := New([]*Drive{
		{Prefix: "SD", FS: newFake()},
		{Prefix: "SD1:", FS: newFake()},
	})
	i, err := v.Find("SD1:/x", true)
	require.Nil(t, err)
	require.Equal(t, 0, i)
}

func TestResolve(t *testing.T) {
	v, _, _ := twoDrives(t)
	require.Nil(t, v.MountAll())
	cases := []struct {
		path   string
		name   string
		rooted bool
	}{
		{"A:", "", true},
		{"A:/", "", true},
		{"A:\\", "", true},
		{"A:/dir/file.txt", "dir/file.txt", true},
		{"a:\\dir\\file.txt", "dir/file.txt", true},
		{"A://dir//./file.txt", "dir/file.txt", true},
		{"A:file.txt", "file.txt", false},
	}
	for _, c := range cases {
		d, pos, name, rooted, err := v.resolve(c.path, false)
		require.Nil(t, err, c.path)
		require.Equal(t, "A:", d.Prefix, c.path)
		require.Equal(t, 0, pos, c.path)
		require.Equal(t, c.name, name, c.path)
		require.Equal(t, c.rooted, rooted, c.path)
	}
}

func TestVolumeAndDrive(t *testing.T) {
	v, a, _ := twoDrives(t)
	p, ok := v.Volume(1)
	require.True(t, ok)
	require.Equal(t, "B:", p)
	_, ok = v.Volume(2)
	require.False(t, ok)
	_, ok = v.Volume(-1)
	require.False(t, ok)

	d, err := v.Drive("a:")
	require.Nil(t, err)
	require.Equal(t, a, d.FS)
	require.False(t, d.Mounted())
	require.Equal(t, KindFAT, d.Kind())
	require.Equal(t, KindNone, (&Drive{}).Kind())
	require.Len(t, v.Drives(), 2)
}

func TestFolderNumbers(t *testing.T) {
	d := &Drive{}
	require.Zero(t, d.folder(""))
	first := d.folder("logs")
	require.Equal(t, uint32(1), first)
	require.Equal(t, uint32(2), d.folder("logs/old"))
	require.Equal(t, first, d.folder("LOGS"))
}

func TestClean(t *testing.T) {
	require.Equal(t, "", clean(""))
	require.Equal(t, "", clean("/"))
	require.Equal(t, "a/b", clean("\\a\\b\\"))
	require.Equal(t, "b", clean("/a/../b"))
	require.Equal(t, "", parent("file"))
	require.Equal(t, "a/b", parent("a/b/file"))
}
