package flat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rstms/vfs"
	"github.com/rstms/vfs/media"
)

var epoch = time.Date(2022, 8, 1, 6, 0, 0, 0, time.UTC)

func newMedia() *media.Media {
	m := media.NewMemory(media.Geometry{BlockSize: SectorSize, Blocks: 16})
	m.Clock = func() time.Time { return epoch }
	return m
}

func newMounted(t *testing.T) *FileSystem {
	f := New(newMedia(), "FLASH")
	f.Now = func() time.Time { return epoch }
	require.Nil(t, f.Format())
	require.Nil(t, f.Mount(true))
	return f
}

func writeFile(t *testing.T, f *FileSystem, name, data string) {
	s, err := f.Open(name, vfs.Write|vfs.Create|vfs.Truncate)
	require.Nil(t, err)
	n, err := s.Write([]byte(data))
	require.Nil(t, err)
	require.Equal(t, len(data), n)
	require.Nil(t, s.Close())
}

func TestErrno(t *testing.T) {
	require.Nil(t, errno(nil))
	require.Nil(t, errno(OK))
	cases := map[Code]vfs.Errno{
		-108: vfs.ErrNoFilesystem,
		-110: vfs.ErrInvalid,
		-139: vfs.ErrInvalid,
		-111: vfs.ErrNoSpace,
		-113: vfs.ErrNoSpace,
		-124: vfs.ErrNotFound,
		-129: vfs.ErrBadHandle,
		-142: vfs.ErrBadHandle,
		-143: vfs.ErrBadHandle,
		-147: vfs.ErrBusy,
		-148: vfs.ErrBusy,
		-127: vfs.ErrReadOnly,
		-118: vfs.ErrReadOnly,
		-100: vfs.ErrIO,
	}
	for code, want := range cases {
		require.Equal(t, want, errno(code), "code %d", code)
	}
	require.Equal(t, vfs.ErrIO, errno(vfs.ErrBusy))
}

func TestShorten(t *testing.T) {
	require.Equal(t, "short.txt", Shorten("short.txt"))
	require.Equal(t, "exactly_twenty_one_ch", Shorten("exactly_twenty_one_ch"))
	long := Shorten("a_very_long_logfile_name.txt")
	require.Equal(t, "a_very_long_log~1.txt", long)
	require.Len(t, long, NameLen)
	require.Equal(t, "abcdefghijklmnopqrs~1", Shorten("abcdefghijklmnopqrstuvwxyz"))
}

func TestMountUnformatted(t *testing.T) {
	f := New(newMedia(), "FLASH")
	require.Equal(t, vfs.ErrNoFilesystem, f.Mount(true))
	require.Nil(t, f.Instance())
}

func TestWriteOnce(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "data.bin", "hello")

	s, err := f.Open("data.bin", vfs.ReadWrite)
	require.Nil(t, err)
	_, err = s.Write([]byte("more"))
	require.Equal(t, vfs.ErrReadOnly, err)
	buf := make([]byte, 16)
	n, err := s.Read(buf)
	require.Nil(t, err)
	require.Equal(t, "hello", string(buf[:n]))
	n, err = s.Read(buf)
	require.Nil(t, err)
	require.Zero(t, n)
	require.Nil(t, s.Close())
}

func TestAppendRejected(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "log.txt", "abc")

	_, err := f.Open("log.txt", vfs.Write|vfs.Append)
	require.Equal(t, vfs.ErrReadOnly, err)
	_, err = f.Open("log.txt", vfs.Write|vfs.Create|vfs.Append)
	require.Equal(t, vfs.ErrReadOnly, err)

	s, err := f.Open("log.txt", vfs.Write|vfs.Append|vfs.Truncate)
	require.Nil(t, err)
	_, err = s.Write([]byte("xyz"))
	require.Nil(t, err)
	require.Nil(t, s.Close())

	s, err = f.Open("fresh.txt", vfs.Write|vfs.Create|vfs.Append)
	require.Nil(t, err)
	_, err = s.Write([]byte("new"))
	require.Nil(t, err)
	require.Nil(t, s.Close())
	info, err := f.Stat("fresh.txt")
	require.Nil(t, err)
	require.Equal(t, uint64(3), info.Size)
}

func TestCreateKeepsIndexSlot(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "a", "1")
	writeFile(t, f, "b", "22")
	writeFile(t, f, "a", "333")

	info, err := f.Stat("a")
	require.Nil(t, err)
	require.Equal(t, uint32(1), info.Inode)
	require.Equal(t, uint64(3), info.Size)
	require.Equal(t, epoch, info.Created)
	require.Equal(t, epoch, info.Modified)
	require.Equal(t, vfs.AttrRead|vfs.AttrWrite|vfs.AttrRegular, info.Attr)
	require.Equal(t, uint32(1), info.Blocks)
}

func TestExclusive(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "x", "x")
	_, err := f.Open("x", vfs.Write|vfs.Create|vfs.Exclusive)
	require.Equal(t, vfs.ErrExists, err)
	_, err = f.Open("missing", vfs.Read)
	require.Equal(t, vfs.ErrNotFound, err)
	_, err = f.Open("dir/x", vfs.Read)
	require.Equal(t, vfs.ErrNotFound, err)
}

func TestSeekClamps(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "s", "0123456789")
	s, err := f.Open("s", vfs.Read)
	require.Nil(t, err)
	require.Nil(t, s.Seek(4))
	require.Equal(t, int64(4), s.Tell())
	require.Nil(t, s.Seek(50))
	require.Equal(t, int64(10), s.Tell())
	require.Equal(t, vfs.ErrInvalid, s.Truncate(2))
	require.Nil(t, s.Sync())
	require.Nil(t, s.Close())
}

func TestDirectories(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "one", "1")
	writeFile(t, f, "two", "2")
	writeFile(t, f, "three", "3")
	require.Nil(t, f.Remove("two"))
	require.Equal(t, vfs.ErrNotFound, f.Remove("two"))
	require.Equal(t, vfs.ErrInvalid, f.Mkdir("sub"))

	_, err := f.OpenDir("one")
	require.Equal(t, vfs.ErrNotDir, err)
	_, err = f.OpenDir("none")
	require.Equal(t, vfs.ErrNotFound, err)

	c, err := f.OpenDir("")
	require.Nil(t, err)
	var names []string
	var inodes []uint32
	for {
		info, err := c.Next()
		if err == vfs.ErrNotFound {
			break
		}
		require.Nil(t, err)
		require.True(t, info.Attr&vfs.AttrExec != 0)
		names = append(names, info.Name)
		inodes = append(inodes, info.Inode)
	}
	require.Equal(t, []string{"one", "three"}, names)
	require.Equal(t, []uint32{1, 3}, inodes)
	require.Nil(t, c.Close())
}

func TestRename(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "old", "payload")
	writeFile(t, f, "victim", "gone")
	require.Nil(t, f.Rename("old", "victim"))
	_, err := f.Stat("old")
	require.Equal(t, vfs.ErrNotFound, err)

	s, err := f.Open("victim", vfs.Read)
	require.Nil(t, err)
	buf := make([]byte, 16)
	n, err := s.Read(buf)
	require.Nil(t, err)
	require.Equal(t, "payload", string(buf[:n]))
	require.Nil(t, s.Close())

	require.Nil(t, f.Rename("victim", "victim"))
	info, err := f.Stat("victim")
	require.Nil(t, err)
	require.Equal(t, uint64(7), info.Size)
}

func TestLabelAndTouch(t *testing.T) {
	f := newMounted(t)
	label, err := f.Label()
	require.Nil(t, err)
	require.Equal(t, "FLASH", label)
	require.Equal(t, vfs.ErrInvalid, f.SetLabel("OTHER"))
	writeFile(t, f, "t", "t")
	require.Nil(t, f.Touch("t", &vfs.Info{Modified: time.Now()}))
	info, err := f.Stat("t")
	require.Nil(t, err)
	require.Equal(t, epoch, info.Modified)
}

func TestUsage(t *testing.T) {
	f := newMounted(t)
	writeFile(t, f, "big", string(make([]byte, SectorSize+1)))
	u, err := f.Usage()
	require.Nil(t, err)
	require.Equal(t, uint32(SectorSize), u.BlockSize)
	require.Equal(t, uint32(16), u.Blocks)
	require.Equal(t, uint32(14), u.Free)
	require.Equal(t, epoch, u.Created)

	root, err := f.Stat("")
	require.Nil(t, err)
	require.Equal(t, "FLASH", root.Name)
	require.True(t, root.IsDir())
	require.Equal(t, vfs.AttrDir|vfs.AttrRead|vfs.AttrWrite|vfs.AttrFlat, root.Attr)
	require.Equal(t, uint64(2*SectorSize), root.Size)
}

func TestFlashFull(t *testing.T) {
	m := media.NewMemory(media.Geometry{BlockSize: 16, Blocks: 2})
	f := New(m, "TINY")
	require.Nil(t, f.Format())
	require.Nil(t, f.Mount(false))
	s, err := f.Open("f", vfs.Write|vfs.Create)
	require.Nil(t, err)
	_, err = s.Write(make([]byte, 32))
	require.Nil(t, err)
	_, err = s.Write([]byte{1})
	require.Equal(t, vfs.ErrNoSpace, err)
	require.Nil(t, s.Close())
}

func TestNativeChecksum(t *testing.T) {
	m := newMedia()
	fs := NewFS(m)
	require.Nil(t, fs.Format(FormatSoft))
	require.Equal(t, ErrFormatParam, fs.Format(FormatMode(7)))
	require.Nil(t, fs.Start())
	d, err := fs.Open("sum", OpenWrite|OpenCreate|OpenCRC)
	require.Nil(t, err)
	_, err = d.Write([]byte("abcd"))
	require.Nil(t, err)
	_, err = d.Write([]byte("efgh"))
	require.Nil(t, err)
	require.Nil(t, d.Close())
	require.Equal(t, uint32(0x18C4859C), d.CRC)
	require.Equal(t, ErrNotOpen, d.Close())

	st, flags, err := fs.Info(0)
	require.Nil(t, err)
	require.Equal(t, StatActive|StatCRC, flags)
	require.Equal(t, uint32(0x18C4859C), st.CRC)
	_, flags, err = fs.Info(1)
	require.Nil(t, err)
	require.Zero(t, flags)
	_, _, err = fs.Info(MaxFiles)
	require.Equal(t, ErrIndexRange, err)

	w, err := fs.Open("sum", OpenWrite)
	require.Nil(t, err)
	require.Equal(t, ErrFileFlags, w.Delete())
	require.Nil(t, w.Close())
	_, err = fs.Open("a_name_longer_than_21_chars", OpenRead)
	require.Equal(t, ErrNameLength, err)
}
