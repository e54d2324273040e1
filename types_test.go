package vfs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestErrnoCode(t *testing.T) {
	require.Equal(t, Errno(0), Code(nil))
	require.Equal(t, ErrNotFound, Code(ErrNotFound))
	require.Equal(t, ErrNoSpace, Code(errors.Wrap(ErrNoSpace, "write A:/f")))
	require.Equal(t, ErrIO, Code(errors.New("plain")))
	require.True(t, IsNotFound(errors.Wrapf(ErrNotFound, "open %s", "A:/x")))
	require.False(t, IsNotFound(nil))
	require.Equal(t, "no such file or directory", ErrNotFound.Error())
	require.Equal(t, "errno -99", Errno(-99).Error())
	require.Equal(t, -6, int(ErrNoFilesystem))
}

func TestFlagHas(t *testing.T) {
	require.True(t, ReadWrite.Has(Read))
	require.True(t, ReadWrite.Has(Write))
	require.False(t, Read.Has(ReadWrite))
	require.True(t, (Write | Create | Truncate).Has(Create|Truncate))
}

func TestAttrString(t *testing.T) {
	require.Equal(t, "drwx----", (AttrDir | AttrRead | AttrWrite | AttrExec).String())
	require.Equal(t, "-r--hsfm", (AttrRead | AttrHidden | AttrSystem | AttrFlat | AttrRemovable).String())
	require.True(t, AttrDir.IsDir())
	require.False(t, AttrRegular.IsDir())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "FatFS", KindFAT.String())
	require.Equal(t, "LittleFS", KindLog.String())
	require.Equal(t, "JesFS", KindFlat.String())
	require.Equal(t, "root", KindRoot.String())
	require.Equal(t, "none", KindNone.String())
}

func TestInfoCorrupt(t *testing.T) {
	erased := Info{Name: "\xff\xff\xff\xff\xff", Size: 0xFFFFFFFF}
	require.True(t, erased.Corrupt())
	short := Info{Name: "\xff\xff\xff\xff", Size: 0xFFFFFFFF}
	require.False(t, short.Corrupt())
	named := Info{Name: "\xff\xff\xff\xffA", Size: 0xFFFFFFFF}
	require.False(t, named.Corrupt())
	sized := Info{Name: "\xff\xff\xff\xff\xff", Size: 12}
	require.False(t, sized.Corrupt())
}

func TestUsage(t *testing.T) {
	u := Usage{Blocks: 10, BlockSize: 4096, Free: 4}
	require.Equal(t, uint64(40960), u.Total())
	require.Equal(t, uint64(16384), u.Available())
	require.Equal(t, uint64(24576), u.Used())
	require.Equal(t, uint32(0), Blocks(0, 512))
	require.Equal(t, uint32(1), Blocks(1, 512))
	require.Equal(t, uint32(2), Blocks(513, 512))
	require.Equal(t, uint32(0), Blocks(10, 0))
}
