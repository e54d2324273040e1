package crc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnownWord(t *testing.T) {
	require.Equal(t, uint32(0xDF8A8A2B), Fold(0, []uint32{0x12345678}, true))
	require.Equal(t, uint32(0x18C4859C), Checksum([]byte("abcdefgh")))
}

func TestInitResets(t *testing.T) {
	a := Fold(0x1234, []uint32{1, 2, 3}, true)
	b := Fold(Init, []uint32{1, 2, 3}, false)
	require.Equal(t, a, b)
}

func TestWordsPadding(t *testing.T) {
	require.Equal(t, []uint32{0x64636261, 0x00000065}, Words([]byte("abcde")))
	require.Empty(t, Words(nil))
}

func TestDigestSplitWrites(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	want := Checksum(data)
	for split := 0; split <= len(data); split++ {
		d := New()
		_, err := d.Write(data[:split])
		require.Nil(t, err)
		_, err = d.Write(data[split:])
		require.Nil(t, err)
		require.Equal(t, want, d.Sum32(), "split=%d", split)
	}
}

func TestDigestDeterminism(t *testing.T) {
	d := New()
	d.Write([]byte("content"))
	first := d.Sum32()
	require.Equal(t, first, d.Sum32())
	d.Reset()
	d.Write([]byte("content"))
	require.Equal(t, first, d.Sum32())
	d.Write([]byte("!"))
	require.NotEqual(t, first, d.Sum32())
	require.Equal(t, 4, len(d.Sum(nil)))
}
