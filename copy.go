package vfs

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/rstms/vfs/crc"
)

// ChunkSize is the transfer unit of Copy and CRC.
const ChunkSize = 128

// destination expands a directory style dst: a trailing separator takes
// the source base name, a bare prefix takes the whole source path.
func destination(src, dst string) string {
	switch {
	case strings.HasSuffix(dst, "/") || strings.HasSuffix(dst, "\\"):
		base := src
		if i := strings.LastIndexAny(src, "/\\:"); i >= 0 {
			base = src[i+1:]
		}
		return dst + base
	case strings.HasSuffix(dst, ":"):
		if i := strings.IndexAny(src, "/\\"); i >= 0 {
			return dst + src[i:]
		}
		if i := strings.LastIndex(src, ":"); i >= 0 {
			return dst + "/" + src[i+1:]
		}
		return dst + "/" + src
	}
	return dst
}

// Copy duplicates a file, possibly across drives, then carries over its
// timestamps and attributes. A failure to carry the metadata is returned
// after the data is in place.
func (v *VFS) Copy(src, dst string) error {
	dst = destination(src, dst)
	info, err := v.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return ErrIsDir
	}
	in, err := v.Open(src, Read)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := v.Open(dst, Write|Create|Truncate)
	if err != nil {
		return err
	}
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s", src)
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := v.Touch(dst, &info); err != nil {
		return errors.Wrapf(err, "copy %s: metadata", dst)
	}
	return nil
}

// Move copies src to dst and removes src once the copy fully succeeded.
func (v *VFS) Move(src, dst string) error {
	if err := v.Copy(src, dst); err != nil {
		return err
	}
	return v.Remove(src)
}

// CRC checksums a file: the 64-bit size as two words, low first, then the
// content in ChunkSize reads, each zero padded to a word boundary.
func (v *VFS) CRC(path string) (uint32, error) {
	f, err := v.Open(path, Read)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	sum := crc.Fold(0, []uint32{uint32(size), uint32(uint64(size) >> 32)}, true)
	buf := make([]byte, ChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sum = crc.Fold(sum, crc.Words(buf[:n]), false)
		}
		if err == io.EOF {
			return sum, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
