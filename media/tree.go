package media

import (
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Resolve maps a driver path onto the stored path. With fold set each
// component is matched case-insensitively against the existing entries;
// missing trailing components are kept as given.
func (m *Media) Resolve(name string, fold bool) string {
	name = key(name)
	if !fold || name == "" {
		return "/" + name
	}
	resolved := ""
	parts := strings.Split(name, "/")
	for i, part := range parts {
		match := part
		if entries, err := afero.ReadDir(m.fs, "/"+resolved); err == nil {
			for _, e := range entries {
				if strings.EqualFold(e.Name(), part) {
					match = e.Name()
					break
				}
			}
		}
		if i == 0 {
			resolved = match
		} else {
			resolved = resolved + "/" + match
		}
	}
	return "/" + resolved
}

// Stat stats a stored path.
func (m *Media) Stat(stored string) (os.FileInfo, error) {
	return m.fs.Stat(stored)
}

// List returns the entries of a stored directory path without the
// superblock.
func (m *Media) List(stored string) ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(m.fs, stored)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if path.Clean(stored) == "/" && e.Name() == SuperName {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Used counts the blocks taken by entries: each file rounds up to whole
// blocks, each directory takes one.
func (m *Media) Used() (uint32, error) {
	var used uint32
	err := afero.Walk(m.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		switch {
		case p == "/":
		case info.Name() == SuperName && path.Dir(p) == "/":
		case info.IsDir():
			used++
		default:
			used += blocks(info.Size(), m.geom.BlockSize)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "media: usage")
	}
	return used, nil
}

// Free returns the unused block count.
func (m *Media) Free() (uint32, error) {
	used, err := m.Used()
	if err != nil {
		return 0, err
	}
	if used >= m.geom.Blocks {
		return 0, nil
	}
	return m.geom.Blocks - used, nil
}

// Fits reports whether a file can grow from size to grown bytes.
func (m *Media) Fits(size, grown int64) (bool, error) {
	if m.geom.Blocks == 0 || grown <= size {
		return true, nil
	}
	free, err := m.Free()
	if err != nil {
		return false, err
	}
	need := blocks(grown, m.geom.BlockSize) - blocks(size, m.geom.BlockSize)
	return need <= free, nil
}

func blocks(n int64, size uint32) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + int64(size) - 1) / int64(size))
}
