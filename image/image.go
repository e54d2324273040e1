package image

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/rstms/vfs"
)

type FileRecord struct {
	Name     string
	Dir      bool
	Hidden   bool
	System   bool
	ReadOnly bool
	Size     uint64
	Modified time.Time
}

// Image is one drive of a VFS treated as a whole, the unit the import,
// export and rewrite tools work on.
type Image struct {
	Prefix string
	v      *vfs.VFS
}

// OpenImage mounts the drive if needed.
func OpenImage(v *vfs.VFS, prefix string) (*Image, error) {
	d, err := v.Drive(prefix)
	if err != nil {
		return nil, Fatal(err)
	}
	if !d.Mounted() {
		err := v.Mount(prefix)
		if err != nil && !d.Mounted() {
			return nil, Fatal(err)
		}
	}
	return &Image{Prefix: d.Prefix, v: v}, nil
}

// CreateImage formats the drive, mounts it and sets label when the backend
// keeps one.
func CreateImage(v *vfs.VFS, prefix, label string) (*Image, error) {
	d, err := v.Drive(prefix)
	if err != nil {
		return nil, Fatal(err)
	}
	if d.Mounted() {
		if err := v.Unmount(prefix); err != nil {
			return nil, Fatal(err)
		}
	}
	if err := v.Format(prefix); err != nil {
		return nil, Fatal(err)
	}
	i, err := OpenImage(v, prefix)
	if err != nil {
		return nil, Fatal(err)
	}
	if label != "" {
		err := v.SetLabel(prefix, label)
		if err != nil && vfs.Code(err) != vfs.ErrInvalid {
			return nil, Fatal(err)
		}
	}
	return i, nil
}

func (i *Image) Close() error {
	if err := i.v.Unmount(i.Prefix); err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) path(name string) string {
	return i.Prefix + "/" + strings.Trim(filepath.ToSlash(name), "/")
}

func (i *Image) Label() (string, error) {
	label, err := i.v.Label(i.Prefix)
	if err != nil {
		return "", Fatal(err)
	}
	return label, nil
}

func record(name string, info vfs.Info) FileRecord {
	return FileRecord{
		Name:     name,
		Dir:      info.IsDir(),
		Hidden:   info.Attr&vfs.AttrHidden != 0,
		System:   info.Attr&vfs.AttrSystem != 0,
		ReadOnly: info.Attr&vfs.AttrWrite == 0,
		Size:     info.Size,
		Modified: info.Modified,
	}
}

// ScanFiles lists every file and directory, parents before children.
func (i *Image) ScanFiles() ([]FileRecord, error) {
	records := []FileRecord{}
	err := i.v.Walk(i.Prefix+"/", func(path string, info vfs.Info) error {
		records = append(records, record(strings.TrimPrefix(path, i.Prefix), info))
		return nil
	})
	if err != nil {
		return []FileRecord{}, Fatal(err)
	}
	return records, nil
}

// AddFile writes srcPathname from src to dstPathname and carries over its
// modification time.
func (i *Image) AddFile(dstPathname string, src afero.Fs, srcPathname string) error {
	srcInfo, err := src.Stat(srcPathname)
	if err != nil {
		return Fatal(err)
	}
	in, err := src.Open(srcPathname)
	if err != nil {
		return Fatal(err)
	}
	defer in.Close()
	count, err := i.write(dstPathname, in)
	if err != nil {
		return Fatal(err)
	}
	if count != srcInfo.Size() {
		return Fatalf("write count mismatch; expected %d, wrote %d", srcInfo.Size(), count)
	}
	mtime := srcInfo.ModTime()
	if err := i.v.Touch(i.path(dstPathname), &vfs.Info{Created: mtime, Modified: mtime}); err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) write(name string, r io.Reader) (int64, error) {
	dst, err := i.v.Open(i.path(name), vfs.Write|vfs.Create|vfs.Truncate)
	if err != nil {
		return 0, err
	}
	count, err := io.Copy(dst, r)
	if err != nil {
		dst.Close()
		return count, err
	}
	return count, dst.Close()
}

func (i *Image) IsDir(name string) (bool, error) {
	info, err := i.v.Stat(i.path(name))
	if vfs.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, Fatal(err)
	}
	return info.IsDir(), nil
}

func (i *Image) Mkdir(pathname string) error {
	exists, err := i.IsDir(pathname)
	if err != nil {
		return Fatal(err)
	}
	if exists {
		return Fatalf("directory exists: %s", pathname)
	}
	if err := i.v.Mkdir(i.path(pathname)); err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) ReadFile(filename string) ([]byte, error) {
	src, err := i.v.Open(i.path(filename), vfs.Read)
	if err != nil {
		return []byte{}, Fatal(err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return []byte{}, Fatal(err)
	}
	return data, nil
}

// Import writes everything below root in src to the drive.
func (i *Image) Import(src afero.Fs, root string) error {
	err := afero.Walk(src, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return Fatal(err)
		}
		if path == root {
			return nil
		}
		dst, err := filepath.Rel(root, path)
		if err != nil {
			return Fatal(err)
		}
		if info.IsDir() {
			return i.Mkdir(dst)
		}
		return i.AddFile(dst, src, path)
	})
	if err != nil {
		return Fatal(err)
	}
	return nil
}

// Export writes the drive contents below root in dst.
func (i *Image) Export(dst afero.Fs, root string) error {
	records, err := i.ScanFiles()
	if err != nil {
		return Fatal(err)
	}
	if err := dst.MkdirAll(root, 0700); err != nil {
		return Fatal(err)
	}
	for _, r := range records {
		target := filepath.Join(root, filepath.FromSlash(r.Name))
		if r.Dir {
			if err := dst.MkdirAll(target, 0700); err != nil {
				return Fatal(err)
			}
			continue
		}
		data, err := i.ReadFile(r.Name)
		if err != nil {
			return Fatal(err)
		}
		if err := afero.WriteFile(dst, target, data, 0600); err != nil {
			return Fatal(err)
		}
		if !r.Modified.IsZero() {
			if err := dst.Chtimes(target, r.Modified, r.Modified); err != nil {
				return Fatal(err)
			}
		}
	}
	return nil
}

// SetAttr turns the hidden or system bit of a file on or off.
func (i *Image) SetAttr(filename string, attr vfs.Attr, state bool) error {
	if attr&^(vfs.AttrHidden|vfs.AttrSystem) != 0 {
		return Fatalf("unsupported attribute: %s", attr)
	}
	current, err := i.GetAttr(filename)
	if err != nil {
		return Fatal(err)
	}
	next := current & (vfs.AttrHidden | vfs.AttrSystem)
	if state {
		next |= attr
	} else {
		next &^= attr
	}
	// a zero Attr leaves the bits alone, the regular bit forces an update
	if err := i.v.Touch(i.path(filename), &vfs.Info{Attr: next | vfs.AttrRegular}); err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) GetAttr(filename string) (vfs.Attr, error) {
	info, err := i.v.Stat(i.path(filename))
	if err != nil {
		return 0, Fatal(err)
	}
	return info.Attr, nil
}
