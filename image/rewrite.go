package image

import (
	"github.com/rstms/vfs"
)

// RewriteImage formats drive prefix of v and recreates the contents of src
// on it, keeping the label, the modification times and the hidden and
// system bits. The drives may use different backends.
func RewriteImage(v *vfs.VFS, prefix string, src *Image) (*Image, error) {
	label, err := src.Label()
	if err != nil {
		return nil, Fatal(err)
	}
	records, err := src.ScanFiles()
	if err != nil {
		return nil, Fatal(err)
	}
	dst, err := CreateImage(v, prefix, label)
	if err != nil {
		return nil, Fatal(err)
	}
	for _, record := range records {
		if record.Dir {
			if err := dst.Mkdir(record.Name); err != nil {
				return nil, Fatal(err)
			}
			continue
		}
		if err := copyFile(dst, src, record); err != nil {
			return nil, Fatal(err)
		}
	}
	return dst, nil
}

func copyFile(dst, src *Image, record FileRecord) error {
	in, err := src.v.Open(src.path(record.Name), vfs.Read)
	if err != nil {
		return Fatal(err)
	}
	defer in.Close()
	count, err := dst.write(record.Name, in)
	if err != nil {
		return Fatal(err)
	}
	if uint64(count) != record.Size {
		return Fatalf("write count mismatch; expected %d, wrote %d", record.Size, count)
	}
	info := vfs.Info{Created: record.Modified, Modified: record.Modified}
	if record.Hidden {
		info.Attr |= vfs.AttrHidden
	}
	if record.System {
		info.Attr |= vfs.AttrSystem
	}
	if info.Attr != 0 {
		info.Attr |= vfs.AttrRegular
	}
	if err := dst.v.Touch(dst.path(record.Name), &info); err != nil {
		return Fatal(err)
	}
	return nil
}
