package fat

import (
	"io"
	"os"
	"path"

	"github.com/spf13/afero"

	"github.com/rstms/vfs/fattime"
)

// File is an open FAT file object.
type File struct {
	v      *Volume
	f      afero.File
	stored string
	mode   Mode
	fptr   int64
	size   int64
	dirty  bool
}

// Open opens or creates name according to mode.
func (v *Volume) Open(name string, mode Mode) (*File, error) {
	v.m.Lock()
	defer v.m.Unlock()
	if name == "" {
		return nil, InvalidName
	}
	stored, err := v.lookup(name)
	if err != nil {
		return nil, err
	}
	if v.openCount() >= v.MaxOpen {
		return nil, TooManyOpenFiles
	}
	fi, err := v.m.Stat(stored)
	exists := err == nil
	if exists && fi.IsDir() {
		return nil, NoFile
	}
	fs := v.m.Fs()
	flags := os.O_RDWR
	switch {
	case mode&(CreateAlways|OpenAlways|CreateNew) != 0:
		if !exists {
			if dir, err := v.m.Stat(path.Dir(stored)); err != nil || !dir.IsDir() {
				return nil, NoPath
			}
			f, err := fs.OpenFile(stored, os.O_CREATE|os.O_RDWR, 0600)
			if err != nil {
				return nil, DiskErr
			}
			f.Close()
			v.m.ID(stored)
			if err := v.setRecord(stored, v.newRecord(AttrArchive)); err != nil {
				return nil, err
			}
			break
		}
		if mode&CreateNew != 0 {
			return nil, Exist
		}
		if v.record(stored, fi).attrib&AttrReadOnly != 0 && mode&(ModeWrite|CreateAlways) != 0 {
			return nil, Denied
		}
		if mode&CreateAlways != 0 {
			flags |= os.O_TRUNC
		}
	default:
		if !exists {
			return nil, v.missing(stored)
		}
		if mode&ModeWrite != 0 && v.record(stored, fi).attrib&AttrReadOnly != 0 {
			return nil, Denied
		}
	}
	f, err := fs.OpenFile(stored, flags, 0600)
	if err != nil {
		return nil, DiskErr
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, DiskErr
	}
	file := &File{
		v:      v,
		f:      f,
		stored: stored,
		mode:   mode,
		size:   st.Size(),
	}
	if mode&OpenAppend == OpenAppend {
		file.fptr = file.size
	}
	v.open[stored]++
	return file, nil
}

func (f *File) Read(p []byte) (int, error) {
	if f.v == nil {
		return 0, InvalidObject
	}
	if f.mode&ModeRead == 0 {
		return 0, Denied
	}
	if f.fptr >= f.size {
		return 0, nil
	}
	if rem := f.size - f.fptr; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := f.f.ReadAt(p, f.fptr)
	if err != nil && err != io.EOF {
		return n, DiskErr
	}
	f.fptr += int64(n)
	return n, nil
}

// Write stores p at the file pointer. A full volume writes what fits; when
// nothing fits the result is Denied.
func (f *File) Write(p []byte) (int, error) {
	if f.v == nil {
		return 0, InvalidObject
	}
	if f.mode&ModeWrite == 0 {
		return 0, Denied
	}
	f.v.m.Lock()
	defer f.v.m.Unlock()
	end := f.fptr + int64(len(p))
	if ok, _ := f.v.m.Fits(f.size, end); !ok {
		free, _ := f.v.m.Free()
		bs := int64(f.v.m.Geometry().BlockSize)
		limit := (f.size+bs-1)/bs*bs + int64(free)*bs
		if limit <= f.fptr {
			return 0, Denied
		}
		p = p[:limit-f.fptr]
	}
	n, err := f.f.WriteAt(p, f.fptr)
	f.fptr += int64(n)
	if f.fptr > f.size {
		f.size = f.fptr
	}
	if n > 0 {
		f.dirty = true
	}
	if err != nil {
		return n, DiskErr
	}
	return n, nil
}

// Lseek moves the file pointer. Past the end a writable file is extended
// and a read-only one is clamped to its size.
func (f *File) Lseek(ofs int64) error {
	if f.v == nil {
		return InvalidObject
	}
	if ofs > f.size {
		if f.mode&ModeWrite == 0 {
			ofs = f.size
		} else {
			f.v.m.Lock()
			ok, _ := f.v.m.Fits(f.size, ofs)
			if ok {
				if err := f.f.Truncate(ofs); err != nil {
					f.v.m.Unlock()
					return DiskErr
				}
				f.size = ofs
				f.dirty = true
			} else {
				ofs = f.size
			}
			f.v.m.Unlock()
		}
	}
	f.fptr = ofs
	return nil
}

func (f *File) Tell() int64 {
	return f.fptr
}

func (f *File) Size() int64 {
	return f.size
}

// Truncate cuts the file at the file pointer.
func (f *File) Truncate() error {
	if f.v == nil {
		return InvalidObject
	}
	if f.mode&ModeWrite == 0 {
		return Denied
	}
	if f.fptr >= f.size {
		return nil
	}
	if err := f.f.Truncate(f.fptr); err != nil {
		return DiskErr
	}
	f.size = f.fptr
	f.dirty = true
	return nil
}

// Sync flushes data and stamps the modification time when written.
func (f *File) Sync() error {
	if f.v == nil {
		return InvalidObject
	}
	if !f.dirty {
		return nil
	}
	f.v.m.Lock()
	defer f.v.m.Unlock()
	if err := f.f.Sync(); err != nil {
		return DiskErr
	}
	fi, err := f.v.m.Stat(f.stored)
	if err != nil {
		return DiskErr
	}
	r := f.v.record(f.stored, fi)
	r.mdate, r.mtime = fattime.Encode(f.v.Now())
	r.attrib |= AttrArchive
	f.dirty = false
	return f.v.setRecord(f.stored, r)
}

func (f *File) Close() error {
	if f.v == nil {
		return InvalidObject
	}
	err := f.Sync()
	if cerr := f.f.Close(); cerr != nil && err == nil {
		err = DiskErr
	}
	f.v.m.Lock()
	if f.v.open[f.stored]--; f.v.open[f.stored] <= 0 {
		delete(f.v.open, f.stored)
	}
	f.v.m.Unlock()
	f.v = nil
	return err
}
