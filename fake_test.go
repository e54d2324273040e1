package vfs

import (
	"path"
	"sort"
	"time"
)

// fakeFS is an in-memory backend for exercising the dispatch layer.
type fakeFS struct {
	kind     Kind
	mountErr error
	mounts   int
	unmounts int
	open     int
	files    map[string][]byte
	dirs     map[string]bool
	mtimes   map[string]time.Time
	touched  map[string]Info
	extra    []Info
	label    string
	clamp    bool
	busy     bool
	noLabel  bool
}

var _ FileSystem = (*fakeFS)(nil)

func newFake() *fakeFS {
	return &fakeFS{
		kind:    KindFAT,
		files:   map[string][]byte{},
		dirs:    map[string]bool{},
		mtimes:  map[string]time.Time{},
		touched: map[string]Info{},
	}
}

func (f *fakeFS) Kind() Kind { return f.kind }

func (f *fakeFS) Mount(fixed bool) error {
	f.mounts++
	return f.mountErr
}

func (f *fakeFS) Unmount() error {
	f.unmounts++
	return nil
}

func (f *fakeFS) Format() error {
	f.files = map[string][]byte{}
	f.dirs = map[string]bool{}
	return nil
}

func (f *fakeFS) Open(name string, flag Flag) (Stream, error) {
	if f.dirs[name] {
		return nil, ErrIsDir
	}
	data, ok := f.files[name]
	switch {
	case !ok && !flag.Has(Create):
		return nil, ErrNotFound
	case ok && flag.Has(Create|Exclusive):
		return nil, ErrExists
	case !ok || flag.Has(Truncate):
		data = nil
	}
	f.files[name] = data
	f.open++
	return &fakeStream{fs: f, name: name}, nil
}

func (f *fakeFS) children(dir string) []string {
	var names []string
	seen := map[string]bool{}
	add := func(p string) {
		if parent(p) == dir && !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}
	for p := range f.files {
		add(p)
	}
	for p := range f.dirs {
		add(p)
	}
	sort.Strings(names)
	return names
}

func (f *fakeFS) OpenDir(name string) (Cursor, error) {
	if name != "" && !f.dirs[name] {
		if _, ok := f.files[name]; ok {
			return nil, ErrNotDir
		}
		return nil, ErrNotFound
	}
	var entries []Info
	for _, p := range f.children(name) {
		info, _ := f.Stat(p)
		entries = append(entries, info)
	}
	if name == "" {
		entries = append(entries, f.extra...)
	}
	return &fakeCursor{entries: entries}, nil
}

func (f *fakeFS) Stat(name string) (Info, error) {
	if name == "" || f.dirs[name] {
		return Info{Name: path.Base("/" + name), Attr: AttrDir | AttrRead | AttrWrite}, nil
	}
	data, ok := f.files[name]
	if !ok {
		return Info{}, ErrNotFound
	}
	info := Info{
		Name:     path.Base(name),
		Size:     uint64(len(data)),
		Attr:     AttrRead | AttrWrite | AttrRegular,
		Modified: f.mtimes[name],
	}
	if t, ok := f.touched[name]; ok {
		info.Modified = t.Modified
	}
	return info, nil
}

func (f *fakeFS) Mkdir(name string) error {
	if f.dirs[name] {
		return ErrExists
	}
	f.dirs[name] = true
	return nil
}

func (f *fakeFS) Remove(name string) error {
	if _, ok := f.files[name]; ok {
		delete(f.files, name)
		return nil
	}
	if f.dirs[name] {
		delete(f.dirs, name)
		return nil
	}
	return ErrNotFound
}

func (f *fakeFS) Rename(from, to string) error {
	data, ok := f.files[from]
	if !ok {
		return ErrNotFound
	}
	delete(f.files, from)
	f.files[to] = data
	return nil
}

func (f *fakeFS) Touch(name string, info *Info) error {
	if _, err := f.Stat(name); err != nil {
		return err
	}
	f.touched[name] = *info
	return nil
}

func (f *fakeFS) Label() (string, error) {
	if f.noLabel {
		return "", ErrInvalid
	}
	return f.label, nil
}

func (f *fakeFS) SetLabel(label string) error {
	f.label = label
	return nil
}

func (f *fakeFS) Usage() (Usage, error) {
	return Usage{Blocks: 100, BlockSize: 512, Free: 40}, nil
}

func (f *fakeFS) Busy() bool { return f.busy }

type fakeStream struct {
	fs   *fakeFS
	name string
	pos  int64
}

var _ ModTimer = (*fakeStream)(nil)

func (s *fakeStream) data() []byte { return s.fs.files[s.name] }

func (s *fakeStream) Read(p []byte) (int, error) {
	data := s.data()
	if s.pos >= int64(len(data)) {
		return 0, nil
	}
	n := copy(p, data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *fakeStream) Write(p []byte) (int, error) {
	data := s.data()
	if end := s.pos + int64(len(p)); end > int64(len(data)) {
		data = append(data, make([]byte, end-int64(len(data)))...)
	}
	n := copy(data[s.pos:], p)
	s.fs.files[s.name] = data
	s.pos += int64(n)
	return n, nil
}

func (s *fakeStream) Seek(pos int64) error {
	if s.fs.clamp && pos > int64(len(s.data())) {
		pos = int64(len(s.data()))
	}
	s.pos = pos
	return nil
}

func (s *fakeStream) Tell() int64 { return s.pos }
func (s *fakeStream) Size() int64 { return int64(len(s.data())) }
func (s *fakeStream) Sync() error { return nil }

func (s *fakeStream) Truncate(size int64) error {
	data := s.data()
	if size <= int64(len(data)) {
		s.fs.files[s.name] = data[:size]
		return nil
	}
	s.fs.files[s.name] = append(data, make([]byte, size-int64(len(data)))...)
	return nil
}

func (s *fakeStream) Close() error {
	s.fs.open--
	return nil
}

func (s *fakeStream) SetModTime(t time.Time) {
	s.fs.mtimes[s.name] = t
}

type fakeCursor struct {
	entries []Info
	closed  bool
}

func (c *fakeCursor) Next() (Info, error) {
	if len(c.entries) == 0 {
		return Info{}, ErrNotFound
	}
	info := c.entries[0]
	c.entries = c.entries[1:]
	return info, nil
}

func (c *fakeCursor) Close() error {
	c.closed = true
	return nil
}
