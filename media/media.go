// Package media is the storage substrate under the reference drivers: an
// afero filesystem holding file contents, a block budget and a CBOR
// encoded superblock carrying per-entry attributes and item ids.
package media

import (
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// SuperName is the superblock file at the media root. Drivers hide it.
const SuperName = ".superblock"

const magic = "VFSMEDIA"

var (
	ErrUnformatted = errors.New("media: no superblock")
	ErrWrongKind   = errors.New("media: formatted for another driver")
	ErrFull        = errors.New("media: no free blocks")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("media: cbor encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("media: cbor decoder: " + err.Error())
	}
}

// Geometry is the block layout of the media.
type Geometry struct {
	BlockSize uint32
	Blocks    uint32
}

type super struct {
	Magic   string                      `cbor:"1,keyasint"`
	Kind    string                      `cbor:"2,keyasint"`
	Label   string                      `cbor:"3,keyasint"`
	Created int64                       `cbor:"4,keyasint"`
	NextID  uint32                      `cbor:"5,keyasint"`
	IDs     map[string]uint32           `cbor:"6,keyasint"`
	Attrs   map[string]map[uint8][]byte `cbor:"7,keyasint"`
}

// Media is one simulated device. Its lock is what drivers report as busy.
type Media struct {
	fs    afero.Fs
	geom  Geometry
	sb    *super
	mu    sync.Mutex
	Clock func() time.Time
}

func New(fs afero.Fs, geom Geometry) *Media {
	if geom.BlockSize == 0 {
		geom.BlockSize = 512
	}
	return &Media{fs: fs, geom: geom, Clock: time.Now}
}

// NewMemory returns media backed by an in-memory filesystem.
func NewMemory(geom Geometry) *Media {
	return New(afero.NewMemMapFs(), geom)
}

func (m *Media) Fs() afero.Fs {
	return m.fs
}

func (m *Media) Geometry() Geometry {
	return m.geom
}

func (m *Media) Lock() {
	m.mu.Lock()
}

func (m *Media) Unlock() {
	m.mu.Unlock()
}

// Locked probes the lock without keeping it.
func (m *Media) Locked() bool {
	if m.mu.TryLock() {
		m.mu.Unlock()
		return false
	}
	return true
}

// Load reads the superblock and checks it belongs to kind.
func (m *Media) Load(kind string) error {
	data, err := afero.ReadFile(m.fs, "/"+SuperName)
	if err != nil {
		return ErrUnformatted
	}
	var sb super
	if err := decMode.Unmarshal(data, &sb); err != nil || sb.Magic != magic {
		return ErrUnformatted
	}
	if sb.Kind != kind {
		return ErrWrongKind
	}
	if sb.IDs == nil {
		sb.IDs = map[string]uint32{}
	}
	if sb.Attrs == nil {
		sb.Attrs = map[string]map[uint8][]byte{}
	}
	m.sb = &sb
	return nil
}

// Loaded reports whether a superblock is in memory.
func (m *Media) Loaded() bool {
	return m.sb != nil
}

// Release drops the in-memory superblock.
func (m *Media) Release() {
	m.sb = nil
}

// Format erases every entry and writes a fresh superblock for kind. The
// superblock stays loaded.
func (m *Media) Format(kind string) error {
	entries, err := afero.ReadDir(m.fs, "/")
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "media: format")
	}
	for _, e := range entries {
		if err := m.fs.RemoveAll("/" + e.Name()); err != nil {
			return errors.Wrap(err, "media: format")
		}
	}
	m.sb = &super{
		Magic:   magic,
		Kind:    kind,
		Created: m.Clock().Unix(),
		NextID:  1,
		IDs:     map[string]uint32{},
		Attrs:   map[string]map[uint8][]byte{},
	}
	return m.Flush()
}

// Flush writes the superblock.
func (m *Media) Flush() error {
	if m.sb == nil {
		return ErrUnformatted
	}
	data, err := encMode.Marshal(m.sb)
	if err != nil {
		return errors.Wrap(err, "media: encode superblock")
	}
	return errors.Wrap(afero.WriteFile(m.fs, "/"+SuperName, data, 0600), "media: write superblock")
}

func (m *Media) Label() string {
	if m.sb == nil {
		return ""
	}
	return m.sb.Label
}

func (m *Media) SetLabel(label string) error {
	if m.sb == nil {
		return ErrUnformatted
	}
	m.sb.Label = label
	return m.Flush()
}

// Created is the format time.
func (m *Media) Created() time.Time {
	if m.sb == nil || m.sb.Created == 0 {
		return time.Time{}
	}
	return time.Unix(m.sb.Created, 0).UTC()
}

func key(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// ID returns the item id of name, assigning the next free one on first use.
func (m *Media) ID(name string) uint32 {
	if m.sb == nil {
		return 0
	}
	k := key(name)
	if id, ok := m.sb.IDs[k]; ok {
		return id
	}
	id := m.sb.NextID
	m.sb.NextID++
	m.sb.IDs[k] = id
	return id
}

// Issued is the number of ids handed out since format.
func (m *Media) Issued() uint32 {
	if m.sb == nil || m.sb.NextID == 0 {
		return 0
	}
	return m.sb.NextID - 1
}

// Name returns the name holding id.
func (m *Media) Name(id uint32) (string, bool) {
	if m.sb == nil {
		return "", false
	}
	for k, v := range m.sb.IDs {
		if v == id {
			return k, true
		}
	}
	return "", false
}

// Names returns the names holding ids ordered by id.
func (m *Media) Names() []string {
	if m.sb == nil {
		return nil
	}
	names := make([]string, 0, len(m.sb.IDs))
	for k := range m.sb.IDs {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.sb.IDs[names[i]] < m.sb.IDs[names[j]]
	})
	return names
}

func (m *Media) Attr(name string, typ uint8) ([]byte, bool) {
	if m.sb == nil {
		return nil, false
	}
	attrs, ok := m.sb.Attrs[key(name)]
	if !ok {
		return nil, false
	}
	data, ok := attrs[typ]
	return data, ok
}

func (m *Media) SetAttr(name string, typ uint8, data []byte) error {
	if m.sb == nil {
		return ErrUnformatted
	}
	k := key(name)
	attrs, ok := m.sb.Attrs[k]
	if !ok {
		attrs = map[uint8][]byte{}
		m.sb.Attrs[k] = attrs
	}
	attrs[typ] = append([]byte(nil), data...)
	return m.Flush()
}

func (m *Media) RemoveAttr(name string, typ uint8) error {
	if m.sb == nil {
		return ErrUnformatted
	}
	if attrs, ok := m.sb.Attrs[key(name)]; ok {
		delete(attrs, typ)
	}
	return m.Flush()
}

// Forget drops ids and attributes of name and everything below it.
func (m *Media) Forget(name string) error {
	if m.sb == nil {
		return ErrUnformatted
	}
	k := key(name)
	for n := range m.sb.IDs {
		if below(n, k) {
			delete(m.sb.IDs, n)
		}
	}
	for n := range m.sb.Attrs {
		if below(n, k) {
			delete(m.sb.Attrs, n)
		}
	}
	return m.Flush()
}

// Move carries ids and attributes of from and its children over to to.
func (m *Media) Move(from, to string) error {
	if m.sb == nil {
		return ErrUnformatted
	}
	f, t := key(from), key(to)
	ids := map[string]uint32{}
	for n, id := range m.sb.IDs {
		if below(n, f) {
			ids[t+strings.TrimPrefix(n, f)] = id
			delete(m.sb.IDs, n)
		}
	}
	for n, id := range ids {
		m.sb.IDs[n] = id
	}
	attrs := map[string]map[uint8][]byte{}
	for n, a := range m.sb.Attrs {
		if below(n, f) {
			attrs[t+strings.TrimPrefix(n, f)] = a
			delete(m.sb.Attrs, n)
		}
	}
	for n, a := range attrs {
		m.sb.Attrs[n] = a
	}
	return m.Flush()
}

func below(name, dir string) bool {
	if dir == "" {
		return true
	}
	return name == dir || strings.HasPrefix(name, dir+"/")
}
