package fat

import (
	"fmt"
	"os"
	"strings"

	"github.com/rstms/vfs/fattime"
)

// Attrib is the FAT directory entry attribute byte.
type Attrib uint8

const (
	AttrReadOnly  Attrib = 0x01
	AttrHidden    Attrib = 0x02
	AttrSystem    Attrib = 0x04
	AttrVolumeId  Attrib = 0x08
	AttrDirectory Attrib = 0x10
	AttrArchive   Attrib = 0x20

	// attributes a caller may change
	attrSettable = AttrReadOnly | AttrHidden | AttrSystem | AttrArchive
)

// FileInfo is one directory record as the volume reports it.
type FileInfo struct {
	Name    string
	AltName string
	Size    uint32
	FDate   uint16
	FTime   uint16
	CDate   uint16
	CTime   uint16
	Attrib  Attrib
	Cluster uint32
}

func (fi *FileInfo) IsDir() bool {
	return fi.Attrib&AttrDirectory == AttrDirectory
}

func (fi *FileInfo) IsReadOnly() bool {
	return fi.Attrib&AttrReadOnly == AttrReadOnly
}

func (fi *FileInfo) IsHidden() bool {
	return fi.Attrib&AttrHidden == AttrHidden
}

func (fi *FileInfo) IsSystem() bool {
	return fi.Attrib&AttrSystem == AttrSystem
}

// record is the stored part of a directory entry: attributes and the
// creation and modification stamps.
type record struct {
	attrib Attrib
	cdate  uint16
	ctime  uint16
	mdate  uint16
	mtime  uint16
}

const recordAttr = 0x01

func (r record) encode() []byte {
	return []byte{
		byte(r.attrib),
		byte(r.cdate), byte(r.cdate >> 8),
		byte(r.ctime), byte(r.ctime >> 8),
		byte(r.mdate), byte(r.mdate >> 8),
		byte(r.mtime), byte(r.mtime >> 8),
	}
}

func decodeRecord(b []byte) record {
	if len(b) < 9 {
		return record{}
	}
	u16 := func(i int) uint16 { return uint16(b[i]) | uint16(b[i+1])<<8 }
	return record{
		attrib: Attrib(b[0]),
		cdate:  u16(1),
		ctime:  u16(3),
		mdate:  u16(5),
		mtime:  u16(7),
	}
}

// DirReader walks a directory snapshot taken when it was opened.
type DirReader struct {
	v       *Volume
	stored  string
	entries []os.FileInfo
	used    []string
	pos     int
}

// Read returns the next record. An empty Name marks the end.
func (d *DirReader) Read() (FileInfo, error) {
	if d.v == nil {
		return FileInfo{}, InvalidObject
	}
	d.v.m.Lock()
	defer d.v.m.Unlock()
	if err := d.v.ready(); err != nil {
		return FileInfo{}, err
	}
	if d.pos >= len(d.entries) {
		return FileInfo{}, nil
	}
	e := d.entries[d.pos]
	d.pos++
	fi := d.v.info(join(d.stored, e.Name()), e)
	short, err := generateShortName(e.Name(), d.used)
	if err == nil {
		fi.AltName = short
		d.used = append(d.used, short)
	}
	return fi, nil
}

func (d *DirReader) Close() error {
	if d.v == nil {
		return InvalidObject
	}
	d.v = nil
	return nil
}

func join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// ShortName is the 8.3 alias of name with no collisions to avoid.
func ShortName(name string) string {
	short, err := generateShortName(name, nil)
	if err != nil {
		return ""
	}
	return short
}

const shortChars = "!#$%&'()-@^_`{}~"

// generateShortName builds the 8.3 alias of name, numbering it with a
// ~N tail when the conversion was lossy or collides with used.
func generateShortName(name string, used []string) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "." || name == ".." {
		return name, nil
	}
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i+1:]
	}
	clean := func(s string) (string, bool) {
		var b strings.Builder
		lossy := false
		for _, c := range s {
			switch {
			case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', strings.ContainsRune(shortChars, c):
				b.WriteRune(c)
			case c == ' ' || c == '.':
				lossy = true
			default:
				b.WriteRune('_')
				lossy = true
			}
		}
		return b.String(), lossy
	}
	base, lossyBase := clean(base)
	ext, lossyExt := clean(ext)
	if base == "" {
		return "", InvalidName
	}
	lossy := lossyBase || lossyExt || len(base) > 8 || len(ext) > 3
	if len(ext) > 3 {
		ext = ext[:3]
	}
	compose := func(b string) string {
		if ext == "" {
			return b
		}
		return b + "." + ext
	}
	taken := func(s string) bool {
		for _, u := range used {
			if strings.EqualFold(u, s) {
				return true
			}
		}
		return false
	}
	if !lossy {
		if short := compose(base); !taken(short) {
			return short, nil
		}
	}
	for n := 1; n < 1000000; n++ {
		tail := fmt.Sprintf("~%d", n)
		stem := base
		if len(stem) > 8-len(tail) {
			stem = stem[:8-len(tail)]
		}
		if short := compose(stem + tail); !taken(short) {
			return short, nil
		}
	}
	return "", Denied
}

// stamp converts a file time into the record's date and time words.
func stamp(fi os.FileInfo) (uint16, uint16) {
	return fattime.Encode(fi.ModTime())
}
