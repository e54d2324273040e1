package vfs

import (
	"strings"
	"time"
)

// Flag is the portable open mode.
type Flag uint8

const (
	Read      Flag = 0x01
	Write     Flag = 0x02
	ReadWrite      = Read | Write
	Create    Flag = 0x10
	Exclusive Flag = 0x20
	Truncate  Flag = 0x40
	Append    Flag = 0x80
)

func (f Flag) Has(mask Flag) bool {
	return f&mask == mask
}

type Attr uint16

const (
	AttrRead      Attr = 0x01
	AttrWrite     Attr = 0x02
	AttrExec      Attr = 0x04
	AttrHidden    Attr = 0x08
	AttrSystem    Attr = 0x10
	AttrFlat      Attr = 0x20
	AttrRegular   Attr = 0x40
	AttrDir       Attr = 0x80
	AttrRemovable Attr = 0x100
)

func (a Attr) IsDir() bool {
	return a&AttrDir != 0
}

// String renders the attributes the way a directory listing shows them.
func (a Attr) String() string {
	flags := []struct {
		bit Attr
		c   byte
	}{
		{AttrDir, 'd'},
		{AttrRead, 'r'},
		{AttrWrite, 'w'},
		{AttrExec, 'x'},
		{AttrHidden, 'h'},
		{AttrSystem, 's'},
		{AttrFlat, 'f'},
		{AttrRemovable, 'm'},
	}
	var b strings.Builder
	for _, f := range flags {
		if a&f.bit != 0 {
			b.WriteByte(f.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Kind identifies the backend family behind a drive.
type Kind int

const (
	KindNone Kind = iota
	KindRoot
	KindFAT
	KindLog
	KindFlat
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindFAT:
		return "FatFS"
	case KindLog:
		return "LittleFS"
	case KindFlat:
		return "JesFS"
	}
	return "none"
}

// Info describes a file, directory or mounted drive. Fields a backend
// cannot supply stay zero.
type Info struct {
	Name      string
	Size      uint64
	Created   time.Time
	Modified  time.Time
	Attr      Attr
	Device    uint8
	Inode     uint32
	Blocks    uint32
	BlockSize uint32
}

func (i *Info) IsDir() bool {
	return i.Attr.IsDir()
}

// Corrupt reports the pattern erased flash leaves behind in a directory
// record: an all-ones size and a name of 0xFF bytes.
func (i *Info) Corrupt() bool {
	if i.Size != 0xFFFFFFFF || len(i.Name) < 5 {
		return false
	}
	for k := 0; k < 5; k++ {
		if i.Name[k] != 0xFF {
			return false
		}
	}
	return true
}

// Usage is the capacity report of a mounted backend.
type Usage struct {
	Blocks    uint32
	BlockSize uint32
	Free      uint32
	Created   time.Time
}

func (u Usage) Total() uint64 {
	return uint64(u.Blocks) * uint64(u.BlockSize)
}

func (u Usage) Available() uint64 {
	return uint64(u.Free) * uint64(u.BlockSize)
}

func (u Usage) Used() uint64 {
	return u.Total() - u.Available()
}

// Blocks returns the number of size byte blocks needed for n bytes.
func Blocks(n uint64, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return uint32((n + uint64(size) - 1) / uint64(size))
}
