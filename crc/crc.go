// Package crc implements the word-oriented CRC-32 used by STM32 hardware
// (polynomial 0x04C11DB7, no reflection, no final xor) with a 16 entry
// nibble table. It is meant for change detection, not integrity.
package crc

import (
	"encoding/binary"
	"hash"
)

// Init is the register value after initialisation.
const Init uint32 = 0xFFFFFFFF

const Size = 4

// nibble lookup table for 0x04C11DB7
var table = [16]uint32{
	0x00000000, 0x04C11DB7, 0x09823B6E, 0x0D4326D9, 0x130476DC, 0x17C56B6B, 0x1A864DB2, 0x1E475005,
	0x2608EDB8, 0x22C9F00F, 0x2F8AD6D6, 0x2B4BCB61, 0x350C9B64, 0x31CD86D3, 0x3C8EA00A, 0x384FBDBD,
}

// Fold runs words through the register, 4 bits per round and 8 rounds per
// word. With init set the register starts from Init instead of sum.
func Fold(sum uint32, words []uint32, init bool) uint32 {
	if init {
		sum = Init
	}
	for _, w := range words {
		sum ^= w
		for i := 0; i < 8; i++ {
			sum = (sum << 4) ^ table[sum>>28]
		}
	}
	return sum
}

// Words splits p into little endian words, zero padding a trailing partial
// word.
func Words(p []byte) []uint32 {
	words := make([]uint32, (len(p)+3)/4)
	for i := range words {
		var w [4]byte
		copy(w[:], p[i*4:])
		words[i] = binary.LittleEndian.Uint32(w[:])
	}
	return words
}

// Digest is a streaming hash.Hash32 over the CRC. Bytes are folded a word at
// a time; a trailing partial word is zero padded when the sum is taken.
type Digest struct {
	sum     uint32
	pending []byte
}

var _ hash.Hash32 = (*Digest)(nil)

func New() *Digest {
	return &Digest{sum: Init}
}

// Checksum returns the CRC of p from a fresh register.
func Checksum(p []byte) uint32 {
	return Fold(Init, Words(p), true)
}

func (d *Digest) Reset() {
	d.sum = Init
	d.pending = d.pending[:0]
}

func (d *Digest) Size() int { return Size }

func (d *Digest) BlockSize() int { return 4 }

func (d *Digest) Write(p []byte) (int, error) {
	n := len(p)
	if len(d.pending) > 0 {
		take := 4 - len(d.pending)
		if take > len(p) {
			take = len(p)
		}
		d.pending = append(d.pending, p[:take]...)
		p = p[take:]
		if len(d.pending) < 4 {
			return n, nil
		}
		d.sum = Fold(d.sum, Words(d.pending), false)
		d.pending = d.pending[:0]
	}
	full := len(p) &^ 3
	d.sum = Fold(d.sum, Words(p[:full]), false)
	d.pending = append(d.pending, p[full:]...)
	return n, nil
}

// WriteWords folds whole words, flushing any pending partial word first.
func (d *Digest) WriteWords(words ...uint32) {
	d.flush()
	d.sum = Fold(d.sum, words, false)
}

func (d *Digest) flush() {
	if len(d.pending) > 0 {
		d.sum = Fold(d.sum, Words(d.pending), false)
		d.pending = d.pending[:0]
	}
}

func (d *Digest) Sum32() uint32 {
	if len(d.pending) == 0 {
		return d.sum
	}
	return Fold(d.sum, Words(d.pending), false)
}

func (d *Digest) Sum(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, d.Sum32())
}
