// Package inode packs a drive position, a folder discriminator and an item
// number into a single 32-bit inode.
//
// From high to low bits the value holds STORAGE, FOLDER and ITEM. The item
// field takes whatever width remains after storage and folder.
package inode

// Layout fixes the field widths of an encoded inode.
type Layout struct {
	StorageBits uint
	FolderBits  uint
}

// Default allows for 4 drives and root + 1023 active directories.
var Default = Layout{StorageBits: 2, FolderBits: 10}

func (l Layout) ItemBits() uint {
	return 32 - l.StorageBits - l.FolderBits
}

// Valid reports whether the widths leave at least one item bit.
func (l Layout) Valid() bool {
	return l.StorageBits > 0 && l.StorageBits+l.FolderBits < 32
}

func (l Layout) StorageMask() uint32 {
	return ^uint32(0) << (32 - l.StorageBits)
}

func (l Layout) FolderMask() uint32 {
	return (^uint32(0) >> l.StorageBits) & (^uint32(0) << l.ItemBits())
}

func (l Layout) ItemMask() uint32 {
	return ^uint32(0) >> (l.StorageBits + l.FolderBits)
}

// MaxStorage is the largest storage value that survives encoding.
func (l Layout) MaxStorage() uint32 {
	return l.StorageMask() >> (32 - l.StorageBits)
}

func (l Layout) MaxFolder() uint32 {
	return l.FolderMask() >> l.ItemBits()
}

func (l Layout) MaxItem() uint32 {
	return l.ItemMask()
}

// Encode masks each field to its width and packs them.
func (l Layout) Encode(storage, folder, item uint32) uint32 {
	x := (storage << (32 - l.StorageBits)) & l.StorageMask()
	x |= (folder << l.ItemBits()) & l.FolderMask()
	x |= item & l.ItemMask()
	return x
}

func (l Layout) Storage(x uint32) uint32 {
	return x >> (32 - l.StorageBits)
}

func (l Layout) Folder(x uint32) uint32 {
	return (x & l.FolderMask()) >> l.ItemBits()
}

func (l Layout) Item(x uint32) uint32 {
	return x & l.ItemMask()
}
