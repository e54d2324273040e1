package vfs

// rootFS is the pseudo filesystem above the drive table. Its only
// directory lists the mounted drives.
type rootFS struct {
	v *VFS
}

var _ FileSystem = (*rootFS)(nil)

func (r *rootFS) Kind() Kind                        { return KindRoot }
func (r *rootFS) Mount(bool) error                  { return nil }
func (r *rootFS) Unmount() error                    { return nil }
func (r *rootFS) Format() error                     { return ErrInvalid }
func (r *rootFS) Open(string, Flag) (Stream, error) { return nil, ErrBadHandle }
func (r *rootFS) Stat(string) (Info, error)         { return Info{}, ErrInvalid }
func (r *rootFS) Mkdir(string) error                { return ErrReadOnly }
func (r *rootFS) Remove(string) error               { return ErrReadOnly }
func (r *rootFS) Rename(string, string) error       { return ErrReadOnly }
func (r *rootFS) Touch(string, *Info) error         { return ErrReadOnly }
func (r *rootFS) Label() (string, error)            { return "", nil }
func (r *rootFS) SetLabel(string) error             { return ErrReadOnly }
func (r *rootFS) Usage() (Usage, error)             { return Usage{}, nil }
func (r *rootFS) Busy() bool                        { return false }

func (r *rootFS) OpenDir(name string) (Cursor, error) {
	if name != "" {
		return nil, ErrNotFound
	}
	return &rootCursor{v: r.v}, nil
}

type rootCursor struct {
	v    *VFS
	next int
}

func (c *rootCursor) Next() (Info, error) {
	for c.next < len(c.v.drives) {
		d := c.v.drives[c.next]
		c.next++
		if !d.Mounted() {
			continue
		}
		info, err := c.v.driveInfo(d)
		if err != nil {
			return Info{}, err
		}
		info.Name = d.Prefix
		info.Inode = c.v.layout.Encode(uint32(d.index-1), 0, 0)
		return info, nil
	}
	return Info{}, ErrNotFound
}

func (c *rootCursor) Close() error {
	return nil
}

// driveInfo is the aggregate record of a mounted drive: capacity, used
// bytes as size and the label, or the prefix when unlabeled, as name.
func (v *VFS) driveInfo(d *Drive) (Info, error) {
	u, err := d.FS.Usage()
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Name:      d.Prefix,
		Size:      u.Used(),
		Created:   u.Created,
		Modified:  u.Created,
		Attr:      AttrDir | AttrRead | AttrWrite | AttrExec,
		Device:    uint8(d.index),
		Blocks:    u.Blocks,
		BlockSize: u.BlockSize,
	}
	if !d.Fixed {
		info.Attr |= AttrRemovable
	}
	if d.Kind() == KindFlat {
		info.Attr |= AttrFlat
	}
	if label, err := d.FS.Label(); err == nil && label != "" {
		info.Name = label
	}
	return info, nil
}
