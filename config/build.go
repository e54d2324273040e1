package config

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/rstms/vfs"
	"github.com/rstms/vfs/fat"
	"github.com/rstms/vfs/flat"
	"github.com/rstms/vfs/lfs"
	"github.com/rstms/vfs/media"
	"github.com/rstms/vfs/metrics"
	"github.com/rstms/vfs/observer"
)

// default geometries, about 1 MB each
var geometries = map[string]media.Geometry{
	BackendFAT:  {BlockSize: 512, Blocks: 2048},
	BackendLFS:  {BlockSize: 256, Blocks: 4096},
	BackendFlat: {BlockSize: flat.SectorSize, Blocks: 256},
}

func (d Drive) geometry() media.Geometry {
	g := geometries[d.Backend]
	if d.BlockSize != 0 {
		g.BlockSize = d.BlockSize
	}
	if d.Blocks != 0 {
		g.Blocks = d.Blocks
	}
	return g
}

// Media opens the storage of a drive: a host directory or a fresh memory
// filesystem.
func (d Drive) Media() (*media.Media, error) {
	var fs afero.Fs
	if d.Dir == "" {
		fs = afero.NewMemMapFs()
	} else {
		if err := afero.NewOsFs().MkdirAll(d.Dir, 0700); err != nil {
			return nil, Fatal(err)
		}
		fs = afero.NewBasePathFs(afero.NewOsFs(), d.Dir)
	}
	return media.New(fs, d.geometry()), nil
}

// FileSystem creates the adapter named by d.Backend over m.
func (d Drive) FileSystem(m *media.Media) (vfs.FileSystem, error) {
	switch d.Backend {
	case BackendFAT:
		return fat.New(m), nil
	case BackendLFS:
		g := m.Geometry()
		return lfs.New(m, lfs.Config{BlockSize: g.BlockSize, BlockCount: g.Blocks}), nil
	case BackendFlat:
		return flat.New(m, d.Label), nil
	}
	return nil, Fatalf("unknown backend type: %s", d.Backend)
}

// Build creates the drive table. Every drive reports to the logger, to c
// when not nil and last to the recovery policy when enabled, so a recovered
// mount is seen after the failure it repairs. Nothing is mounted.
func Build(cfg *Config, log *zap.Logger, c *metrics.Collector, opts ...vfs.Option) (*vfs.VFS, error) {
	var recovery, collect vfs.EventFunc
	if cfg.Recover {
		recovery = observer.Recover(cfg.Serial)
	}
	if c != nil {
		collect = c.Observe
	}
	events := observer.Chain(observer.Logger(log), collect, recovery)
	var drives []*vfs.Drive
	for _, d := range cfg.Drives {
		m, err := d.Media()
		if err != nil {
			return nil, err
		}
		fs, err := d.FileSystem(m)
		if err != nil {
			return nil, err
		}
		drives = append(drives, &vfs.Drive{Prefix: d.Prefix, FS: fs, Fixed: d.Fixed, OnEvent: events})
	}
	opts = append([]vfs.Option{vfs.WithLayout(cfg.Layout())}, opts...)
	return vfs.New(drives, opts...), nil
}
