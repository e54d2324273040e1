// Package config loads the drive table from a configuration file and the
// environment, and builds the backends it names.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/rstms/vfs/inode"
	"github.com/rstms/vfs/logging"
)

// Backend names accepted in a drive entry.
const (
	BackendFAT  = "fat"
	BackendLFS  = "lfs"
	BackendFlat = "flat"
)

// Drive describes one drive of the table. An empty Dir keeps the media in
// memory.
type Drive struct {
	Prefix    string `mapstructure:"prefix"`
	Backend   string `mapstructure:"backend"`
	Fixed     bool   `mapstructure:"fixed"`
	Dir       string `mapstructure:"dir"`
	BlockSize uint32 `mapstructure:"block_size"`
	Blocks    uint32 `mapstructure:"blocks"`
	Label     string `mapstructure:"label"`
}

type Inode struct {
	StorageBits uint `mapstructure:"storage_bits"`
	FolderBits  uint `mapstructure:"folder_bits"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output"`
}

// Config is the whole configuration. Recover turns on format and remount of
// fixed drives that fail to mount, labelling them with Serial.
type Config struct {
	Drives  []Drive `mapstructure:"drives"`
	Inode   Inode   `mapstructure:"inode"`
	Log     Log     `mapstructure:"log"`
	Recover bool    `mapstructure:"recover"`
	Serial  string  `mapstructure:"serial"`
}

func (c *Config) Layout() inode.Layout {
	return inode.Layout{StorageBits: c.Inode.StorageBits, FolderBits: c.Inode.FolderBits}
}

func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format, OutputPath: c.Log.OutputPath}
}

func defaults(v *viper.Viper) {
	v.SetDefault("inode.storage_bits", inode.Default.StorageBits)
	v.SetDefault("inode.folder_bits", inode.Default.FolderBits)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("recover", false)
	v.SetDefault("serial", "")
}

// Load reads path, if given, and applies VFS_ environment overrides such as
// VFS_LOG_LEVEL or VFS_RECOVER. Drive entries come from the file only.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("VFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		if !IsFile(path) {
			return nil, Fatalf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, Fatal(err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills in drive defaults and rejects tables the dispatcher
// cannot route.
func (c *Config) Validate() error {
	if !c.Layout().Valid() {
		return Fatalf("invalid inode layout: %d storage bits, %d folder bits", c.Inode.StorageBits, c.Inode.FolderBits)
	}
	if uint32(len(c.Drives)) > c.Layout().MaxStorage()+1 {
		return Fatalf("%d drives do not fit %d storage bits", len(c.Drives), c.Inode.StorageBits)
	}
	seen := map[string]bool{}
	for i := range c.Drives {
		d := &c.Drives[i]
		if d.Prefix == "" || strings.ContainsAny(d.Prefix, "/\\") {
			return Fatalf("drive %d: invalid prefix %q", i, d.Prefix)
		}
		key := strings.ToUpper(d.Prefix)
		if seen[key] {
			return Fatalf("drive %d: duplicate prefix %s", i, d.Prefix)
		}
		seen[key] = true
		d.Backend = strings.ToLower(d.Backend)
		switch d.Backend {
		case BackendFAT, BackendLFS:
		case BackendFlat:
			if d.Label == "" {
				d.Label = strings.TrimSuffix(d.Prefix, ":")
			}
		default:
			return Fatalf("drive %s: unknown backend type: %s", d.Prefix, d.Backend)
		}
	}
	return nil
}
