package config

import (
	"time"

	"github.com/arthur-debert/srcpack/pkg/paths"
)

// Fetch holds download settings
type Fetch struct {
	// Attempts is the fixed number of download tries
	Attempts       int           `koanf:"attempts"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// Timeout bounds a whole attempt, connection and body included
	Timeout   time.Duration `koanf:"timeout"`
	UserAgent string        `koanf:"user_agent"`
}

// Patch holds patch application settings
type Patch struct {
	// Command is the patch program; it is always run with -p1
	Command string `koanf:"command"`
}

// Config is the main configuration structure
type Config struct {
	CacheRoot     string `koanf:"cache_root"`
	InstanceID    string `koanf:"instance_id"`
	PatchesDir    string `koanf:"patches_dir"`
	ExtraFilesDir string `koanf:"extra_files_dir"`
	WorkDir       string `koanf:"work_dir"`
	KeepWorkDir   bool   `koanf:"keep_work_dir"`

	Fetch Fetch `koanf:"fetch"`
	Patch Patch `koanf:"patch"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg, err := Load(LoadOptions{SkipUserConfig: true, SkipEnv: true})
	if err != nil {
		// Embedded defaults are compiled in; this only happens if they are broken.
		return &Config{
			InstanceID:    paths.DefaultInstanceID,
			PatchesDir:    paths.DefaultPatchesDir,
			ExtraFilesDir: paths.DefaultExtraFilesDir,
			Fetch: Fetch{
				Attempts:       3,
				ConnectTimeout: 900 * time.Second,
				Timeout:        900 * time.Second,
				UserAgent:      "srcpack",
			},
			Patch: Patch{Command: "patch"},
		}
	}
	return cfg
}

// Layout returns the directory settings for paths.New
func (c *Config) Layout() paths.Layout {
	return paths.Layout{
		CacheRoot:     c.CacheRoot,
		InstanceID:    c.InstanceID,
		PatchesDir:    c.PatchesDir,
		ExtraFilesDir: c.ExtraFilesDir,
		WorkDir:       c.WorkDir,
	}
}
