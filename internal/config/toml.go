// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Store    StoreConfig    `toml:"store"`
	Sync     SyncConfig     `toml:"sync"`
	Practice PracticeConfig `toml:"practice"`
}

// StoreConfig locates the document store and the practice document.
type StoreConfig struct {
	Path  *string `toml:"path"`
	DocID *string `toml:"doc-id"`
}

// SyncConfig maps save behaviour settings.
type SyncConfig struct {
	ForkOnAnyFailure *bool `toml:"fork-on-any-failure"`
	Verbose          *bool `toml:"verbose"`
}

// PracticeConfig maps recorder settings.
type PracticeConfig struct {
	Arrows *int `toml:"arrows"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
