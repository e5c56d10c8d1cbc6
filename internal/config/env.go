package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds overrides read from the environment. Empty means unset.
type EnvConfig struct {
	ConfigPath string `env:"KYUDO_CONFIG"`
	DBPath     string `env:"KYUDO_DB"`
	DocID      string `env:"KYUDO_DOC_ID"`
}

// LoadEnv reads KYUDO_* variables.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
