package app

import (
	"fmt"

	coreconfig "github.com/m3rciful/hookbot/core/config"
	coredatabase "github.com/m3rciful/hookbot/core/database"
)

// Config is the full process configuration: the core sections plus the store.
type Config struct {
	coreconfig.Config `yaml:",inline"`
	Database          coredatabase.Config `yaml:"database"`
}

// CoreConfig satisfies cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads path, overlays the environment and validates every section.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}
	return &cfg, nil
}
