package app

import coreconfig "github.com/m3rciful/hookbot/core/config"

func normalizeCore(cfg *Config) error {
	return coreconfig.Normalize(&cfg.Config)
}
