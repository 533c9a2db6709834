package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment overrides
const EnvPrefix = "HOPPER"

// envOverrides are read from HOPPER_* variables. Nil pointers mean unset.
type envOverrides struct {
	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogFormat     string `envconfig:"LOG_FORMAT"`
	CachePath     string `envconfig:"CACHE_PATH"`
	MountRoot     string `envconfig:"MOUNT_ROOT"`
	UpdateAtStart *bool  `envconfig:"UPDATE_AT_START"`
	FuzzySearch   *bool  `envconfig:"FUZZY_SEARCH"`
}

// ApplyEnv overlays HOPPER_* environment variables on the config
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	if env.CachePath != "" {
		c.Cache.Path = ExpandHome(env.CachePath)
	}
	if env.MountRoot != "" {
		c.SSHFS.MountRoot = ExpandHome(env.MountRoot)
	}
	if env.UpdateAtStart != nil {
		c.Inventory.UpdateAtStart = *env.UpdateAtStart
	}
	if env.FuzzySearch != nil {
		c.Inventory.FuzzySearch = *env.FuzzySearch
	}
	return nil
}
