package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "HOPPER_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "hopper.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "hopper"
	// CacheFileName is the inventory cache database name
	CacheFileName = "inventory.db"
)

// FindConfigPath searches for config file in priority order:
// 1. $HOPPER_CONFIG (explicit path)
// 2. ./hopper.yaml (working directory)
// 3. $XDG_CONFIG_HOME/hopper/config.yaml
// 4. ~/.config/hopper/config.yaml
// 5. /etc/hopper/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	systemPath := filepath.Join("/etc", ConfigDirName, "config.yaml")
	if fileExists(systemPath) {
		return systemPath
	}

	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
// Prefers XDG config home, falls back to working directory
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// DefaultCachePath returns where the inventory cache lives by default
func DefaultCachePath() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, ConfigDirName, CacheFileName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".cache", ConfigDirName, CacheFileName)
	}
	return CacheFileName
}

// DefaultMountRoot returns the directory sshfs mountpoints are created under
func DefaultMountRoot() string {
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, "."+ConfigDirName, "mounts")
	}
	return filepath.Join("."+ConfigDirName, "mounts")
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

// ExpandHome replaces a leading ~ with $HOME
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := os.Getenv("HOME")
	if home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
