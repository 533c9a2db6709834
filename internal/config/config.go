// Package config provides configuration management for hopper.
//
// The config file holds inventory source settings, ssh and bastion options,
// tmux layouts and sshfs settings. The inventory itself is never stored in
// the config; it lives in the cache database.
//
// Config file locations (priority order):
//  1. $HOPPER_CONFIG
//  2. ./hopper.yaml
//  3. $XDG_CONFIG_HOME/hopper/config.yaml
//  4. ~/.config/hopper/config.yaml
//  5. /etc/hopper/config.yaml
//
// Validation runs once at load time. A config that sets both an include and
// an exclude pattern is rejected before any query runs.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hopper/internal/domain"
)

// DefaultSourceTimeout bounds a single source fetch when none is configured
const DefaultSourceTimeout = 30 * time.Second

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied and the result is validated.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = DefaultConfig()
	} else {
		cfg, path, err = LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML config data and fills in defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{
		CSV: CSVConfig{Name: "csv"},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Inventory.Source == "" && len(c.Inventory.Sources) == 0 {
		c.Inventory.Source = "csv"
	}
	if c.Inventory.Timeout == 0 {
		c.Inventory.Timeout = Duration(DefaultSourceTimeout)
	}
	if c.CSV.Fields == "" {
		c.CSV.Fields = "name,address"
	}
	if c.CSV.Delimiter == "" {
		c.CSV.Delimiter = ","
	}
	if c.CSV.File == "" {
		c.CSV.File = "~/." + ConfigDirName + "/inventory.csv"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath()
	}
	if c.SSHFS.MountRoot == "" {
		c.SSHFS.MountRoot = DefaultMountRoot()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}

	c.Cache.Path = ExpandHome(c.Cache.Path)
	c.SSHFS.MountRoot = ExpandHome(c.SSHFS.MountRoot)
}

// EffectiveSources returns the configured sources in priority order.
// The single inventory.source shorthand expands to one source built from
// the matching top-level section.
func (c *Config) EffectiveSources() []SourceConfig {
	if len(c.Inventory.Sources) > 0 {
		out := make([]SourceConfig, len(c.Inventory.Sources))
		for i, src := range c.Inventory.Sources {
			if src.Name == "" {
				src.Name = fmt.Sprintf("%s-%d", strings.ToLower(src.Type), i)
			}
			src.File = ExpandHome(src.File)
			out[i] = src
		}
		return out
	}

	typ := strings.ToLower(strings.TrimSpace(c.Inventory.Source))
	switch typ {
	case "":
		return nil
	case "csv":
		name := c.CSV.Name
		if name == "" {
			name = "csv"
		}
		return []SourceConfig{{
			Type:      typ,
			Name:      name,
			File:      ExpandHome(c.CSV.File),
			Fields:    c.CSV.Fields,
			Delimiter: c.CSV.Delimiter,
		}}
	case "aws":
		return []SourceConfig{{
			Type:         typ,
			Name:         "aws",
			Profile:      c.AWS.Profile,
			Region:       c.AWS.Region,
			AddressField: c.AWS.AddressField,
		}}
	case "newrelic":
		return []SourceConfig{{
			Type:                typ,
			Name:                "newrelic",
			AccountNumber:       c.NewRelic.AccountNumber,
			InsightsQueryAPIKey: c.NewRelic.InsightsQueryAPIKey,
			AddressField:        c.NewRelic.AddressField,
			Endpoint:            c.NewRelic.Endpoint,
		}}
	default:
		return []SourceConfig{{Type: typ, Name: typ}}
	}
}

// SourceTimeout returns the fetch deadline for src
func (c *Config) SourceTimeout(src SourceConfig) time.Duration {
	if src.Timeout != nil && *src.Timeout > 0 {
		return src.Timeout.Duration()
	}
	return c.Inventory.Timeout.Duration()
}

// FilterRule returns the active name filter, or nil when none is configured.
// Callers must have validated the config first.
func (c *Config) FilterRule() (*domain.FilterRule, error) {
	switch {
	case c.Inventory.IncludePattern != "" && c.Inventory.ExcludePattern != "":
		return nil, fmt.Errorf("%w: include_pattern and exclude_pattern are mutually exclusive",
			domain.ErrConfigurationConflict)
	case c.Inventory.IncludePattern != "":
		return domain.NewFilterRule(c.Inventory.IncludePattern, domain.FilterInclude)
	case c.Inventory.ExcludePattern != "":
		return domain.NewFilterRule(c.Inventory.ExcludePattern, domain.FilterExclude)
	}
	return nil, nil
}

// Layouts returns the configured tmux layouts keyed by name
func (c *Config) Layouts() map[string]domain.SessionLayout {
	layouts := make(map[string]domain.SessionLayout, len(c.Tmux.Layout))
	for name, panes := range c.Tmux.Layout {
		layouts[name] = domain.SessionLayout{Name: name, Panes: append([]domain.PaneAction(nil), panes...)}
	}
	return layouts
}

// LayoutNames returns the configured layout names sorted
func (c *Config) LayoutNames() []string {
	names := make([]string, 0, len(c.Tmux.Layout))
	for name := range c.Tmux.Layout {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaskNames returns the configured run task names sorted
func (c *Config) TaskNames() []string {
	names := make([]string, 0, len(c.Run))
	for name := range c.Run {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Playbooks returns the playbooks of a run task with ~ expanded
func (c *Config) Playbooks(task string) ([]string, error) {
	playbooks, ok := c.Run[task]
	if !ok {
		available := "none configured"
		if names := c.TaskNames(); len(names) > 0 {
			available = "available: " + strings.Join(names, ", ")
		}
		return nil, fmt.Errorf("run task %q is not configured (%s)", task, available)
	}
	out := make([]string, len(playbooks))
	for i, pb := range playbooks {
		out[i] = ExpandHome(pb)
	}
	return out, nil
}

// BastionHost converts the bastion section into a domain value, or nil
func (c *Config) BastionHost() *domain.Bastion {
	if c.Bastion == nil || c.Bastion.Address == "" {
		return nil
	}
	return &domain.Bastion{
		Address: c.Bastion.Address,
		User:    c.Bastion.User,
		Options: c.Bastion.Options,
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	var names []string
	for _, src := range c.EffectiveSources() {
		names = append(names, fmt.Sprintf("%s(%s)", src.Name, src.Type))
	}

	summary := fmt.Sprintf("Sources: %s\n", strings.Join(names, ", "))
	summary += fmt.Sprintf("Fuzzy: %v, Update at start: %v, Timeout: %s\n",
		c.Inventory.FuzzySearch, c.Inventory.UpdateAtStart, c.Inventory.Timeout.Duration())
	if b := c.BastionHost(); b != nil {
		summary += fmt.Sprintf("Bastion: %s\n", b.Destination())
	}
	summary += fmt.Sprintf("Cache: %s\n", c.Cache.Path)
	summary += fmt.Sprintf("Layouts (%d):", len(c.Tmux.Layout))
	for _, name := range c.LayoutNames() {
		summary += " " + name
	}
	summary += fmt.Sprintf("\nRun tasks (%d):", len(c.Run))
	for _, name := range c.TaskNames() {
		summary += " " + name
	}
	return summary
}
