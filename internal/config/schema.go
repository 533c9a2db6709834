package config

import (
	"time"

	"hopper/internal/domain"
)

// Config is the root configuration structure
type Config struct {
	Inventory InventoryConfig `yaml:"inventory"`
	CSV       CSVConfig       `yaml:"csv,omitempty"`
	AWS       AWSConfig       `yaml:"aws,omitempty"`
	NewRelic  NewRelicConfig  `yaml:"newrelic,omitempty"`
	SSH       SSHConfig       `yaml:"ssh"`
	Bastion   *BastionConfig  `yaml:"bastion,omitempty"`
	Tmux      TmuxConfig      `yaml:"tmux,omitempty"`
	SSHFS     SSHFSConfig     `yaml:"sshfs"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	// Run maps task names to the ansible playbooks they run
	Run map[string][]string `yaml:"run,omitempty"`
}

// InventoryConfig selects sources and resolution behavior
type InventoryConfig struct {
	// Source is the shorthand for a single source configured by the
	// top-level csv, aws or newrelic section
	Source string `yaml:"source,omitempty"`
	// Sources lists sources in priority order (later wins on duplicates)
	Sources        []SourceConfig `yaml:"sources,omitempty"`
	FuzzySearch    bool           `yaml:"fuzzy_search"`
	IncludePattern string         `yaml:"include_pattern,omitempty"`
	ExcludePattern string         `yaml:"exclude_pattern,omitempty"`
	UpdateAtStart  bool           `yaml:"update_at_start"`
	// Timeout bounds each source fetch
	Timeout Duration `yaml:"timeout,omitempty"`
}

// SourceConfig configures one inventory source. Only the fields relevant to
// Type are read.
type SourceConfig struct {
	Type    string    `yaml:"type"`
	Name    string    `yaml:"name,omitempty"`
	Timeout *Duration `yaml:"timeout,omitempty"`

	// csv
	File      string `yaml:"file,omitempty"`
	Fields    string `yaml:"fields,omitempty"`
	Delimiter string `yaml:"delimiter,omitempty"`

	// aws
	Profile string `yaml:"profile,omitempty"`
	Region  string `yaml:"region,omitempty"`

	// newrelic
	AccountNumber       string `yaml:"account_number,omitempty"`
	InsightsQueryAPIKey string `yaml:"insights_query_api_key,omitempty"`
	Endpoint            string `yaml:"endpoint,omitempty"`

	// AddressField picks which upstream field becomes the host address
	AddressField string `yaml:"address_field,omitempty"`
}

// CSVConfig is the single-source csv section
type CSVConfig struct {
	Name      string `yaml:"name,omitempty"`
	File      string `yaml:"file,omitempty"`
	Fields    string `yaml:"fields,omitempty"`
	Delimiter string `yaml:"delimiter,omitempty"`
}

// AWSConfig is the single-source aws section
type AWSConfig struct {
	Profile      string `yaml:"profile,omitempty"`
	Region       string `yaml:"region,omitempty"`
	AddressField string `yaml:"address_field,omitempty"`
}

// NewRelicConfig is the single-source newrelic section
type NewRelicConfig struct {
	AccountNumber       string `yaml:"account_number,omitempty"`
	InsightsQueryAPIKey string `yaml:"insights_query_api_key,omitempty"`
	AddressField        string `yaml:"address_field,omitempty"`
	Endpoint            string `yaml:"endpoint,omitempty"`
}

// SSHConfig holds ssh client settings
type SSHConfig struct {
	User    string `yaml:"user,omitempty"`
	Options string `yaml:"options,omitempty"`
	NoTmux  bool   `yaml:"no_tmux"`
}

// BastionConfig describes the relay host
type BastionConfig struct {
	Address  string `yaml:"address"`
	User     string `yaml:"user,omitempty"`
	Options  string `yaml:"options,omitempty"`
	Required bool   `yaml:"required"`
}

// TmuxConfig holds named pane layouts. YAML rejects duplicate mapping keys,
// so layout names are unique by construction.
type TmuxConfig struct {
	Layout map[string][]domain.PaneAction `yaml:"layout,omitempty"`
}

// SSHFSConfig holds sshfs settings
type SSHFSConfig struct {
	Options   string `yaml:"options,omitempty"`
	MountRoot string `yaml:"mount_root"`
}

// CacheConfig locates the inventory cache
type CacheConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
