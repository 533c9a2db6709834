package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hopper/internal/domain"
)

// Validate checks the config once at load time. Every problem found is
// reported; mutually exclusive filter patterns wrap ErrConfigurationConflict.
func (c *Config) Validate() error {
	var errs []error

	inv := c.Inventory
	if inv.IncludePattern != "" && inv.ExcludePattern != "" {
		errs = append(errs, fmt.Errorf("%w: inventory.include_pattern and inventory.exclude_pattern are both set",
			domain.ErrConfigurationConflict))
	}
	for key, pattern := range map[string]string{
		"inventory.include_pattern": inv.IncludePattern,
		"inventory.exclude_pattern": inv.ExcludePattern,
	} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	sources := c.EffectiveSources()
	if len(sources) == 0 {
		errs = append(errs, errors.New("inventory: no source configured"))
	}
	names := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if _, dup := names[src.Name]; dup {
			errs = append(errs, fmt.Errorf("inventory source %q: duplicate name", src.Name))
		}
		names[src.Name] = struct{}{}
		if err := validateSource(src); err != nil {
			errs = append(errs, err)
		}
	}

	for name, panes := range c.Tmux.Layout {
		if len(panes) == 0 {
			errs = append(errs, fmt.Errorf("tmux.layout.%s: no pane actions", name))
		}
		for i, p := range panes {
			if p.Action == "" {
				errs = append(errs, fmt.Errorf("tmux.layout.%s[%d]: empty cmd", name, i))
			}
		}
	}

	for task, playbooks := range c.Run {
		if len(playbooks) == 0 {
			errs = append(errs, fmt.Errorf("run.%s: no playbooks", task))
		}
		for i, pb := range playbooks {
			if strings.TrimSpace(pb) == "" {
				errs = append(errs, fmt.Errorf("run.%s[%d]: empty playbook", task, i))
			}
		}
	}

	if c.Bastion != nil && c.Bastion.Required && c.Bastion.Address == "" {
		errs = append(errs, fmt.Errorf("%w: bastion.required is set without bastion.address",
			domain.ErrConfigurationConflict))
	}

	return errors.Join(errs...)
}

func validateSource(src SourceConfig) error {
	kind, err := domain.ParseSourceKind(src.Type)
	if err != nil {
		return fmt.Errorf("inventory source %q: %w", src.Name, err)
	}
	switch kind {
	case domain.SourceCSV:
		if src.File == "" {
			return fmt.Errorf("inventory source %q: csv file is required", src.Name)
		}
	case domain.SourceMonitoring:
		if src.AccountNumber == "" || src.InsightsQueryAPIKey == "" {
			return fmt.Errorf("inventory source %q: account_number and insights_query_api_key are required", src.Name)
		}
	}
	if src.Timeout != nil && *src.Timeout < 0 {
		return fmt.Errorf("inventory source %q: negative timeout", src.Name)
	}
	return nil
}
