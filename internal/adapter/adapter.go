package adapter

import (
	"context"
	"fmt"

	"hopper/internal/config"
	"hopper/internal/domain"
)

// Source defines the interface for inventory source integrations
type Source interface {
	// Name returns the unique identifier for this source
	Name() string

	// Kind returns the category of the source
	Kind() domain.SourceKind

	// Fetch enumerates hosts from the source. It must honor ctx cancellation.
	Fetch(ctx context.Context) (*Batch, error)
}

// Batch is the result of one successful fetch
type Batch struct {
	Records []domain.HostRecord
	// Skipped lists upstream records that could not be converted
	Skipped []Skipped
}

// Skipped describes a malformed upstream record
type Skipped struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// add validates and appends a record, or records why it was skipped
func (b *Batch) add(ref, name, address string, kind domain.SourceKind, attrs map[string]string) {
	rec, err := domain.NewHostRecord(name, address, kind, attrs)
	if err != nil {
		b.skip(ref, err.Error())
		return
	}
	b.Records = append(b.Records, rec)
}

func (b *Batch) skip(ref, reason string) {
	b.Skipped = append(b.Skipped, Skipped{Ref: ref, Reason: reason})
}

// New builds the source described by cfg
func New(cfg config.SourceConfig) (Source, error) {
	kind, err := domain.ParseSourceKind(cfg.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.SourceCSV:
		return NewCSVSource(CSVConfig{
			Name:      cfg.Name,
			Path:      cfg.File,
			Fields:    cfg.Fields,
			Delimiter: cfg.Delimiter,
		})
	case domain.SourceCloudProvider:
		return NewAWSSource(AWSConfig{
			Name:         cfg.Name,
			Profile:      cfg.Profile,
			Region:       cfg.Region,
			AddressField: cfg.AddressField,
		})
	case domain.SourceMonitoring:
		return NewNewRelicSource(NewRelicConfig{
			Name:          cfg.Name,
			AccountNumber: cfg.AccountNumber,
			QueryKey:      cfg.InsightsQueryAPIKey,
			AddressField:  cfg.AddressField,
			Endpoint:      cfg.Endpoint,
		})
	}
	return nil, fmt.Errorf("no source implementation for kind %s", kind)
}

// NewRegistryFromConfig builds a registry with every configured source
// registered in priority order
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	reg := NewRegistry()
	for _, srcCfg := range cfg.EffectiveSources() {
		src, err := New(srcCfg)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", srcCfg.Name, err)
		}
		if err := reg.Register(src, cfg.SourceTimeout(srcCfg)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
