package codec

import (
	"fmt"
	"io"
	"time"

	"hopper/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles generic YAML export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlSnapshot represents the YAML structure for a snapshot
type yamlSnapshot struct {
	ID        string                 `yaml:"id"`
	CreatedAt string                 `yaml:"created_at"`
	Hosts     []yamlHost             `yaml:"hosts"`
	Failures  []domain.SourceFailure `yaml:"failures,omitempty"`
}

type yamlHost struct {
	Name       string            `yaml:"name"`
	Address    string            `yaml:"address"`
	Source     string            `yaml:"source"`
	Aliases    []string          `yaml:"aliases,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// Export exports the snapshot to YAML
func (c *YAMLCodec) Export(snap *domain.InventorySnapshot, w io.Writer) error {
	snap = normalize(snap)
	ys := yamlSnapshot{
		ID:       snap.ID,
		Hosts:    make([]yamlHost, 0, len(snap.Records)),
		Failures: snap.Failures,
	}
	if !snap.CreatedAt.IsZero() {
		ys.CreatedAt = snap.CreatedAt.UTC().Format(time.RFC3339)
	}

	for _, rec := range snap.Records {
		yh := yamlHost{
			Name:    rec.Name,
			Address: rec.Address,
			Source:  string(rec.Source),
			Aliases: rec.Aliases(),
		}
		for k, v := range rec.Attributes {
			if k == domain.AttrAliases {
				continue
			}
			if yh.Attributes == nil {
				yh.Attributes = make(map[string]string)
			}
			yh.Attributes[k] = v
		}
		ys.Hosts = append(ys.Hosts, yh)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&ys); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
