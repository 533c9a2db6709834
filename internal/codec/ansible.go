package codec

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"hopper/internal/domain"

	"gopkg.in/yaml.v3"
)

// AnsibleCodec handles Ansible inventory export
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string            `yaml:"ansible_host,omitempty"`
	Vars        map[string]string `yaml:",inline"`
}

var invalidGroupChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// groupName maps a record to an Ansible group: its source name when the
// source recorded one, otherwise its source kind.
func groupName(rec domain.HostRecord) string {
	name := rec.Attr(domain.AttrSourceName)
	if name == "" {
		name = string(rec.Source)
	}
	name = invalidGroupChars.ReplaceAllString(strings.ToLower(name), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "g_" + name
	}
	return name
}

// Export exports the snapshot to Ansible inventory format
func (c *AnsibleCodec) Export(snap *domain.InventorySnapshot, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	for _, rec := range normalize(snap).Records {
		group := groupName(rec)
		def, ok := inv.All.Children[group]
		if !ok {
			def = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
			inv.All.Children[group] = def
		}

		host := ansibleHost{
			AnsibleHost: rec.Address,
			Vars:        make(map[string]string),
		}
		for key, value := range rec.Attributes {
			if key != domain.AttrSourceName && key != "ansible_host" {
				host.Vars[key] = value
			}
		}

		// Same name with a different address in one group keeps both hosts
		key := rec.Name
		for n := 2; ; n++ {
			existing, taken := def.Hosts[key]
			if !taken || existing.AnsibleHost == rec.Address {
				break
			}
			key = fmt.Sprintf("%s_%d", rec.Name, n)
		}
		def.Hosts[key] = host
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}
