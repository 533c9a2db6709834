// Package codec renders inventory snapshots for list-inventory.
//
// Formats:
//
//   - json: the snapshot as an indented JSON document
//   - yaml: the snapshot as a YAML document
//   - ansible: an Ansible YAML inventory grouped by source
//   - table: an aligned text table for terminals
package codec

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"hopper/internal/domain"
)

// Exporter interface for exporting inventory snapshots to various formats
type Exporter interface {
	Export(snap *domain.InventorySnapshot, w io.Writer) error
	Format() string
}

// Exporters returns every available exporter
func Exporters() []Exporter {
	return []Exporter{
		NewTableCodec(),
		NewJSONCodec(),
		NewYAMLCodec(),
		NewAnsibleCodec(),
	}
}

// Formats returns the names of the available formats in sorted order
func Formats() []string {
	var names []string
	for _, e := range Exporters() {
		names = append(names, e.Format())
	}
	sort.Strings(names)
	return names
}

// ForFormat returns the exporter for name
func ForFormat(name string) (Exporter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "ansible-inventory" {
		name = "ansible"
	}
	for _, e := range Exporters() {
		if e.Format() == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("unknown format %q (available: %s)", name, strings.Join(Formats(), ", "))
}
