package domain

import (
	"fmt"
	"strings"
)

// SourceKind identifies the category of inventory source a record came from
type SourceKind string

const (
	SourceCSV           SourceKind = "csv"
	SourceCloudProvider SourceKind = "cloud_provider"
	SourceMonitoring    SourceKind = "monitoring"
)

// Valid reports whether k is one of the known source kinds
func (k SourceKind) Valid() bool {
	switch k {
	case SourceCSV, SourceCloudProvider, SourceMonitoring:
		return true
	}
	return false
}

// ParseSourceKind maps a configured source type to its kind.
// Accepts the kind values themselves plus the provider names used in config.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return SourceCSV, nil
	case "aws", "cloud_provider":
		return SourceCloudProvider, nil
	case "newrelic", "monitoring":
		return SourceMonitoring, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", s)
	}
}

// Well-known attribute keys
const (
	AttrAliases    = "aliases"
	AttrInstanceID = "instance_id"
	AttrSourceName = "source_name"
)

// HostRecord is one host as reported by an inventory source
type HostRecord struct {
	Name       string            `json:"name" yaml:"name"`
	Address    string            `json:"address" yaml:"address"`
	Source     SourceKind        `json:"source" yaml:"source"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NewHostRecord builds a normalized record. It returns an error when the
// name or address is empty after trimming, or the kind is unknown.
func NewHostRecord(name, address string, source SourceKind, attrs map[string]string) (HostRecord, error) {
	rec := HostRecord{
		Name:    strings.TrimSpace(name),
		Address: strings.TrimSpace(address),
		Source:  source,
	}
	if len(attrs) > 0 {
		rec.Attributes = make(map[string]string, len(attrs))
		for k, v := range attrs {
			rec.Attributes[k] = v
		}
	}
	if err := rec.Validate(); err != nil {
		return HostRecord{}, err
	}
	return rec, nil
}

// Validate checks the record invariants
func (h HostRecord) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("host record: empty name")
	}
	if h.Address == "" {
		return fmt.Errorf("host record %s: empty address", h.Name)
	}
	if !h.Source.Valid() {
		return fmt.Errorf("host record %s: invalid source %q", h.Name, h.Source)
	}
	return nil
}

// Key is the aggregation identity of a record
func (h HostRecord) Key() RecordKey {
	return RecordKey{Name: h.Name, Address: h.Address, Source: h.Source}
}

// MatchKey is the identity used to deduplicate match results
func (h HostRecord) MatchKey() string {
	return h.Name + "\x00" + h.Address
}

// Attr returns an attribute value or the empty string
func (h HostRecord) Attr(key string) string {
	if h.Attributes == nil {
		return ""
	}
	return h.Attributes[key]
}

// Aliases returns the space-separated aliases attribute as a slice
func (h HostRecord) Aliases() []string {
	return strings.Fields(h.Attr(AttrAliases))
}

// String renders the record for logs and prompts
func (h HostRecord) String() string {
	return fmt.Sprintf("%s (%s)", h.Name, h.Address)
}

// RecordKey identifies a record within a snapshot
type RecordKey struct {
	Name    string
	Address string
	Source  SourceKind
}
