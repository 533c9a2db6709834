package domain

import (
	"fmt"
	"time"
)

// SourceFailure records a source that could not be fetched during aggregation
type SourceFailure struct {
	Source string `json:"source" yaml:"source"`
	Reason string `json:"reason" yaml:"reason"`
}

// InventorySnapshot is an immutable, timestamped aggregation of host records
type InventorySnapshot struct {
	ID        string          `json:"id" yaml:"id"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	Records   []HostRecord    `json:"records" yaml:"records"`
	Failures  []SourceFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Validate checks that no two records share (name, address, source)
// and that each record satisfies its own invariants.
func (s *InventorySnapshot) Validate() error {
	seen := make(map[RecordKey]struct{}, len(s.Records))
	for i, rec := range s.Records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		key := rec.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate record %s/%s/%s", key.Name, key.Address, key.Source)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Len returns the number of records
func (s *InventorySnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Partial reports whether one or more sources failed
func (s *InventorySnapshot) Partial() bool {
	return s != nil && len(s.Failures) > 0
}

// FailedSources returns the names of the failed sources in order
func (s *InventorySnapshot) FailedSources() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		names = append(names, f.Source)
	}
	return names
}

// Age returns how long ago the snapshot was created
func (s *InventorySnapshot) Age(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return now.Sub(s.CreatedAt)
}

// Canonical returns a copy in the form a snapshot has after a cache round
// trip: CreatedAt in UTC without a monotonic reading, and empty Records,
// Failures and Attributes as nil.
func (s *InventorySnapshot) Canonical() *InventorySnapshot {
	if s == nil {
		return nil
	}
	out := &InventorySnapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt.Round(0).UTC(),
	}
	if len(s.Records) > 0 {
		out.Records = make([]HostRecord, len(s.Records))
		for i, rec := range s.Records {
			if len(rec.Attributes) == 0 {
				rec.Attributes = nil
			}
			out.Records[i] = rec
		}
	}
	if len(s.Failures) > 0 {
		out.Failures = append([]SourceFailure(nil), s.Failures...)
	}
	return out
}
