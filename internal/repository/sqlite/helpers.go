package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hopper/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// unmarshalJSONField unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to nullable JSON string.
// Empty slices and maps are stored as NULL.
func marshalToNull(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case map[string]string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []domain.SourceFailure:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Snapshot Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between the columns constant and
// scanArgs() for each row type.

// snapshotRow holds all columns from a snapshot query for scanning
type snapshotRow struct {
	ID           string
	CreatedAt    time.Time
	FailuresJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match snapshotColumns order: id, created_at, failures
func (r *snapshotRow) scanArgs() []any {
	return []any{
		&r.ID,           // 1
		&r.CreatedAt,    // 2
		&r.FailuresJSON, // 3
	}
}

// toDomain converts the scanned row to a snapshot without records
func (r *snapshotRow) toDomain() (*domain.InventorySnapshot, error) {
	snap := &domain.InventorySnapshot{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if err := unmarshalJSONField(r.FailuresJSON, &snap.Failures); err != nil {
		return nil, fmt.Errorf("unmarshal failures: %w", err)
	}
	return snap, nil
}

const snapshotColumns = `id, created_at, failures`

// ============================================================================
// Record Row Scanner
// ============================================================================

// recordRow holds all columns from a record query for scanning
type recordRow struct {
	Position       int
	Name           string
	Address        string
	Source         string
	AttributesJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match recordColumns order: position, name, address, source, attributes
func (r *recordRow) scanArgs() []any {
	return []any{
		&r.Position,       // 1
		&r.Name,           // 2
		&r.Address,        // 3
		&r.Source,         // 4
		&r.AttributesJSON, // 5
	}
}

// toDomain converts the scanned row to a domain.HostRecord
func (r *recordRow) toDomain() (domain.HostRecord, error) {
	var attrs map[string]string
	if err := unmarshalJSONField(r.AttributesJSON, &attrs); err != nil {
		return domain.HostRecord{}, fmt.Errorf("unmarshal attributes: %w", err)
	}
	rec := domain.HostRecord{
		Name:       r.Name,
		Address:    r.Address,
		Source:     domain.SourceKind(r.Source),
		Attributes: attrs,
	}
	if err := rec.Validate(); err != nil {
		return domain.HostRecord{}, err
	}
	return rec, nil
}

const recordColumns = `position, name, address, source, attributes`

// recordInsertArgs prepares arguments for a record INSERT
// Returns: snapshot_id, position, name, address, source, attributes
func recordInsertArgs(snapshotID string, position int, rec domain.HostRecord) ([]any, error) {
	attrsJSON, err := marshalToNull(rec.Attributes)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return []any{
		snapshotID,
		position,
		rec.Name,
		rec.Address,
		string(rec.Source),
		attrsJSON,
	}, nil
}
