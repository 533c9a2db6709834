package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"hopper/internal/domain"
)

// JSONCodec handles JSON export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Export exports the snapshot to JSON
func (c *JSONCodec) Export(snap *domain.InventorySnapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(normalize(snap)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// normalize returns a snapshot whose record list encodes as [] rather than null
func normalize(snap *domain.InventorySnapshot) *domain.InventorySnapshot {
	if snap == nil {
		return &domain.InventorySnapshot{Records: []domain.HostRecord{}}
	}
	if snap.Records == nil {
		cp := *snap
		cp.Records = []domain.HostRecord{}
		return &cp
	}
	return snap
}
