package repository

import (
	"context"
	"errors"

	"hopper/internal/domain"
)

// ErrNoSnapshot is returned by Load when nothing has been cached yet
var ErrNoSnapshot = errors.New("no cached inventory snapshot")

// SnapshotStore persists the most recent inventory snapshot
type SnapshotStore interface {
	// Load returns the cached snapshot. It returns ErrNoSnapshot when the
	// cache is empty and an error matching domain.ErrCacheCorrupt when the
	// cached data cannot be read back.
	Load(ctx context.Context) (*domain.InventorySnapshot, error)

	// Store replaces the cached snapshot atomically
	Store(ctx context.Context, snap *domain.InventorySnapshot) error

	// Close releases resources
	Close() error
}
