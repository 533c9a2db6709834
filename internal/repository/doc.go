// Package repository defines the cache store for inventory snapshots.
//
// # SnapshotStore
//
// A SnapshotStore holds exactly one snapshot: the result of the last
// successful aggregation. Store replaces it in a single transaction, so a
// reader sees either the previous snapshot or the new one and never a mix.
//
// Load distinguishes two failure modes:
//
//   - ErrNoSnapshot: the cache has never been written
//   - domain.ErrCacheCorrupt: the cache exists but cannot be decoded
//
// Callers treat both as a reason to refresh from the sources.
//
// # SQLite Implementation
//
// The sqlite subpackage stores snapshots in SQLite with WAL mode enabled.
// The schema is migrated on open.
package repository
