package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	msqlite "modernc.org/sqlite"

	"hopper/internal/domain"
	"hopper/internal/repository"
)

const (
	sqliteCorrupt = 11
	sqliteNotADB  = 26
)

// Store implements repository.SnapshotStore using SQLite
type Store struct {
	db   *sql.DB
	path string
}

var _ repository.SnapshotStore = (*Store)(nil)

// New opens the cache database at dbPath, creating it if needed. A file that
// is not a readable SQLite database yields an error matching
// domain.ErrCacheCorrupt.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(); err != nil {
		db.Close()
		if isCorrupt(err) {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrCacheCorrupt, dbPath, err)
		}
		return nil, fmt.Errorf("failed to migrate cache: %w", err)
	}

	return store, nil
}

// Reset deletes the cache database at dbPath together with its WAL files
func Reset(dbPath string) error {
	var errs []error
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to reset cache: %w", errors.Join(errs...))
	}
	log.Warn().Str("path", dbPath).Msg("Inventory cache reset")
	return nil
}

// OpenOrReset opens the cache and, if it is corrupt, deletes and recreates it.
// The second return value reports whether a reset happened.
func OpenOrReset(dbPath string) (*Store, bool, error) {
	store, err := New(dbPath)
	if err == nil {
		return store, false, nil
	}
	if !errors.Is(err, domain.ErrCacheCorrupt) || dbPath == ":memory:" {
		return nil, false, err
	}

	log.Warn().Err(err).Str("path", dbPath).Msg("Inventory cache unreadable, recreating")
	if err := Reset(dbPath); err != nil {
		return nil, false, err
	}
	store, err = New(dbPath)
	return store, err == nil, err
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		failures JSON,
		stored_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS records (
		snapshot_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		source TEXT NOT NULL,
		attributes JSON,
		PRIMARY KEY (snapshot_id, position),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_records_name ON records(name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

// Load returns the cached snapshot. The snapshot row and its records are
// read in one transaction, so a concurrent Store from another handle is seen
// either entirely or not at all.
func (s *Store) Load(ctx context.Context) (*domain.InventorySnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.readError("begin read", err)
	}
	defer tx.Rollback()

	snap, err := s.loadSnapshot(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := s.loadRecords(ctx, tx, snap); err != nil {
		return nil, err
	}

	if err := snap.Validate(); err != nil {
		return nil, corrupt("validate snapshot", err)
	}
	return snap, nil
}

func (s *Store) loadSnapshot(ctx context.Context, tx *sql.Tx) (*domain.InventorySnapshot, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots`)
	if err != nil {
		return nil, s.readError("query snapshots", err)
	}
	defer rows.Close()

	var snaps []snapshotRow
	for rows.Next() {
		var row snapshotRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, corrupt("scan snapshot", err)
		}
		snaps = append(snaps, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readError("iterate snapshots", err)
	}

	switch len(snaps) {
	case 0:
		return nil, repository.ErrNoSnapshot
	case 1:
	default:
		return nil, corrupt("load", fmt.Errorf("%d snapshots cached, expected one", len(snaps)))
	}

	snap, err := snaps[0].toDomain()
	if err != nil {
		return nil, corrupt("decode snapshot", err)
	}
	return snap, nil
}

func (s *Store) loadRecords(ctx context.Context, tx *sql.Tx, snap *domain.InventorySnapshot) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE snapshot_id = ? ORDER BY position`, snap.ID)
	if err != nil {
		return s.readError("query records", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row recordRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return corrupt("scan record", err)
		}
		rec, err := row.toDomain()
		if err != nil {
			return corrupt(fmt.Sprintf("decode record %d", row.Position), err)
		}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return s.readError("iterate records", err)
	}
	return nil
}

// Store replaces the cached snapshot in a single transaction. A later Load
// returns exactly snap.Canonical().
func (s *Store) Store(ctx context.Context, snap *domain.InventorySnapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	snap = snap.Canonical()
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	failuresJSON, err := marshalToNull(snap.Failures)
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, failures, stored_at) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt.UTC(), failuresJSON, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (snapshot_id, position, name, address, source, attributes) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range snap.Records {
		args, err := recordInsertArgs(snap.ID, i, rec)
		if err != nil {
			return fmt.Errorf("record %s: %w", rec.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	log.Debug().Str("snapshot", snap.ID).Int("records", len(snap.Records)).Str("path", s.path).Msg("Inventory cache written")
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) readError(op string, err error) error {
	if isCorrupt(err) {
		return corrupt(op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func corrupt(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrCacheCorrupt, op, err)
}

func isCorrupt(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqliteCorrupt || code == sqliteNotADB
	}
	msg := err.Error()
	return strings.Contains(msg, "not a database") || strings.Contains(msg, "malformed")
}
