// Package store is the sole owner of the on-disk database. Everything here
// talks to a single embedded SQLite file through database/sql; there is no
// separate migration binary and no network-attached database server.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the database handle and exposes the operations the rest of
// the server needs. All methods take a context so a slow disk can't wedge
// a caller holding the global session lock forever.
type Store struct {
	db *sql.DB
}

// Open creates (if necessary) and opens the SQLite file at path, applies
// the schema, and seeds it from seedFile when the questions table is
// still empty. seedFile may be empty.
func Open(ctx context.Context, path string, seedFile string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// A single file accessed by one process: one writer at a time keeps
	// SQLite happy without WAL-mode contention tuning.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySeedFile(ctx, db, seedFile); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// now wraps time.Now behind a variable so tests could override it; no code
// in this package reads it (timestamps come from SQLite's CURRENT_TIMESTAMP
// column defaults).
var now = time.Now
