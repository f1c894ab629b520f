// Package sqlite provides a SQLite-backed config.Store implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"ozonedb/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS options (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL
);
`

// Store is a SQLite-based config.Store implementation. Options are kept
// as a single JSON blob in a one-row table; this engine does not have
// the kind of per-entity config the teacher's multi-table schema serves.
type Store struct {
	db *sql.DB
}

var _ config.Store = (*Store)(nil)

// NewStore opens a SQLite database at path and ensures the schema exists.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the persisted options. Returns nil if none have been saved.
func (s *Store) Load(ctx context.Context) (*config.Options, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM options WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}

	var opts config.Options
	if err := json.Unmarshal([]byte(payload), &opts); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	return &opts, nil
}

// Save persists opts, replacing whatever was saved before.
func (s *Store) Save(ctx context.Context, opts *config.Options) error {
	payload, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO options (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
	`, string(payload))
	if err != nil {
		return fmt.Errorf("upsert options: %w", err)
	}
	return nil
}
