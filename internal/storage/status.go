package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// StatusStore is the completion-status side table, keyed by original_id.
// Only the UI layer reads and writes it; the ETL core never touches item
// status, it just keeps original_id values stable so this foreign key stays
// valid across runs.
type StatusStore struct {
	db *sqlx.DB
}

const statusSchema = `
CREATE TABLE IF NOT EXISTS item_status (
    original_id TEXT PRIMARY KEY,
    done        INTEGER NOT NULL DEFAULT 0,
    updated_at  TIMESTAMP NOT NULL
);`

// OpenStatusStore opens (creating if needed) the sqlite-backed status store
// at path.
func OpenStatusStore(path string) (*StatusStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create status store directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open status store %s: %w", path, err)
	}

	if _, err := db.Exec(statusSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create status schema: %w", err)
	}
	return &StatusStore{db: db}, nil
}

// IsDone reports whether an item is marked completed. Unknown ids are not
// done.
func (s *StatusStore) IsDone(originalID string) (bool, error) {
	var done bool
	err := s.db.Get(&done, `SELECT done FROM item_status WHERE original_id = ?`, originalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query item status: %w", err)
	}
	return done, nil
}

// SetDone marks an item's completion status.
func (s *StatusStore) SetDone(originalID string, done bool) error {
	_, err := s.db.Exec(`
INSERT INTO item_status (original_id, done, updated_at) VALUES (?, ?, ?)
ON CONFLICT(original_id) DO UPDATE SET done = excluded.done, updated_at = excluded.updated_at`,
		originalID, done, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert item status: %w", err)
	}
	return nil
}

// DoneMap returns every completed item id in one query, for list views.
func (s *StatusStore) DoneMap() (map[string]bool, error) {
	var ids []string
	if err := s.db.Select(&ids, `SELECT original_id FROM item_status WHERE done = 1`); err != nil {
		return nil, fmt.Errorf("query completed items: %w", err)
	}

	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

// Close closes the underlying database.
func (s *StatusStore) Close() error {
	return s.db.Close()
}
