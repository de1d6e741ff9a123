package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/campusdash/campusdash/internal/domain"
)

// IsNotExist reports whether err indicates a store file that has not been
// created yet.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ItemStore persists the structured database as a single JSON array. The
// file is read once at the start of a run and rewritten once at the end;
// concurrent writers are not supported.
type ItemStore struct {
	path string
}

// NewItemStore creates an ItemStore backed by path.
func NewItemStore(path string) *ItemStore {
	return &ItemStore{path: path}
}

// Path returns the backing file path.
func (s *ItemStore) Path() string {
	return s.path
}

// Load reads the full structured database. A missing file is not an error
// here; the caller decides whether a cold start is acceptable.
func (s *ItemStore) Load() ([]domain.NormalizedItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read structured database %s: %w", s.path, err)
	}

	var items []domain.NormalizedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse structured database %s: %w", s.path, err)
	}
	return items, nil
}

// Save rewrites the full structured database. The write goes to a temp
// file in the same directory followed by a rename, so readers never observe
// a half-written file.
func (s *ItemStore) Save(items []domain.NormalizedItem) error {
	if items == nil {
		items = []domain.NormalizedItem{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode structured database: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp database file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp database file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp database file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace structured database %s: %w", s.path, err)
	}
	return nil
}
