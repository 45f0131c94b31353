package main

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"

	// SQLite driver
	_ "modernc.org/sqlite"
)

// Store remembers content that is already formatted, so that unchanged
// files are not parsed again on later runs. A nil *Store remembers nothing.
type Store struct {
	db   *sql.DB
	path string
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS formatted (
	hash TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	checked_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_formatted_path ON formatted(path);
`

// OpenStore opens the store at path, creating it if necessary.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// one writer; watch events and fmt share the handle
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// defaultStorePath is used when the configuration names no cache file.
func defaultStorePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "jsonatafmt", "cache.db"), nil
}

// storeKey identifies content formatted with opts.
func storeKey(opts format.Options, content []byte) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%d:%d:%t\n", opts.PrintWidth, opts.TabWidth, opts.UseTabs)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Known reports whether key was remembered.
func (s *Store) Known(key string) (bool, error) {
	if s == nil {
		return false, nil
	}
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM formatted WHERE hash = ?", key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying cache: %w", err)
	}
	return n > 0, nil
}

// Remember records that key, read from path, is formatted.
func (s *Store) Remember(key, path string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO formatted (hash, path, checked_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		key, path,
	)
	if err != nil {
		return fmt.Errorf("updating cache: %w", err)
	}
	return nil
}

// Forget drops every entry recorded for path.
func (s *Store) Forget(path string) error {
	if s == nil {
		return nil
	}
	if _, err := s.db.Exec("DELETE FROM formatted WHERE path = ?", path); err != nil {
		return fmt.Errorf("updating cache: %w", err)
	}
	return nil
}

// Count returns the number of remembered entries.
func (s *Store) Count() (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM formatted").Scan(&n); err != nil {
		return 0, fmt.Errorf("querying cache: %w", err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// openStore opens the configured store.
func (a *app) openStore() (*Store, error) {
	path := a.cfg.Cache.Path
	if path == "" {
		var err error
		if path, err = defaultStorePath(); err != nil {
			return nil, fmt.Errorf("locating cache directory: %w", err)
		}
	}
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opened cache", "path", path)
	return store, nil
}
