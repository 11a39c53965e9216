package localstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS collections (
	ns         TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

// SQLiteStore is the on-disk cache implementation. One row per
// collection namespace, overwritten wholesale on every save.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the cache database at path. Safe to call
// repeatedly; schema creation is idempotent.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to cache database: %w", err)
	}

	// SQLite supports a single writer; keep one connection to avoid
	// SQLITE_BUSY under the write-through queue.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ns string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO collections (ns, data, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(ns) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, ns, data)
	if err != nil {
		return fmt.Errorf("save collection %q: %w", ns, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ns string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM collections WHERE ns = ?`, ns).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("load collection %q: %w", ns, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %q: %w", ns, err)
	}
	return data, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
