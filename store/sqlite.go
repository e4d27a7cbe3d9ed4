// Package store keeps imported bar series in SQLite so runs can load them
// by symbol and interval instead of re-parsing files.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("store: not found")

type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies Schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
