// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"partnerledger/internal/errs"
	"partnerledger/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store backed by the database at dbPath. It creates parent
// directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Persistencef("create database directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errs.Persistencef("open database", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errs.Persistencef("enable foreign keys", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, errs.Persistencef("run migrations", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
