// Package store persists documents, category trees and content units in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path, enables foreign keys
// and runs migrations.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// _foreign_keys applies the pragma to every pooled connection.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema. It is idempotent.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL,
			page_count INTEGER NOT NULL DEFAULT 0,
			sha256 TEXT NOT NULL,
			content_status TEXT NOT NULL DEFAULT 'pending',
			content_error TEXT NOT NULL DEFAULT '',
			data BLOB NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			parent_id INTEGER,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			depth INTEGER NOT NULL,
			position INTEGER NOT NULL,
			page_start INTEGER,
			page_end INTEGER,
			source TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE,
			FOREIGN KEY (parent_id) REFERENCES categories(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_categories_doc ON categories(doc_id);`,
		`CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);`,
		`CREATE TABLE IF NOT EXISTS content_units (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			unit_index INTEGER NOT NULL,
			page_number INTEGER NOT NULL,
			text TEXT NOT NULL,
			breadcrumb TEXT NOT NULL DEFAULT '[]',
			category_id INTEGER,
			FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_units_doc ON content_units(doc_id);`,
		`CREATE INDEX IF NOT EXISTS idx_units_category ON content_units(category_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
