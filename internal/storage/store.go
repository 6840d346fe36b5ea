// Package storage is the SQLite persistence layer of the ledger engine.
// Every write path (expense create, field update, cascading delete, each
// import row) runs as one all-or-nothing transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spendbook/internal/cache"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database. Reference-name lookups for the two
// permanent registries go through a small read-through cache: category and
// payment-method names are never deleted or renamed, so cached ids cannot
// go stale.
type Store struct {
	db  *sql.DB
	ids *cache.LRUCache[int64]
}

// queryer is satisfied by both *sql.DB and *sql.Tx so lookups can run
// inside or outside a transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:  db,
		ids: cache.NewLRUCache[int64](256, time.Hour),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for read-only collaborators (the report
// aggregator issues its own aggregate queries against the same tables).
func (s *Store) DB() *sql.DB {
	return s.db
}
