package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a document key or run id has no row.
var ErrNotFound = errors.New("not found")

// connPragmas are applied on every open. The order matters: journal_mode
// must be switched before any write.
var connPragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// tableUpgrades[i] moves the store's own tables from user_version i to i+1.
// Append only; never edit a shipped entry.
var tableUpgrades = []string{
	// 1: per-step history lookups by name
	`CREATE INDEX IF NOT EXISTS idx_migration_steps_name ON migration_steps(name, run_id)`,
}

// Store keeps documents and their migration history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory store. Opening an already initialized file is a no-op apart from
// pending table upgrades.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection: sqlite has a single writer and ":memory:" databases are
	// per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range connPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return upgradeTables(db)
}

func tableVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func upgradeTables(db *sql.DB) error {
	from, err := tableVersion(db)
	if err != nil {
		return err
	}
	latest := len(tableUpgrades)
	if from > latest {
		return fmt.Errorf("tables are at version %d, this build understands up to %d", from, latest)
	}
	for v := from; v < latest; v++ {
		if _, err := db.Exec(tableUpgrades[v]); err != nil {
			return fmt.Errorf("upgrade tables to %d: %w", v+1, err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", latest)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// Close releases the connection. Calling it on a zero Store is allowed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for seeding fixtures and ad hoc inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// nextSeq allocates the next seq value for table inside tx.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	q := fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) + 1 FROM %s", table)
	if err := tx.QueryRowContext(ctx, q).Scan(&seq); err != nil {
		return 0, fmt.Errorf("allocate %s seq: %w", table, err)
	}
	return seq, nil
}

// pragma reads a single pragma value as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
