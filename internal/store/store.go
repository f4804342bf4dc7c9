package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades the schema to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order on open. user_version records the last applied.
var migrations = []migration{
	{
		version: 1,
		name:    "index entries by attempt",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_entries_attempt ON entries(attempt_id, seq)`,
	},
}

// currentSchemaVersion is the version a freshly opened journal reports.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is the SQLite dial journal.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	readOnly    bool
	busyTimeout int
}

// ReadOnly opens an existing journal for inspection. The file must exist,
// the schema is left untouched, and writes fail.
func ReadOnly() Option {
	return func(c *openConfig) { c.readOnly = true }
}

// WithBusyTimeout sets how long a connection waits on a locked journal,
// in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(c *openConfig) { c.busyTimeout = ms }
}

// Open opens the journal at path, creating it and applying migrations
// unless ReadOnly is given.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{busyTimeout: 5000}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// One connection: the journal has a single writer, and per-connection
	// pragmas must hold for every query.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	if !cfg.readOnly {
		if err := applySchema(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db, readOnly: cfg.readOnly}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReadOnly reports whether the store was opened for inspection only.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

func applyPragmas(db *sql.DB, cfg openConfig) error {
	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout)}
	if cfg.readOnly {
		pragmas = append(pragmas, "PRAGMA query_only = ON")
	} else {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates missing tables, then runs pending migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("record schema v%d: %w", m.version, err)
		}
	}
	return nil
}

// pragma reads a pragma value. Used by tests.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}
