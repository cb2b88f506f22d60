package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragmas are applied once per Open. The pool holds a single connection, so
// they hold for every statement the Store runs.
var pragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migrations[i] upgrades a journal database from schema version i+1 to i+2.
// schema.sql always describes version 1.
var migrations []func(tx *sql.Tx) error

// currentSchemaVersion is the version Open leaves the database at.
func currentSchemaVersion() int {
	return len(migrations) + 1
}

// Store keeps distribution journals in SQLite. A Store is safe for
// concurrent use; writes from several processes are serialized by SQLite
// and by the (distribution_id, seq) uniqueness constraint.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal database at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	// One connection keeps an in-memory database alive and avoids
	// SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to journal database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	return migrate(db)
}

// migrate brings the database to currentSchemaVersion. A database written by
// a newer schema is refused rather than downgraded.
func migrate(db *sql.DB) error {
	target := currentSchemaVersion()
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > target {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, target)
	}
	if version == 0 {
		// Fresh database: schema.sql just created version 1.
		version = 1
	}

	for ; version < target; version++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration to %d: %w", version+1, err)
		}
		if err := migrations[version-1](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to %d: %w", version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration to %d: %w", version+1, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying database for inspection and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// pragma returns the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query pragma %s: %w", name, err)
	}
	return value, nil
}
