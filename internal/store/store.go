package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a model store by one schema version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are applied in order to stores whose user_version is below
// the migration's version. A store created by the current schema.sql still
// runs every step; each one must therefore be a no-op on a fresh schema.
var migrations = []migration{
	{1, "index models by hash", `CREATE INDEX IF NOT EXISTS idx_models_hash ON models(hash)`},
}

// currentSchemaVersion is the user_version of a fully migrated store.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is a SQLite file holding compiled models: one row per model plus
// its variable and constraint catalogs.
type Store struct {
	db *sql.DB
}

// Open opens the model store at path, creating the file and the schema if
// needed and migrating older stores. Opening an up-to-date store changes
// nothing.
//
// Connection settings:
//   - journal_mode=WAL so ListModels can read while a Session is writing
//   - synchronous=NORMAL; a lost tail after power failure only loses the
//     last committed models, never corrupts earlier ones
//   - busy_timeout=5000 for concurrent dopt processes on the same file
//   - foreign_keys=ON, required by the ON DELETE CASCADE of DeleteModel
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open model store %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and Session holds its
	// transaction on this connection until Commit or Rollback.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the store. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle, for tests and ad-hoc inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("configure model store: %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create model tables: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies every pending migration, each in its own
// transaction together with the user_version bump.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate to v%d: set schema version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}
	return nil
}

// verifyPragma reports an error unless pragma name reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("read pragma %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("pragma %s = %q, want %q", name, value, expected)
	}
	return nil
}
