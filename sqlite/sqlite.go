// Package sqlite provides the SQLite-backed catalog cache for linkdex.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fwojciec/linkdex"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SchemaVersion is the layout version written to PRAGMA user_version.
const SchemaVersion = 4

// migrations[i] upgrades a database from version i to version i+1.
var migrations = []func(ctx context.Context, tx *sql.Tx) error{
	migrateV1,
	migrateV2,
	migrateV3,
	migrateV4,
}

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string

	// Now returns the current time. Tests override it to control staleness.
	Now func() time.Time
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path, Now: time.Now}
}

// Open opens the database connection and brings the schema up to date.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL mode is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	db.db = conn

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, opts)
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// Version returns the schema version recorded in the database.
func (db *DB) Version(ctx context.Context) (int, error) {
	var v int
	if err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// migrate upgrades the schema step by step. Databases written by an older,
// unversioned layout or by a newer binary cannot be upgraded in place, so
// their tables are dropped and recreated empty. An empty cache reports
// stale and the next refresh repopulates it.
func (db *DB) migrate(ctx context.Context) error {
	version, err := db.Version(ctx)
	if err != nil {
		return err
	}

	rebuild := version > SchemaVersion
	if version == 0 {
		legacy, err := db.tableExists(ctx, "links")
		if err != nil {
			return err
		}
		rebuild = legacy
	}
	if rebuild {
		if _, err := db.db.ExecContext(ctx, `
			DROP TABLE IF EXISTS links;
			DROP TABLE IF EXISTS entries;
			DROP TABLE IF EXISTS metadata;
			PRAGMA user_version = 0;
		`); err != nil {
			return fmt.Errorf("failed to drop incompatible schema: %w", err)
		}
		version = 0
	}

	for v := version; v < SchemaVersion; v++ {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := migrations[v](ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration to version %d: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return n > 0, err
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE entries (
			position INTEGER PRIMARY KEY,
			link TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'active'
		);

		CREATE TABLE metadata (
			key TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			count INTEGER NOT NULL
		);
	`)
	return err
}

// migrateV2 adds the external id column and backfills it from the stored
// links so catalogs saved by version 1 survive the upgrade.
func migrateV2(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		ALTER TABLE entries ADD COLUMN external_id TEXT NOT NULL DEFAULT '';
		CREATE INDEX idx_entries_external_id ON entries(external_id);
	`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT position, link FROM entries`)
	if err != nil {
		return err
	}
	type backfill struct {
		position int
		id       string
	}
	var updates []backfill
	for rows.Next() {
		var pos int
		var link string
		if err := rows.Scan(&pos, &link); err != nil {
			rows.Close()
			return err
		}
		if id := linkdex.NormalizeLink(link).ExternalID; id != "" {
			updates = append(updates, backfill{position: pos, id: id})
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE entries SET external_id = ? WHERE position = ?`, u.id, u.position); err != nil {
			return err
		}
	}
	return nil
}

func migrateV3(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		ALTER TABLE metadata ADD COLUMN snapshot_id TEXT NOT NULL DEFAULT '';
		ALTER TABLE metadata ADD COLUMN digest TEXT NOT NULL DEFAULT '';
	`)
	return err
}

// migrateV4 records when a snapshot was last confirmed against its source,
// separately from the document's own timestamp.
func migrateV4(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		ALTER TABLE metadata ADD COLUMN checked_at INTEGER NOT NULL DEFAULT 0;
	`)
	return err
}
