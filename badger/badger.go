// Package badger provides a BadgerDB-backed catalog cache for linkdex.
package badger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// SchemaVersion is the value layout version stored under schemaKey.
const SchemaVersion = 1

// Key layout.
const (
	entryPrefix = "entry/"
	metaKey     = "meta/last"
	schemaKey   = "meta/schema"
)

// entryKey encodes position big-endian so iteration follows catalog order.
func entryKey(position int) []byte {
	key := make([]byte, len(entryPrefix)+8)
	copy(key, entryPrefix)
	binary.BigEndian.PutUint64(key[len(entryPrefix):], uint64(position))
	return key
}

// loggerAdapter adapts slog.Logger to the badger.Logger interface.
type loggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// DB wraps a BadgerDB instance.
type DB struct {
	db     *badger.DB
	path   string
	memory bool
	logger *slog.Logger

	// Now returns the current time. Tests override it to control staleness.
	Now func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithInMemory keeps all data in memory. The path is ignored.
func WithInMemory() Option {
	return func(db *DB) {
		db.memory = true
	}
}

// WithLogger routes badger's internal logging to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		db.logger = logger
	}
}

// NewDB creates a new DB stored in the directory at path.
func NewDB(path string, opts ...Option) *DB {
	db := &DB{path: path, logger: slog.Default(), Now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Open opens the database, creating the directory if needed, and
// reconciles the stored schema version.
func (db *DB) Open() error {
	var opts badger.Options
	if db.memory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(db.path, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		opts = badger.DefaultOptions(db.path)
	}
	opts.Logger = &loggerAdapter{logger: db.logger}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.db = bdb

	if err := db.migrate(); err != nil {
		bdb.Close()
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// Version returns the stored schema version, or 0 when none is recorded.
func (db *DB) Version() (int, error) {
	var version int
	err := db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			version, err = strconv.Atoi(string(val))
			return err
		})
	})
	return version, err
}

// migrate drops everything written by a newer binary. Older layouts decode
// into the current one with missing fields left zero, so only the version
// is bumped.
func (db *DB) migrate() error {
	version, err := db.Version()
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		db.logger.Warn("dropping cache written by newer version", "version", version, "supported", SchemaVersion)
		if err := db.db.DropAll(); err != nil {
			return err
		}
	}
	if version == SchemaVersion {
		return nil
	}
	return db.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), []byte(strconv.Itoa(SchemaVersion)))
	})
}
