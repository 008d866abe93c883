package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fwojciec/linkdex"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ linkdex.CacheStore = (*CacheStore)(nil)

// metaKey is the metadata row describing the current snapshot.
const metaKey = "lastUpdate"

// CacheStore implements linkdex.CacheStore using SQLite.
type CacheStore struct {
	db *DB
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

// Save replaces the stored catalog in a single transaction.
func (s *CacheStore) Save(ctx context.Context, entries []linkdex.Entry, timestamp time.Time, digest string) (*linkdex.SnapshotMeta, error) {
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to begin save")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to clear entries")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (position, link, title, external_id, timestamp, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.Link, e.Title, e.ExternalID, e.Timestamp.UnixMilli(), string(e.Status)); err != nil {
			return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to save entry %q", e.Link)
		}
	}

	meta := &linkdex.SnapshotMeta{
		ID:        uuid.New().String(),
		Timestamp: time.UnixMilli(timestamp.UnixMilli()).UTC(),
		Count:     len(entries),
		Digest:    digest,
		CheckedAt: time.UnixMilli(s.db.Now().UnixMilli()).UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO metadata (key, timestamp, count, snapshot_id, digest, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, metaKey, meta.Timestamp.UnixMilli(), meta.Count, meta.ID, meta.Digest, meta.CheckedAt.UnixMilli()); err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to save metadata")
	}

	if err := tx.Commit(); err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to commit save")
	}
	return meta, nil
}

// Load returns the stored catalog in position order. Metadata and entries
// are read in one transaction so a concurrent Save is seen whole or not at all.
func (s *CacheStore) Load(ctx context.Context) (*linkdex.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to begin load")
	}
	defer tx.Rollback()

	meta, err := readMeta(ctx, tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT link, title, external_id, timestamp, status
		FROM entries
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to load entries")
	}
	defer rows.Close()

	var entries []linkdex.Entry
	for rows.Next() {
		var e linkdex.Entry
		var ts int64
		var status string
		if err := rows.Scan(&e.Link, &e.Title, &e.ExternalID, &ts, &status); err != nil {
			return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to scan entry")
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.Status = linkdex.EntryStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to load entries")
	}

	return &linkdex.Snapshot{
		SchemaVersion: SchemaVersion,
		Entries:       entries,
		Meta:          meta,
	}, nil
}

// IsStale reports whether the snapshot is missing or was last checked more
// than maxAge ago.
func (s *CacheStore) IsStale(ctx context.Context, maxAge time.Duration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return true, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to begin staleness check")
	}
	defer tx.Rollback()

	meta, err := readMeta(ctx, tx)
	if err != nil {
		return true, err
	}
	return linkdex.Stale(meta, maxAge, s.db.Now()), nil
}

// Touch marks the stored snapshot as checked now.
func (s *CacheStore) Touch(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE metadata SET checked_at = ? WHERE key = ?`, s.db.Now().UnixMilli(), metaKey); err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to touch snapshot")
	}
	return nil
}

// Invalidate removes all entries and metadata in one transaction.
func (s *CacheStore) Invalidate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to begin invalidate")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries; DELETE FROM metadata;`); err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to invalidate cache")
	}
	if err := tx.Commit(); err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to commit invalidate")
	}
	return nil
}

func readMeta(ctx context.Context, tx *sql.Tx) (*linkdex.SnapshotMeta, error) {
	var meta linkdex.SnapshotMeta
	var ts, checked int64
	err := tx.QueryRowContext(ctx, `
		SELECT timestamp, count, snapshot_id, digest, checked_at FROM metadata WHERE key = ?
	`, metaKey).Scan(&ts, &meta.Count, &meta.ID, &meta.Digest, &checked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to read metadata")
	}
	meta.Timestamp = time.UnixMilli(ts).UTC()
	// Rows migrated from version 3 carry no check time.
	if checked > 0 {
		meta.CheckedAt = time.UnixMilli(checked).UTC()
	}
	return &meta, nil
}
