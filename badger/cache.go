package badger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fwojciec/linkdex"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ linkdex.CacheStore = (*CacheStore)(nil)

// entryRecord is the stored form of an entry. Timestamps are epoch millis.
type entryRecord struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	ExternalID string `json:"externalId,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	Status     string `json:"status"`
}

type metaRecord struct {
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Count     int    `json:"count"`
	Digest    string `json:"digest,omitempty"`
	CheckedAt int64  `json:"checkedAt,omitempty"`
}

// CacheStore implements linkdex.CacheStore using BadgerDB.
type CacheStore struct {
	db *DB
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

// Save replaces the stored catalog in one read-write transaction.
func (s *CacheStore) Save(ctx context.Context, entries []linkdex.Entry, timestamp time.Time, digest string) (*linkdex.SnapshotMeta, error) {
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, err
		}
	}

	meta := &linkdex.SnapshotMeta{
		ID:        uuid.New().String(),
		Timestamp: time.UnixMilli(timestamp.UnixMilli()).UTC(),
		Count:     len(entries),
		Digest:    digest,
		CheckedAt: time.UnixMilli(s.db.Now().UnixMilli()).UTC(),
	}

	err := s.db.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, []byte(entryPrefix)); err != nil {
			return err
		}
		for i, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := json.Marshal(entryRecord{
				Title:      e.Title,
				Link:       e.Link,
				ExternalID: e.ExternalID,
				Timestamp:  e.Timestamp.UnixMilli(),
				Status:     string(e.Status),
			})
			if err != nil {
				return err
			}
			if err := txn.Set(entryKey(i), val); err != nil {
				return err
			}
		}
		val, err := json.Marshal(metaRecord{
			ID:        meta.ID,
			Timestamp: meta.Timestamp.UnixMilli(),
			Count:     meta.Count,
			Digest:    meta.Digest,
			CheckedAt: meta.CheckedAt.UnixMilli(),
		})
		if err != nil {
			return err
		}
		return txn.Set([]byte(metaKey), val)
	})
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to save catalog")
	}
	return meta, nil
}

// Load returns the stored catalog in position order.
func (s *CacheStore) Load(ctx context.Context) (*linkdex.Snapshot, error) {
	snap := &linkdex.Snapshot{SchemaVersion: SchemaVersion}

	err := s.db.db.View(func(txn *badger.Txn) error {
		meta, err := readMeta(txn)
		if err != nil {
			return err
		}
		snap.Meta = meta

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec entryRecord
			if err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			snap.Entries = append(snap.Entries, linkdex.Entry{
				Title:      rec.Title,
				Link:       rec.Link,
				ExternalID: rec.ExternalID,
				Timestamp:  time.UnixMilli(rec.Timestamp).UTC(),
				Status:     linkdex.EntryStatus(rec.Status),
			})
		}
		return nil
	})
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to load catalog")
	}
	return snap, nil
}

// IsStale reports whether the snapshot is missing or older than maxAge.
func (s *CacheStore) IsStale(ctx context.Context, maxAge time.Duration) (bool, error) {
	var meta *linkdex.SnapshotMeta
	err := s.db.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = readMeta(txn)
		return err
	})
	if err != nil {
		return true, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to read metadata")
	}
	return linkdex.Stale(meta, maxAge, s.db.Now()), nil
}

// Touch rewrites the metadata check time. An empty store is left as is.
func (s *CacheStore) Touch(ctx context.Context) error {
	err := s.db.db.Update(func(txn *badger.Txn) error {
		rec, err := readMetaRecord(txn)
		if err != nil || rec == nil {
			return err
		}
		rec.CheckedAt = s.db.Now().UnixMilli()
		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set([]byte(metaKey), val)
	})
	if err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to touch cache")
	}
	return nil
}

// Invalidate removes all entries and metadata in one transaction.
func (s *CacheStore) Invalidate(ctx context.Context) error {
	err := s.db.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, []byte(entryPrefix)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaKey))
	})
	if err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to invalidate cache")
	}
	return nil
}

func readMeta(txn *badger.Txn) (*linkdex.SnapshotMeta, error) {
	rec, err := readMetaRecord(txn)
	if err != nil || rec == nil {
		return nil, err
	}
	meta := &linkdex.SnapshotMeta{
		ID:        rec.ID,
		Timestamp: time.UnixMilli(rec.Timestamp).UTC(),
		Count:     rec.Count,
		Digest:    rec.Digest,
	}
	if rec.CheckedAt > 0 {
		meta.CheckedAt = time.UnixMilli(rec.CheckedAt).UTC()
	}
	return meta, nil
}

func readMetaRecord(txn *badger.Txn) (*metaRecord, error) {
	item, err := txn.Get([]byte(metaKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec metaRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

// deletePrefix removes every key starting with prefix within txn.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := txn.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
