// Package fs provides a JSON file-backed catalog cache for linkdex.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fwojciec/linkdex"
	"github.com/google/uuid"
)

// SchemaVersion is the snapshot file format version.
const SchemaVersion = 1

// Ensure CacheStore implements linkdex.CacheStore at compile time.
var _ linkdex.CacheStore = (*CacheStore)(nil)

// snapshotFile is the on-disk layout. Timestamps are epoch millis.
type snapshotFile struct {
	SchemaVersion int           `json:"schemaVersion"`
	Entries       []entryRecord `json:"entries"`
	LastUpdate    *metaRecord   `json:"lastUpdate,omitempty"`
}

type entryRecord struct {
	Link       string `json:"link"`
	ExternalID string `json:"externalId,omitempty"`
	Title      string `json:"title"`
	Timestamp  int64  `json:"timestamp"`
	Status     string `json:"status"`
}

type metaRecord struct {
	Timestamp int64  `json:"timestamp"`
	Count     int    `json:"count"`
	ID        string `json:"id,omitempty"`
	Digest    string `json:"digest,omitempty"`
	CheckedAt int64  `json:"checkedAt,omitempty"`
}

// CacheStore implements linkdex.CacheStore as a single JSON file.
// Saves write a temporary file next to the target and rename it into place.
type CacheStore struct {
	path string
	mu   sync.Mutex

	// Now returns the current time. Tests override it to control staleness.
	Now func() time.Time
}

// NewCacheStore creates a new CacheStore writing to path.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path, Now: time.Now}
}

// Save atomically replaces the snapshot file.
func (s *CacheStore) Save(ctx context.Context, entries []linkdex.Entry, timestamp time.Time, digest string) (*linkdex.SnapshotMeta, error) {
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := &linkdex.SnapshotMeta{
		ID:        uuid.New().String(),
		Timestamp: time.UnixMilli(timestamp.UnixMilli()).UTC(),
		Count:     len(entries),
		Digest:    digest,
		CheckedAt: time.UnixMilli(s.Now().UnixMilli()).UTC(),
	}

	file := snapshotFile{
		SchemaVersion: SchemaVersion,
		Entries:       make([]entryRecord, 0, len(entries)),
		LastUpdate: &metaRecord{
			Timestamp: meta.Timestamp.UnixMilli(),
			Count:     meta.Count,
			ID:        meta.ID,
			Digest:    meta.Digest,
			CheckedAt: meta.CheckedAt.UnixMilli(),
		},
	}
	for _, e := range entries {
		file.Entries = append(file.Entries, entryRecord{
			Link:       e.Link,
			ExternalID: e.ExternalID,
			Title:      e.Title,
			Timestamp:  e.Timestamp.UnixMilli(),
			Status:     string(e.Status),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(file); err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to save catalog")
	}
	return meta, nil
}

// Load reads the snapshot file. A missing file, or one written with a
// different schema version, reads as an empty store.
func (s *CacheStore) Load(ctx context.Context) (*linkdex.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return nil, linkdex.WrapError(linkdex.ESTORAGE, err, "failed to load catalog")
	}

	snap := &linkdex.Snapshot{SchemaVersion: SchemaVersion}
	if file == nil {
		return snap, nil
	}
	for _, rec := range file.Entries {
		snap.Entries = append(snap.Entries, linkdex.Entry{
			Title:      rec.Title,
			Link:       rec.Link,
			ExternalID: rec.ExternalID,
			Timestamp:  time.UnixMilli(rec.Timestamp).UTC(),
			Status:     linkdex.EntryStatus(rec.Status),
		})
	}
	if rec := file.LastUpdate; rec != nil {
		snap.Meta = &linkdex.SnapshotMeta{
			ID:        rec.ID,
			Timestamp: time.UnixMilli(rec.Timestamp).UTC(),
			Count:     rec.Count,
			Digest:    rec.Digest,
		}
		if rec.CheckedAt > 0 {
			snap.Meta.CheckedAt = time.UnixMilli(rec.CheckedAt).UTC()
		}
	}
	return snap, nil
}

// IsStale reports whether the snapshot is missing or older than maxAge.
func (s *CacheStore) IsStale(ctx context.Context, maxAge time.Duration) (bool, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return true, err
	}
	return linkdex.Stale(snap.Meta, maxAge, s.Now()), nil
}

// Touch records that the snapshot was just confirmed against the source.
func (s *CacheStore) Touch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to touch cache")
	}
	if file == nil || file.LastUpdate == nil {
		return nil
	}
	file.LastUpdate.CheckedAt = s.Now().UnixMilli()
	if err := s.write(*file); err != nil {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to touch cache")
	}
	return nil
}

// Invalidate removes the snapshot file.
func (s *CacheStore) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return linkdex.WrapError(linkdex.ESTORAGE, err, "failed to invalidate cache")
	}
	return nil
}

func (s *CacheStore) read() (*snapshotFile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.SchemaVersion != SchemaVersion {
		return nil, nil
	}
	return &file, nil
}

func (s *CacheStore) write(file snapshotFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	// Remove is a no-op once the rename has succeeded.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
