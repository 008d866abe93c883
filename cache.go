package linkdex

import (
	"context"
	"time"
)

// CacheStore persists the catalog snapshot between runs.
//
// A snapshot is always replaced as a whole: readers observe either the
// previous snapshot or the new one, never a mix of both.
type CacheStore interface {
	// Save replaces the stored snapshot with entries, stamped with
	// timestamp and the digest of the source document. CheckedAt is set to
	// the store's current time. Every entry is validated first. On failure
	// the previous snapshot is left intact and ESTORAGE is returned.
	Save(ctx context.Context, entries []Entry, timestamp time.Time, digest string) (*SnapshotMeta, error)

	// Load returns the stored snapshot. An empty store returns a snapshot
	// with no entries and nil Meta.
	Load(ctx context.Context) (*Snapshot, error)

	// IsStale reports whether the stored snapshot is missing or was last
	// checked more than maxAge ago.
	IsStale(ctx context.Context, maxAge time.Duration) (bool, error)

	// Touch records that the stored snapshot was confirmed against the
	// source at the store's current time. It is a no-op on an empty store.
	Touch(ctx context.Context) error

	// Invalidate removes all entries and metadata.
	Invalidate(ctx context.Context) error
}

// Stale reports whether meta is missing or was last checked more than maxAge
// before now. Snapshots written before CheckedAt existed fall back to their
// document timestamp.
func Stale(meta *SnapshotMeta, maxAge time.Duration, now time.Time) bool {
	if meta == nil {
		return true
	}
	checked := meta.CheckedAt
	if checked.IsZero() {
		checked = meta.Timestamp
	}
	return now.Sub(checked) > maxAge
}
