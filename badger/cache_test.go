package badger_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/linkdex"
	"github.com/fwojciec/linkdex/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTime = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func sampleEntries() []linkdex.Entry {
	return []linkdex.Entry{
		{Title: "Folder", Link: "https://mega.nz/folder/Abc#key", ExternalID: "Abc", Timestamp: sampleTime, Status: linkdex.StatusActive},
		{Title: "Plain", Link: "https://plain.example", Timestamp: sampleTime, Status: linkdex.StatusActive},
	}
}

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db := badger.NewDB("", badger.WithInMemory())
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCacheStore(t *testing.T) {
	t.Parallel()

	t.Run("round-trips entries and metadata", func(t *testing.T) {
		t.Parallel()

		store := badger.NewCacheStore(setupTestDB(t))
		ctx := context.Background()

		meta, err := store.Save(ctx, sampleEntries(), sampleTime, "digest-1")
		require.NoError(t, err)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, badger.SchemaVersion, snap.SchemaVersion)
		assert.Equal(t, sampleEntries(), snap.Entries)
		assert.Equal(t, meta, snap.Meta)
	})

	t.Run("keeps catalog order beyond single digit positions", func(t *testing.T) {
		t.Parallel()

		store := badger.NewCacheStore(setupTestDB(t))
		ctx := context.Background()

		var entries []linkdex.Entry
		for i := range 12 {
			entries = append(entries, linkdex.Entry{
				Title:     string(rune('a' + i)),
				Link:      "https://example.com/" + string(rune('a'+i)),
				Timestamp: sampleTime,
				Status:    linkdex.StatusActive,
			})
		}
		_, err := store.Save(ctx, entries, sampleTime, "")
		require.NoError(t, err)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, entries, snap.Entries)
	})

	t.Run("a smaller save drops leftover entries", func(t *testing.T) {
		t.Parallel()

		store := badger.NewCacheStore(setupTestDB(t))
		ctx := context.Background()

		_, err := store.Save(ctx, sampleEntries(), sampleTime, "")
		require.NoError(t, err)
		_, err = store.Save(ctx, sampleEntries()[:1], sampleTime, "")
		require.NoError(t, err)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Entries, 1)
	})

	t.Run("empty store is stale with no metadata", func(t *testing.T) {
		t.Parallel()

		store := badger.NewCacheStore(setupTestDB(t))
		ctx := context.Background()

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Entries)
		assert.Nil(t, snap.Meta)

		stale, err := store.IsStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.True(t, stale)
	})

	t.Run("staleness follows the time of the last save", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		now := sampleTime
		db.Now = func() time.Time { return now }
		store := badger.NewCacheStore(db)
		ctx := context.Background()

		_, err := store.Save(ctx, sampleEntries(), sampleTime.Add(-24*time.Hour), "")
		require.NoError(t, err)
		now = sampleTime.Add(10 * time.Minute)

		stale, err := store.IsStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.False(t, stale)

		stale, err = store.IsStale(ctx, 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, stale)
	})

	t.Run("touch renews the check time and keeps the snapshot", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		now := sampleTime
		db.Now = func() time.Time { return now }
		store := badger.NewCacheStore(db)
		ctx := context.Background()

		_, err := store.Save(ctx, sampleEntries(), sampleTime, "d1")
		require.NoError(t, err)
		now = sampleTime.Add(3 * time.Hour)
		require.NoError(t, store.Touch(ctx))

		stale, err := store.IsStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.False(t, stale)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, sampleEntries(), snap.Entries)
		assert.Equal(t, sampleTime, snap.Meta.Timestamp)
		assert.Equal(t, now, snap.Meta.CheckedAt)
		assert.Equal(t, "d1", snap.Meta.Digest)
	})

	t.Run("touch on an empty store is a no-op", func(t *testing.T) {
		t.Parallel()

		store := badger.NewCacheStore(setupTestDB(t))
		ctx := context.Background()

		require.NoError(t, store.Touch(ctx))

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, snap.Meta)
	})

	t.Run("invalidate removes entries and metadata", func(t *testing.T) {
		t.Parallel()

		store := badger.NewCacheStore(setupTestDB(t))
		ctx := context.Background()

		_, err := store.Save(ctx, sampleEntries(), sampleTime, "")
		require.NoError(t, err)
		require.NoError(t, store.Invalidate(ctx))

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Entries)
		assert.Nil(t, snap.Meta)
	})

	t.Run("rejects invalid entries without touching the snapshot", func(t *testing.T) {
		t.Parallel()

		store := badger.NewCacheStore(setupTestDB(t))
		ctx := context.Background()

		_, err := store.Save(ctx, sampleEntries(), sampleTime, "d1")
		require.NoError(t, err)

		_, err = store.Save(ctx, []linkdex.Entry{{Title: "x"}}, sampleTime, "d2")
		assert.Equal(t, linkdex.EINVALID, linkdex.ErrorCode(err))

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "d1", snap.Meta.Digest)
	})
}

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("records the schema version", func(t *testing.T) {
		t.Parallel()

		version, err := setupTestDB(t).Version()
		require.NoError(t, err)
		assert.Equal(t, badger.SchemaVersion, version)
	})

	t.Run("persists data in a directory across reopen", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		first := badger.NewDB(dir)
		require.NoError(t, first.Open())
		_, err := badger.NewCacheStore(first).Save(ctx, sampleEntries(), sampleTime, "")
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second := badger.NewDB(dir)
		require.NoError(t, second.Open())
		t.Cleanup(func() { second.Close() })

		snap, err := badger.NewCacheStore(second).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, sampleEntries(), snap.Entries)
	})
}
