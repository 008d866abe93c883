package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/linkdex"
)

// Ensure LoggingCacheStore implements linkdex.CacheStore.
var _ linkdex.CacheStore = (*LoggingCacheStore)(nil)

// LoggingCacheStore wraps a CacheStore with logging.
type LoggingCacheStore struct {
	next   linkdex.CacheStore
	logger *slog.Logger
}

// NewLoggingCacheStore creates a new LoggingCacheStore.
func NewLoggingCacheStore(next linkdex.CacheStore, logger *slog.Logger) *LoggingCacheStore {
	return &LoggingCacheStore{next: next, logger: logger}
}

// Save delegates to the wrapped store and logs the operation.
func (s *LoggingCacheStore) Save(ctx context.Context, entries []linkdex.Entry, timestamp time.Time, digest string) (meta *linkdex.SnapshotMeta, err error) {
	defer func(begin time.Time) {
		s.logger.Info("cache save",
			"count", len(entries),
			"timestamp", timestamp,
			"digest", digest,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Save(ctx, entries, timestamp, digest)
}

// Load delegates to the wrapped store and logs the operation.
func (s *LoggingCacheStore) Load(ctx context.Context) (snap *linkdex.Snapshot, err error) {
	defer func(begin time.Time) {
		var count int
		if snap != nil {
			count = len(snap.Entries)
		}
		s.logger.Info("cache load",
			"count", count,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Load(ctx)
}

// IsStale delegates to the wrapped store and logs the operation.
func (s *LoggingCacheStore) IsStale(ctx context.Context, maxAge time.Duration) (stale bool, err error) {
	defer func(begin time.Time) {
		s.logger.Info("cache staleness",
			"max_age", maxAge,
			"stale", stale,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.IsStale(ctx, maxAge)
}

// Touch delegates to the wrapped store and logs the operation.
func (s *LoggingCacheStore) Touch(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("cache touch",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Touch(ctx)
}

// Invalidate delegates to the wrapped store and logs the operation.
func (s *LoggingCacheStore) Invalidate(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("cache invalidate",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Invalidate(ctx)
}
