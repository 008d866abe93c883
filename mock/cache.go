package mock

import (
	"context"
	"time"

	"github.com/fwojciec/linkdex"
)

var _ linkdex.CacheStore = (*CacheStore)(nil)

// CacheStore is a mock implementation of linkdex.CacheStore.
type CacheStore struct {
	SaveFn       func(ctx context.Context, entries []linkdex.Entry, timestamp time.Time, digest string) (*linkdex.SnapshotMeta, error)
	LoadFn       func(ctx context.Context) (*linkdex.Snapshot, error)
	IsStaleFn    func(ctx context.Context, maxAge time.Duration) (bool, error)
	TouchFn      func(ctx context.Context) error
	InvalidateFn func(ctx context.Context) error
}

func (s *CacheStore) Save(ctx context.Context, entries []linkdex.Entry, timestamp time.Time, digest string) (*linkdex.SnapshotMeta, error) {
	return s.SaveFn(ctx, entries, timestamp, digest)
}

func (s *CacheStore) Load(ctx context.Context) (*linkdex.Snapshot, error) {
	return s.LoadFn(ctx)
}

func (s *CacheStore) IsStale(ctx context.Context, maxAge time.Duration) (bool, error) {
	return s.IsStaleFn(ctx, maxAge)
}

func (s *CacheStore) Touch(ctx context.Context) error {
	return s.TouchFn(ctx)
}

func (s *CacheStore) Invalidate(ctx context.Context) error {
	return s.InvalidateFn(ctx)
}
