// Package refresh keeps the catalog cache fresh and serves search over the
// most recently published index.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/linkdex"
	"github.com/fwojciec/linkdex/search"
	"golang.org/x/sync/singleflight"
)

// Compile-time interface verification.
var (
	_ linkdex.CatalogService = (*Service)(nil)
	_ linkdex.Searcher       = (*Service)(nil)
)

// Defaults applied by NewService.
const (
	DefaultMaxAge     = time.Hour
	DefaultAttempts   = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultSentinel   = "Loading..."
)

// State is the position of a Service in its refresh cycle.
type State int32

const (
	Idle State = iota
	Fetching
	Retrying
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Retrying:
		return "retrying"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Service implements linkdex.CatalogService and linkdex.Searcher.
type Service struct {
	target    string
	fetcher   linkdex.DocumentFetcher
	extractor linkdex.Extractor
	cache     linkdex.CacheStore

	maxAge   time.Duration
	attempts int
	delay    time.Duration
	sentinel string
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group
	index atomic.Pointer[search.Index]
	state atomic.Int32
}

// Option configures a Service.
type Option func(*Service)

// WithMaxAge sets how old the cached snapshot may get before Refresh fetches
// a new one.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		s.maxAge = d
	}
}

// WithRetry sets the total number of fetch attempts per refresh and the
// fixed delay between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay >= 0 {
			s.delay = delay
		}
	}
}

// WithSentinel sets the substring that marks a document that has not
// finished rendering.
func WithSentinel(sentinel string) Option {
	return func(s *Service) {
		s.sentinel = sentinel
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used to stamp documents that carry no
// timestamp of their own.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service that refreshes the catalog published at target.
func NewService(target string, fetcher linkdex.DocumentFetcher, extractor linkdex.Extractor, cache linkdex.CacheStore, opts ...Option) *Service {
	s := &Service{
		target:    target,
		fetcher:   fetcher,
		extractor: extractor,
		cache:     cache,
		maxAge:    DefaultMaxAge,
		attempts:  DefaultAttempts,
		delay:     DefaultRetryDelay,
		sentinel:  DefaultSentinel,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current refresh state.
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.Debug("refresh state", "from", prev.String(), "to", next.String())
	}
}

type outcome struct {
	result *linkdex.RefreshResult
	err    error
}

// Refresh returns the current catalog, fetching a new one when the cache is
// stale or force is set.
//
// Concurrent calls with the same force flag share a single fetch. The shared
// work is not tied to any one caller: a caller whose ctx ends stops waiting
// but the refresh still completes for the others.
func (s *Service) Refresh(ctx context.Context, force bool) (*linkdex.RefreshResult, error) {
	key := "refresh:" + s.target
	if force {
		key += ":force"
	}

	work := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		result, err := s.refresh(work, force)
		return outcome{result: result, err: err}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		o := r.Val.(outcome)
		return cloneResult(o.result), o.err
	}
}

func (s *Service) refresh(ctx context.Context, force bool) (*linkdex.RefreshResult, error) {
	if !force {
		if result := s.fresh(ctx); result != nil {
			return result, nil
		}
	}

	doc, err := s.fetchWithRetry(ctx)
	if err != nil {
		return s.fallback(ctx, err)
	}
	return s.apply(ctx, doc, force)
}

// fresh returns the cached catalog when it is recent enough to serve as is.
func (s *Service) fresh(ctx context.Context) *linkdex.RefreshResult {
	stale, err := s.cache.IsStale(ctx, s.maxAge)
	if err != nil {
		s.logger.Warn("cache staleness check failed", "err", err)
		return nil
	}
	if stale {
		return nil
	}

	snap, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("cache load failed", "err", err)
		return nil
	}
	if len(snap.Entries) == 0 {
		return nil
	}

	s.publishIfMissing(snap.Entries)
	s.setState(Ready)
	return &linkdex.RefreshResult{
		Entries:   snap.Entries,
		FromCache: true,
		Timestamp: metaTimestamp(snap.Meta),
	}
}

// document is one usable fetch of the catalog.
type document struct {
	entries []linkdex.Entry
	ts      time.Time
	stamped bool
	digest  string
}

func (s *Service) fetchWithRetry(ctx context.Context) (*document, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			s.setState(Retrying)
			s.logger.Info("retrying refresh", "target", s.target, "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		s.setState(Fetching)
		doc, err := s.fetch(ctx)
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Service) fetch(ctx context.Context) (*document, error) {
	data, err := s.fetcher.Fetch(ctx, s.target)
	if err != nil {
		return nil, err
	}

	ext, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	for _, skipped := range ext.Skipped {
		s.logger.Warn("skipped row", "err", skipped)
	}

	switch {
	case len(ext.Rows) == 0:
		return nil, linkdex.Errorf(linkdex.EEMPTY, "document has no rows")
	case s.placeholder(ext.Rows):
		return nil, linkdex.Errorf(linkdex.EEMPTY, "document has not finished rendering")
	}

	doc := &document{digest: Digest(data)}
	if ext.DocumentTimestamp != nil {
		doc.ts, doc.stamped = *ext.DocumentTimestamp, true
	} else {
		doc.ts = s.now()
	}

	entries, skipped := linkdex.BuildEntries(ext.Rows, doc.ts)
	for _, err := range skipped {
		s.logger.Warn("skipped row", "err", err)
	}
	if len(entries) == 0 {
		return nil, linkdex.Errorf(linkdex.EEMPTY, "document has no usable entries")
	}
	doc.entries = entries
	return doc, nil
}

// placeholder reports whether rows is the single row an unrendered document
// shows in place of the catalog.
func (s *Service) placeholder(rows []linkdex.Row) bool {
	return s.sentinel != "" && len(rows) == 1 && strings.Contains(rows[0].Title, s.sentinel)
}

// fallback serves the cached catalog after every attempt failed.
func (s *Service) fallback(ctx context.Context, cause error) (*linkdex.RefreshResult, error) {
	s.setState(Failed)

	snap, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("cache load failed", "err", err)
	}
	if err != nil || len(snap.Entries) == 0 {
		return nil, linkdex.WrapError(linkdex.EEMPTY, cause, "no catalog available for %s", s.target)
	}

	s.logger.Warn("serving stale catalog", "target", s.target, "entries", len(snap.Entries), "err", cause)
	s.publishIfMissing(snap.Entries)
	return &linkdex.RefreshResult{
		Entries:   snap.Entries,
		FromCache: true,
		Stale:     true,
		Timestamp: metaTimestamp(snap.Meta),
	}, nil
}

// apply persists and publishes a freshly fetched document unless the cache
// already holds it.
func (s *Service) apply(ctx context.Context, doc *document, force bool) (*linkdex.RefreshResult, error) {
	snap, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("cache load failed", "err", err)
		snap = &linkdex.Snapshot{}
	}

	if meta := snap.Meta; meta != nil {
		regressed := doc.ts.Before(meta.Timestamp)
		if !force {
			if s.unchanged(doc, meta) && len(snap.Entries) > 0 {
				if err := s.cache.Touch(ctx); err != nil {
					s.logger.Warn("cache touch failed", "err", err)
				}
				s.publishIfMissing(snap.Entries)
				s.setState(Ready)
				return &linkdex.RefreshResult{
					Entries:   snap.Entries,
					Unchanged: true,
					Timestamp: metaTimestamp(meta),
				}, nil
			}
		} else if regressed {
			s.logger.Info("forced refresh regresses timestamp, invalidating cache",
				"stored", meta.Timestamp, "fetched", doc.ts)
			if err := s.cache.Invalidate(ctx); err != nil {
				s.logger.Warn("cache invalidate failed", "err", err)
			}
		}
	}

	var saveErr error
	if _, err := s.cache.Save(ctx, doc.entries, doc.ts, doc.digest); err != nil {
		s.logger.Error("cache save failed", "err", err)
		saveErr = err
	}

	s.index.Store(search.Build(doc.entries))
	s.setState(Ready)

	ts := doc.ts
	return &linkdex.RefreshResult{Entries: doc.entries, Timestamp: &ts}, saveErr
}

// unchanged reports whether doc matches the stored snapshot described by meta.
// A document older than the snapshot is never written over it.
func (s *Service) unchanged(doc *document, meta *linkdex.SnapshotMeta) bool {
	switch {
	case doc.ts.Equal(meta.Timestamp):
		return true
	case !doc.stamped && doc.digest != "" && doc.digest == meta.Digest:
		return true
	case doc.ts.Before(meta.Timestamp):
		s.logger.Warn("fetched catalog is older than cache, keeping cache",
			"stored", meta.Timestamp, "fetched", doc.ts)
		return true
	}
	return false
}

// Search ranks the published catalog against query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]linkdex.SearchResult, error) {
	ix, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return ix.Search(query, limit), nil
}

// Complete returns catalog entries whose title starts with prefix.
func (s *Service) Complete(ctx context.Context, prefix string, limit int) ([]linkdex.SearchResult, error) {
	ix, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return ix.Complete(prefix, limit), nil
}

// current returns the published index, building one from the cache when
// nothing has been published yet.
func (s *Service) current(ctx context.Context) (*search.Index, error) {
	if ix := s.index.Load(); ix != nil {
		return ix, nil
	}

	work := context.WithoutCancel(ctx)
	ch := s.group.DoChan("index", func() (any, error) {
		snap, err := s.cache.Load(work)
		if err != nil {
			return nil, err
		}
		ix := search.Build(snap.Entries)
		if !s.index.CompareAndSwap(nil, ix) {
			ix = s.index.Load()
		}
		return ix, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*search.Index), nil
	}
}

func (s *Service) publishIfMissing(entries []linkdex.Entry) {
	if s.index.Load() == nil {
		s.index.CompareAndSwap(nil, search.Build(entries))
	}
}

// Digest returns the hex xxhash of a raw document.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func metaTimestamp(meta *linkdex.SnapshotMeta) *time.Time {
	if meta == nil {
		return nil
	}
	ts := meta.Timestamp
	return &ts
}

func cloneResult(r *linkdex.RefreshResult) *linkdex.RefreshResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Entries = slices.Clone(r.Entries)
	if r.Timestamp != nil {
		ts := *r.Timestamp
		out.Timestamp = &ts
	}
	return &out
}
