package linkdex

import (
	"context"
	"time"
)

// RefreshResult is the outcome of a catalog refresh.
type RefreshResult struct {
	Entries []Entry

	// FromCache is set when Entries were served from the store without a
	// successful fetch.
	FromCache bool

	// Stale is set when the cached entries were served because every fetch
	// attempt failed.
	Stale bool

	// Unchanged is set when the fetched catalog matched the stored one and
	// nothing was written.
	Unchanged bool

	// Timestamp of the snapshot that Entries belong to, if known.
	Timestamp *time.Time
}

// CatalogService keeps the cached catalog fresh.
type CatalogService interface {
	// Refresh returns the current catalog, fetching a new one when the
	// cache is stale or force is set. Concurrent calls share one fetch.
	// Returns EEMPTY when no usable catalog could be fetched and nothing is
	// cached.
	Refresh(ctx context.Context, force bool) (*RefreshResult, error)
}

// SearchResult is a single ranked match.
type SearchResult struct {
	Title string
	Link  string
}

// Searcher queries the catalog.
type Searcher interface {
	// Search returns up to limit entries ranked against query.
	// A blank query returns no results.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Complete returns up to limit entries whose title starts with prefix,
	// in catalog order.
	Complete(ctx context.Context, prefix string, limit int) ([]SearchResult, error)
}
