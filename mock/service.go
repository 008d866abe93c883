package mock

import (
	"context"

	"github.com/fwojciec/linkdex"
)

var _ linkdex.CatalogService = (*CatalogService)(nil)

// CatalogService is a mock implementation of linkdex.CatalogService.
type CatalogService struct {
	RefreshFn func(ctx context.Context, force bool) (*linkdex.RefreshResult, error)
}

func (s *CatalogService) Refresh(ctx context.Context, force bool) (*linkdex.RefreshResult, error) {
	return s.RefreshFn(ctx, force)
}

var _ linkdex.Searcher = (*Searcher)(nil)

// Searcher is a mock implementation of linkdex.Searcher.
type Searcher struct {
	SearchFn   func(ctx context.Context, query string, limit int) ([]linkdex.SearchResult, error)
	CompleteFn func(ctx context.Context, prefix string, limit int) ([]linkdex.SearchResult, error)
}

func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]linkdex.SearchResult, error) {
	return s.SearchFn(ctx, query, limit)
}

func (s *Searcher) Complete(ctx context.Context, prefix string, limit int) ([]linkdex.SearchResult, error) {
	return s.CompleteFn(ctx, prefix, limit)
}
