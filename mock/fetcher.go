package mock

import (
	"context"

	"github.com/fwojciec/linkdex"
)

var _ linkdex.DocumentFetcher = (*DocumentFetcher)(nil)

// DocumentFetcher is a mock implementation of linkdex.DocumentFetcher.
type DocumentFetcher struct {
	FetchFn func(ctx context.Context, url string) ([]byte, error)
}

func (f *DocumentFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.FetchFn(ctx, url)
}
