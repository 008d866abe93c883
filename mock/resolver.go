package mock

import (
	"context"

	"github.com/fwojciec/linkdex"
)

var _ linkdex.FileResolver = (*FileResolver)(nil)

// FileResolver is a mock implementation of linkdex.FileResolver.
type FileResolver struct {
	ResolveFilesFn func(ctx context.Context, link, externalID string) ([]linkdex.RemoteFile, error)
}

func (r *FileResolver) ResolveFiles(ctx context.Context, link, externalID string) ([]linkdex.RemoteFile, error) {
	return r.ResolveFilesFn(ctx, link, externalID)
}
