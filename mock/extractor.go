package mock

import (
	"context"

	"github.com/fwojciec/linkdex"
)

var _ linkdex.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of linkdex.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, data []byte) (*linkdex.Extraction, error)
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (*linkdex.Extraction, error) {
	return e.ExtractFn(ctx, data)
}
