// Package slog provides log/slog decorators for the linkdex service
// interfaces.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/linkdex"
)

// Ensure LoggingFetcher implements linkdex.DocumentFetcher.
var _ linkdex.DocumentFetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a DocumentFetcher with logging.
type LoggingFetcher struct {
	next   linkdex.DocumentFetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next linkdex.DocumentFetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the operation.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (data []byte, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch",
			"url", url,
			"bytes", len(data),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
