package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/linkdex"
)

// Ensure LoggingExtractor implements linkdex.Extractor.
var _ linkdex.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with logging.
type LoggingExtractor struct {
	next   linkdex.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next linkdex.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs row counts.
func (e *LoggingExtractor) Extract(ctx context.Context, data []byte) (ext *linkdex.Extraction, err error) {
	defer func(begin time.Time) {
		var rows, skipped int
		var stamped bool
		if ext != nil {
			rows, skipped, stamped = len(ext.Rows), len(ext.Skipped), ext.DocumentTimestamp != nil
		}
		e.logger.Info("extract",
			"bytes", len(data),
			"rows", rows,
			"skipped", skipped,
			"stamped", stamped,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(ctx, data)
}
