package linkdex

import (
	"context"
	"time"
)

// Row is a title/link pair reconstructed from a document, before link
// normalization.
type Row struct {
	Title string
	Link  string
}

// Extraction is the outcome of extracting rows from a document.
type Extraction struct {
	// Rows in reading order: pages in order, top-to-bottom, then left-to-right.
	Rows []Row

	// DocumentTimestamp is the freshness stamp embedded in the document,
	// or nil when the document carries none.
	DocumentTimestamp *time.Time

	// Skipped holds one EPARSE error per row or page that could not be
	// reconciled. Skipping does not stop extraction.
	Skipped []error
}

// Extractor turns raw document bytes into catalog rows.
type Extractor interface {
	// Extract parses data and returns the rows it contains.
	// A document that cannot be read at all returns an EPARSE error;
	// per-row problems are reported in Extraction.Skipped instead.
	Extract(ctx context.Context, data []byte) (*Extraction, error)
}
