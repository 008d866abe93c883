package linkdex

import "context"

// DocumentFetcher retrieves the raw bytes of the published catalog document.
type DocumentFetcher interface {
	// Fetch downloads the document at url.
	// Transport failures and non-success statuses return EFETCH.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
