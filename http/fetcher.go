// Package http provides an HTTP-based implementation of
// linkdex.DocumentFetcher for downloading the published catalog document.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/linkdex"
	"golang.org/x/time/rate"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// DefaultMaxBytes bounds the size of a downloaded document.
const DefaultMaxBytes = 64 << 20

// DefaultUserAgent identifies linkdex to the document host.
const DefaultUserAgent = "linkdex/1.0"

// Ensure Fetcher implements linkdex.DocumentFetcher at compile time.
var _ linkdex.DocumentFetcher = (*Fetcher)(nil)

// Fetcher downloads documents over HTTP.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBytes  int64
	limiter   *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBytes bounds the accepted response size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// WithRateLimit spaces requests made through this fetcher to at most one
// per interval. Waiting for a slot honours the request context.
func WithRateLimit(interval time.Duration) Option {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves the raw document at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, linkdex.WrapError(linkdex.EFETCH, err, "rate limit wait for %s", url)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, linkdex.WrapError(linkdex.EINVALID, err, "invalid document URL %q", url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, linkdex.WrapError(linkdex.EFETCH, err, "failed to fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, linkdex.Errorf(linkdex.EFETCH, "HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, linkdex.WrapError(linkdex.EFETCH, err, "failed to read %s", url)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, linkdex.Errorf(linkdex.EFETCH, "document at %s exceeds %s", url, formatBytes(f.maxBytes))
	}

	return body, nil
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}

func formatBytes(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%d MiB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
