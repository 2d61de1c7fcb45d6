// Package fetcher downloads listing and ad detail pages.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxBodySize = 5 * 1024 * 1024

// ErrBodyTooLarge is returned when a page exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportError reports a failed page download: a network error, a timeout
// or a non-2xx response.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("get %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("get %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fetcher downloads the listing page and per-ad detail pages.
type Fetcher struct {
	client     HTTPClient
	listingURL string
	adBaseURL  string
	timeout    time.Duration
	limiter    *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds every request by d.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithDetailInterval spaces consecutive detail page requests at least d apart.
// Zero disables pacing.
func WithDetailInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		if d <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// New creates a Fetcher for the given listing page and ad base URL.
func New(client HTTPClient, listingURL, adBaseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     client,
		listingURL: listingURL,
		adBaseURL:  adBaseURL,
		timeout:    30 * time.Second,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DetailURL returns the detail page address for an ad ID.
func (f *Fetcher) DetailURL(id string) string {
	return f.adBaseURL + id
}

// FetchListing downloads the listing page.
func (f *Fetcher) FetchListing(ctx context.Context) ([]byte, error) {
	return f.get(ctx, f.listingURL)
}

// FetchDetail downloads the detail page of the ad with the given ID.
func (f *Fetcher) FetchDetail(ctx context.Context, id string) ([]byte, error) {
	url := f.DetailURL(id)
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return f.get(ctx, url)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", "AdWatch/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodySize {
		// A truncated page would parse as a partial listing.
		return nil, &TransportError{URL: url, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxBodySize)}
	}
	return body, nil
}
