// Package fetcher downloads feed documents and article pages over HTTP.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bfsi-insights/curation-cli/internal/resilience"
)

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent   string
	FeedTimeout time.Duration
	PageTimeout time.Duration
	MaxRetries  int
	Backoff     time.Duration
}

// maxBodyBytes caps page downloads; nothing a summarizer needs is larger.
const maxBodyBytes = 10 << 20

// HTTPFetcher wraps net/http with per-host rate limiting and retry for
// transient failures.
type HTTPFetcher struct {
	feedClient *http.Client
	pageClient *http.Client
	opts       Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
}

// perHostLimit keeps any single host at two requests per second. Hosts are
// independent so one slow publisher cannot throttle the whole batch.
var perHostLimit = rate.Limit(2)

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.FeedTimeout == 0 {
		opts.FeedTimeout = 30 * time.Second
	}
	if opts.PageTimeout == 0 {
		opts.PageTimeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = 5 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "curation-cli/1.0"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		feedClient: &http.Client{Timeout: opts.FeedTimeout, Transport: transport},
		pageClient: &http.Client{Timeout: opts.PageTimeout, Transport: transport},
		opts:       opts,
		limiters:   make(map[string]*rate.Limiter),
		fallback:   rate.NewLimiter(5, 5),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return f.fallback
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(perHostLimit, 2)
		f.limiters[u.Host] = lim
	}
	return lim
}

// FetchFeed downloads a feed document. Feeds are polled on every discovery
// run, so a failed poll is reported immediately rather than retried.
func (f *HTTPFetcher) FetchFeed(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.get(ctx, f.feedClient, rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: feed %s", rawURL)
	}
	return body, nil
}

// FetchPage downloads an article page, retrying timeouts and 5xx responses
// with linear backoff. A 4xx response fails immediately; the page is not
// going to appear on a second try.
func (f *HTTPFetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	cfg := resilience.RetryConfig{
		MaxAttempts: f.opts.MaxRetries,
		Backoff:     f.opts.Backoff,
		ShouldRetry: resilience.IsTransient,
		OnRetry:     resilience.RetryLogger("fetcher", rawURL),
	}
	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, f.pageClient, rawURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: page %s", rawURL)
	}
	return body, nil
}

// FetchImage downloads an image for thumbnail storage and returns the body
// with its content type.
func (f *HTTPFetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "fetcher: create image request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, "", eris.Wrap(err, "fetcher: rate limiter wait")
	}

	resp, err := f.pageClient.Do(req)
	if err != nil {
		return nil, "", eris.Wrapf(err, "fetcher: image %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, "", &resilience.HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", eris.Wrap(err, "fetcher: read image body")
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (f *HTTPFetcher) get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		zap.L().Debug("non-200 response",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &resilience.HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return data, nil
}
