// Package fetch provides a polite HTTP client for the recitation server: one
// request at a time per interval, with backoff on transient server errors.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alnah/go-tilawa/internal/apierr"
)

const (
	// DefaultInterval is the minimum gap between two request dispatches.
	DefaultInterval = time.Second

	// maxBodySize caps a single response. The largest verse files are a few MB.
	maxBodySize = 64 << 20

	defaultUserAgent = "go-tilawa/1.0"
)

// defaultHTTPClient bounds every request so a stalled server cannot hang a task.
var defaultHTTPClient = &http.Client{
	Timeout: 2 * time.Minute,
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

// httpDoer abstracts HTTP client operations.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a successful download.
type Response struct {
	Body       []byte
	StatusCode int
	// Retries counts the attempts after the first one.
	Retries int
}

// Fetcher performs rate-limited GET requests with retry. It is safe for
// concurrent use; concurrent callers are serialized at dispatch.
type Fetcher struct {
	client     httpDoer
	interval   time.Duration
	retry      apierr.RetryConfig
	userAgent  string
	now        func() time.Time
	onDispatch func(url string, at time.Time)

	mu           sync.Mutex
	lastDispatch time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c httpDoer) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithInterval sets the minimum gap between dispatches.
func WithInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.interval = d }
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(cfg apierr.RetryConfig) Option {
	return func(f *Fetcher) { f.retry = cfg }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithClock sets the time source used for rate limiting.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithDispatchHook is called, while the dispatch lock is held, with the
// timestamp recorded for every request attempt.
func WithDispatchHook(fn func(url string, at time.Time)) Option {
	return func(f *Fetcher) { f.onDispatch = fn }
}

// New creates a Fetcher with a 1s interval and 3 retries.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    defaultHTTPClient,
		interval:  DefaultInterval,
		retry:     apierr.DefaultRetryConfig(),
		userAgent: defaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns the body of url.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.Fetch(ctx, url)
	return resp.Body, err
}

// Fetch downloads url. Transient failures (500, 502, 503, 504, transport
// errors) are retried with backoff; any 4xx fails at once. Retries is set
// even when an error is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Response, error) {
	var retries int
	cfg := f.retry
	userHook := cfg.OnRetry
	cfg.OnRetry = func(n int, err error) {
		retries = n
		if userHook != nil {
			userHook(n, err)
		}
	}

	resp, err := apierr.RetryWithBackoff(ctx, cfg,
		func() (Response, error) { return f.attempt(ctx, url) },
		apierr.IsRetryable,
	)
	resp.Retries = retries

	if err != nil {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		if errors.Is(err, apierr.ErrClientError) {
			return resp, fmt.Errorf("GET %s: %w", url, err)
		}
		return resp, fmt.Errorf("%w: GET %s: %w", apierr.ErrNetwork, url, err)
	}
	return resp, nil
}

func (f *Fetcher) attempt(ctx context.Context, url string) (Response, error) {
	if err := f.wait(ctx, url); err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	httpResp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Response{}, fmt.Errorf("%w: %v", apierr.ErrTimeout, err)
		}
		return Response{}, fmt.Errorf("%w: %v", apierr.ErrTransport, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if err := apierr.ClassifyStatus(httpResp.StatusCode); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
		return Response{StatusCode: httpResp.StatusCode}, err
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read body: %v", apierr.ErrTransport, err)
	}
	return Response{Body: body, StatusCode: httpResp.StatusCode}, nil
}

// wait blocks until interval has elapsed since the previous dispatch, then
// records the new one. The lock is held across the sleep so dispatches are
// strictly ordered and spaced.
func (f *Fetcher) wait(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lastDispatch.IsZero() {
		if remaining := f.interval - f.now().Sub(f.lastDispatch); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	f.lastDispatch = f.now()
	if f.onDispatch != nil {
		f.onDispatch(url, f.lastDispatch)
	}
	return nil
}
