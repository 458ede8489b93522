package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-tilawa/internal/apierr"
	"github.com/alnah/go-tilawa/internal/fetch"
)

// scripted serves the given status codes in order, then 200 forever.
func scripted(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		if n <= len(codes) {
			w.WriteHeader(codes[n-1])
			return
		}
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func fastRetry() apierr.RetryConfig {
	return apierr.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

func TestFetch_retriesTransientServerErrors(t *testing.T) {
	t.Parallel()

	srv, hits := scripted(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	f := fetch.New(fetch.WithInterval(0), fetch.WithRetryConfig(fastRetry()))

	resp, err := f.Fetch(context.Background(), srv.URL+"/001001.mp3")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Retries)
	assert.Equal(t, "audio-bytes", string(resp.Body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_clientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	srv, hits := scripted(t, http.StatusNotFound)
	f := fetch.New(fetch.WithInterval(0), fetch.WithRetryConfig(fastRetry()))

	resp, err := f.Fetch(context.Background(), srv.URL+"/missing.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrNotFound)
	assert.NotErrorIs(t, err, apierr.ErrNetwork)
	assert.Equal(t, 0, resp.Retries)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_exhaustedRetriesIsNetworkError(t *testing.T) {
	t.Parallel()

	srv, hits := scripted(t, 500, 502, 503, 504, 500)
	f := fetch.New(fetch.WithInterval(0), fetch.WithRetryConfig(fastRetry()))

	resp, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrNetwork)
	assert.ErrorIs(t, err, apierr.ErrServerError)
	assert.Equal(t, 3, resp.Retries)
	assert.Equal(t, int32(4), hits.Load())
}

func TestFetch_transportErrorIsRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := doerFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection reset by peer")
	})
	f := fetch.New(fetch.WithHTTPClient(client), fetch.WithInterval(0), fetch.WithRetryConfig(fastRetry()))

	_, err := f.Get(context.Background(), "http://example.invalid/x")
	assert.ErrorIs(t, err, apierr.ErrNetwork)
	assert.ErrorIs(t, err, apierr.ErrTransport)
	assert.Equal(t, int32(4), calls.Load())
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestFetch_concurrentDispatchesAreSpaced(t *testing.T) {
	t.Parallel()

	const interval = 200 * time.Millisecond
	srv, _ := scripted(t)

	var mu sync.Mutex
	var stamps []time.Time
	f := fetch.New(
		fetch.WithInterval(interval),
		fetch.WithRetryConfig(fastRetry()),
		fetch.WithDispatchHook(func(_ string, at time.Time) {
			mu.Lock()
			stamps = append(stamps, at)
			mu.Unlock()
		}),
	)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Get(context.Background(), srv.URL)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, stamps, 5)
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, interval, "dispatch %d came %v after the previous one", i, gap)
	}
}

func TestFetch_defaultIntervalIsOneSecond(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, fetch.DefaultInterval)
}

func TestFetch_intervalMeasuredOnClock(t *testing.T) {
	t.Parallel()

	// Each reading jumps two hours, so a one-hour interval has always elapsed.
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(2 * time.Hour)
		return now
	}

	srv, hits := scripted(t)
	f := fetch.New(fetch.WithInterval(time.Hour), fetch.WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for range 3 {
		_, err := f.Get(ctx, srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_waitHonorsContext(t *testing.T) {
	t.Parallel()

	srv, _ := scripted(t)
	f := fetch.New(fetch.WithInterval(time.Hour))

	_, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = f.Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetch_setsUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
	}))
	t.Cleanup(srv.Close)

	_, err := fetch.New(fetch.WithUserAgent("tilawa-test")).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "tilawa-test", <-agents)
}
