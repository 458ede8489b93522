package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/apierr"
	"github.com/alnah/go-tilawa/internal/audio/audiotest"
	"github.com/alnah/go-tilawa/internal/config"
	"github.com/alnah/go-tilawa/internal/fetch"
	"github.com/alnah/go-tilawa/internal/ffmpeg"
	"github.com/alnah/go-tilawa/internal/reciter/recitertest"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// mockFFmpegResolver returns a fixed path or error.
type mockFFmpegResolver struct {
	path     string
	err      error
	explicit string
	checked  bool
}

func (m *mockFFmpegResolver) Resolve(_ context.Context, explicit string) (string, error) {
	m.explicit = explicit
	return m.path, m.err
}

func (m *mockFFmpegResolver) CheckVersion(context.Context, string) {
	m.checked = true
}

// noFFmpeg simulates a machine without FFmpeg.
func noFFmpeg() *mockFFmpegResolver {
	return &mockFFmpegResolver{err: ffmpeg.ErrNotFound}
}

// mockConfigLoader returns a fixed configuration.
type mockConfigLoader struct {
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	return m.cfg, m.err
}

// fastFetcherFactory creates fetchers without an interval or backoff.
type fastFetcherFactory struct{}

func (fastFetcherFactory) NewFetcher() *fetch.Fetcher {
	return fetch.New(
		fetch.WithInterval(0),
		fetch.WithRetryConfig(apierr.RetryConfig{MaxRetries: 0}),
	)
}

var (
	_ FFmpegResolver = (*mockFFmpegResolver)(nil)
	_ ConfigLoader   = (*mockConfigLoader)(nil)
	_ FetcherFactory = fastFetcherFactory{}
)

// ---------------------------------------------------------------------------
// Fake verse host
// ---------------------------------------------------------------------------

// fakeHost serves a manifest with Basfar and Husary at /data/recitations.js
// and a speech-like WAV for every verse except those in missing.
type fakeHost struct {
	*httptest.Server
	requests atomic.Int32
}

func newFakeHost(t *testing.T, missing ...string) *fakeHost {
	t.Helper()
	clip, err := os.ReadFile(audiotest.WriteWAV(t, "verse.wav",
		audiotest.Speech(audiotest.Format, 200*time.Millisecond, time.Second, 400*time.Millisecond)))
	if err != nil {
		t.Fatal(err)
	}
	manifest := recitertest.ManifestJSON(recitertest.Basfar, recitertest.Husary)

	h := &fakeHost{}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)
		if r.URL.Path == "/data/recitations.js" {
			_, _ = w.Write(manifest)
			return
		}
		for _, m := range missing {
			if strings.HasSuffix(r.URL.Path, "/"+m) {
				http.NotFound(w, r)
				return
			}
		}
		_, _ = w.Write(clip)
	}))
	t.Cleanup(h.Close)
	return h
}

// config returns a configuration pointing at the host.
func (h *fakeHost) config(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AudioDir:    t.TempDir(),
		BaseURL:     h.URL + "/data",
		ManifestURL: h.URL + "/data/recitations.js",
		Preset:      "default",
	}
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	env    *Env
	stdout *syncBuffer
	stderr *syncBuffer
}

func newHarness(cfg config.Config, resolver FFmpegResolver) *harness {
	h := &harness{stdout: &syncBuffer{}, stderr: &syncBuffer{}}
	h.env = NewEnv(
		WithStdout(h.stdout),
		WithStderr(h.stderr),
		WithGetenv(func(string) string { return "" }),
		WithLogger(slog.New(slog.NewTextHandler(h.stderr, nil))),
		WithFFmpegResolver(resolver),
		WithConfigLoader(&mockConfigLoader{cfg: cfg}),
		WithFetcherFactory(fastFetcherFactory{}),
	)
	return h
}

// run executes cmd with args and returns its error.
func run(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}
