// Package verses downloads the audio of a verse range, one task per ayah.
package verses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-tilawa/internal/audio"
	"github.com/alnah/go-tilawa/internal/quran"
	"github.com/alnah/go-tilawa/internal/reciter"
)

// DefaultBaseURL is the public verse audio host.
const DefaultBaseURL = "https://www.everyayah.com/data"

// Asset is one downloaded verse.
type Asset struct {
	Surah       int
	Ayah        int
	Path        string
	RawDuration time.Duration
	Text        quran.VerseText
	// Cached is true when the file was already on disk.
	Cached bool
}

// Failure is an ayah that could not be fetched or measured.
type Failure struct {
	Surah int
	Ayah  int
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%d:%d: %v", f.Surah, f.Ayah, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Batch is the outcome of a range fetch. Both lists are ordered by ayah.
type Batch struct {
	Assets   []Asset
	Failures []Failure
}

type rangeValidator interface {
	ValidateRange(ctx context.Context, r quran.Range) (reciter.Config, error)
}

type getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type durationReader interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

var (
	_ rangeValidator = (*reciter.Directory)(nil)
	_ durationReader = (*audio.Oracle)(nil)
)

// Coordinator fans a verse range out over a bounded pool of workers.
type Coordinator struct {
	dir     rangeValidator
	client  getter
	oracle  durationReader
	text    quran.TextLookup
	baseURL string
	workers int
	logger  *slog.Logger

	inflight singleflight.Group
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBaseURL sets the audio host, without a trailing slash.
func WithBaseURL(u string) Option {
	return func(c *Coordinator) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTextLookup attaches verse text. With a lookup set, an ayah without
// text is a failure; without one, every asset has empty text.
func WithTextLookup(l quran.TextLookup) Option {
	return func(c *Coordinator) { c.text = l }
}

// WithOracle sets how downloaded files are measured.
func WithOracle(o durationReader) Option {
	return func(c *Coordinator) { c.oracle = o }
}

// WithWorkers bounds the number of concurrent ayah tasks.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator creates a Coordinator. dir validates ranges and resolves
// reciters; client downloads files.
func NewCoordinator(dir rangeValidator, client getter, opts ...Option) *Coordinator {
	c := &Coordinator{
		dir:     dir,
		client:  client,
		oracle:  audio.NewOracle(),
		baseURL: DefaultBaseURL,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRange makes every ayah of r available under
// outputDir/<reciter subfolder>/ and measures it. The range is validated
// before any download starts. A failing ayah is logged and reported in
// Batch.Failures without affecting the others; only validation errors and
// cancellation are returned as errors.
func (c *Coordinator) FetchRange(ctx context.Context, r quran.Range, outputDir string) (Batch, error) {
	cfg, err := c.dir.ValidateRange(ctx, r)
	if err != nil {
		return Batch{}, err
	}

	ayahs := r.Ayahs()
	assets := make([]*Asset, len(ayahs))
	failures := make([]*Failure, len(ayahs))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, ayah := range ayahs {
		g.Go(func() error {
			a, err := c.fetchOne(ctx, cfg, r.Surah, ayah, outputDir)
			if err != nil {
				c.logger.Warn("verse unavailable",
					"surah", r.Surah,
					"ayah", ayah,
					"error", err)
				failures[i] = &Failure{Surah: r.Surah, Ayah: ayah, Err: err}
				return nil
			}
			assets[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	var b Batch
	for i := range ayahs {
		if assets[i] != nil {
			b.Assets = append(b.Assets, *assets[i])
		}
		if failures[i] != nil {
			b.Failures = append(b.Failures, *failures[i])
		}
	}
	c.logger.Debug("range fetched",
		"range", r.String(),
		"assets", len(b.Assets),
		"failures", len(b.Failures))
	return b, nil
}

func (c *Coordinator) fetchOne(ctx context.Context, cfg reciter.Config, surah, ayah int, outputDir string) (Asset, error) {
	a := Asset{Surah: surah, Ayah: ayah}
	if c.text != nil {
		text, ok := c.text.Verse(surah, ayah)
		if !ok {
			return Asset{}, fmt.Errorf("%w: %d:%d", ErrMissingText, surah, ayah)
		}
		a.Text = text
	}

	name := quran.AudioFileName(surah, ayah)
	a.Path = filepath.Join(outputDir, cfg.Subfolder, name)
	url := c.baseURL + "/" + cfg.Subfolder + "/" + name

	cached, err := c.ensure(ctx, url, a.Path)
	if err != nil {
		return Asset{}, err
	}
	a.Cached = cached

	d, err := c.oracle.Duration(ctx, a.Path)
	if err != nil {
		return Asset{}, err
	}
	a.RawDuration = d
	return a, nil
}

// ensure downloads url to path unless path exists. Concurrent calls for the
// same path share one download, which runs under the context of the caller
// that started it. Each caller stops waiting when its own ctx is done; the
// others start the download again if the starter gave up.
func (c *Coordinator) ensure(ctx context.Context, url, path string) (cached bool, err error) {
	for {
		ch := c.inflight.DoChan(path, func() (any, error) {
			return c.download(ctx, url, path)
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case res = <-ch:
		}

		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				continue
			}
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (c *Coordinator) download(ctx context.Context, url, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}
	data, err := c.client.Get(ctx, url)
	if err != nil {
		return false, err
	}
	if err := writeAtomic(path, data); err != nil {
		return false, err
	}
	c.logger.Debug("downloaded verse", "url", url, "bytes", len(data))
	return false, nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place, so a reader never sees a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
