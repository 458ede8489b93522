// Package pipeline turns a verse range into one merged recitation and the
// time slice each verse occupies in it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alnah/go-tilawa/internal/mix"
	"github.com/alnah/go-tilawa/internal/quran"
	"github.com/alnah/go-tilawa/internal/verses"
)

// Progress stages.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageTrim      = "trim"
	StageMerge     = "merge"
)

// VerseTiming is where one verse sits in the merged track.
type VerseTiming struct {
	Surah    int
	Ayah     int
	Text     quran.VerseText
	Start    time.Duration
	Duration time.Duration
}

// Result is the outcome of a run.
type Result struct {
	OutputPath    string
	FinalDuration time.Duration
	Verses        []VerseTiming
	Merge         mix.Result
	// Failures lists verses dropped at download time.
	Failures  []verses.Failure
	SessionID string
}

type rangeFetcher interface {
	FetchRange(ctx context.Context, r quran.Range, outputDir string) (verses.Batch, error)
}

type normalizer interface {
	Normalize(ctx context.Context, in, out string) (string, error)
}

type trimmer interface {
	Trim(ctx context.Context, in, out string) (mix.Clip, error)
}

type merger interface {
	Merge(ctx context.Context, paths []string, out string) (mix.Result, error)
}

var (
	_ rangeFetcher = (*verses.Coordinator)(nil)
	_ normalizer   = (*mix.Normalizer)(nil)
	_ trimmer      = (*mix.Trimmer)(nil)
	_ merger       = (*mix.Merger)(nil)
)

// Pipeline runs fetch, normalize, trim and merge in sequence.
type Pipeline struct {
	fetcher    rangeFetcher
	normalizer normalizer
	trimmer    trimmer
	merger     merger
	tempRoot   string
	progress   func(stage string, current, total int)
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTempRoot sets where session directories are created.
func WithTempRoot(dir string) Option {
	return func(p *Pipeline) { p.tempRoot = dir }
}

// WithProgress sets a callback invoked as each stage advances.
func WithProgress(fn func(stage string, current, total int)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline from its stages.
func New(f rangeFetcher, n normalizer, t trimmer, m merger, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:    f,
		normalizer: n,
		trimmer:    t,
		merger:     m,
		progress:   func(string, int, int) {},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run builds outputPath from r, caching downloads under audioDir.
// Verses that fail to download are skipped and listed in Result.Failures;
// a verse that downloaded but cannot be processed aborts the run. The
// session directory is removed whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, r quran.Range, audioDir, outputPath string) (Result, error) {
	sess, err := NewSession(p.tempRoot)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			p.logger.Warn("session cleanup failed", "dir", sess.Dir, "error", err)
		}
	}()
	p.logger.Debug("session started", "id", sess.ID, "dir", sess.Dir, "range", r.String())

	p.progress(StageFetch, 0, r.Len())
	batch, err := p.fetcher.FetchRange(ctx, r, audioDir)
	if err != nil {
		return Result{}, err
	}
	p.progress(StageFetch, len(batch.Assets), r.Len())
	if len(batch.Assets) == 0 {
		return Result{}, fmt.Errorf("%w: %s (%d failed)", ErrNoVerses, r, len(batch.Failures))
	}

	clips, err := p.process(ctx, sess, batch.Assets)
	if err != nil {
		return Result{}, err
	}

	p.progress(StageMerge, 0, 1)
	paths := make([]string, len(clips))
	for i, c := range clips {
		paths[i] = c.Path
	}
	merged, err := p.merger.Merge(ctx, paths, outputPath)
	if err != nil {
		return Result{}, err
	}
	p.progress(StageMerge, 1, 1)

	return Result{
		OutputPath:    merged.OutputPath,
		FinalDuration: merged.FinalDuration,
		Verses:        timings(batch.Assets, merged),
		Merge:         merged,
		Failures:      batch.Failures,
		SessionID:     sess.ID,
	}, nil
}

func (p *Pipeline) process(ctx context.Context, sess *Session, assets []verses.Asset) ([]mix.Clip, error) {
	clips := make([]mix.Clip, 0, len(assets))
	for i, a := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := fmt.Sprintf("%03d%03d", a.Surah, a.Ayah)

		p.progress(StageNormalize, i+1, len(assets))
		norm, err := p.normalizer.Normalize(ctx, a.Path, sess.Path(base+".norm.wav"))
		if err != nil {
			return nil, fmt.Errorf("verse %d:%d: %w", a.Surah, a.Ayah, err)
		}

		p.progress(StageTrim, i+1, len(assets))
		clip, err := p.trimmer.Trim(ctx, norm, sess.Path(base+".trim.wav"))
		if err != nil {
			return nil, fmt.Errorf("verse %d:%d: %w", a.Surah, a.Ayah, err)
		}
		clip.Ayah = a.Ayah
		clips = append(clips, clip)
	}
	return clips, nil
}

// timings lays the verses end to end using each clip's effective duration.
func timings(assets []verses.Asset, merged mix.Result) []VerseTiming {
	out := make([]VerseTiming, len(assets))
	var start time.Duration
	for i, d := range merged.EffectiveDurations() {
		out[i] = VerseTiming{
			Surah:    assets[i].Surah,
			Ayah:     assets[i].Ayah,
			Text:     assets[i].Text,
			Start:    start,
			Duration: d,
		}
		start += d
	}
	return out
}
