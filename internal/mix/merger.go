package mix

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alnah/go-tilawa/internal/audio"
	"github.com/alnah/go-tilawa/internal/format"
)

// DefaultCrossfade is the overlap between consecutive verses.
const DefaultCrossfade = 500 * time.Millisecond

// DurationChange records how much of one clip survives in the merged track.
// The first clip keeps its full length; every later clip loses the crossfade.
type DurationChange struct {
	SourceFile   string
	OriginalMs   int64
	EffectiveMs  int64
	DifferenceMs int64
}

// Result describes a finished merge.
type Result struct {
	OutputPath string
	// FinalDuration is measured from the written file.
	FinalDuration time.Duration
	// CalculatedMs is the sum of the effective durations.
	CalculatedMs     int64
	TotalCrossfadeMs int64
	Changes          []DurationChange
}

// DriftMs is the measured length minus the calculated one.
func (r Result) DriftMs() int64 {
	return r.FinalDuration.Milliseconds() - r.CalculatedMs
}

// EffectiveDurations returns each clip's share of the merged track, in order.
func (r Result) EffectiveDurations() []time.Duration {
	out := make([]time.Duration, len(r.Changes))
	for i, c := range r.Changes {
		out[i] = time.Duration(c.EffectiveMs) * time.Millisecond
	}
	return out
}

// FormattedDuration renders FinalDuration as HH:MM:SS.
func (r Result) FormattedDuration() string {
	return format.Clock(r.FinalDuration)
}

// Merger joins clips with a crossfade, one clip in memory at a time.
type Merger struct {
	codec     codec
	oracle    durationReader
	crossfade time.Duration
	curve     audio.Curve
	logger    *slog.Logger
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithCrossfade sets the overlap between clips. Zero concatenates.
func WithCrossfade(d time.Duration) MergerOption {
	return func(m *Merger) { m.crossfade = max(d, 0) }
}

// WithCurve sets the crossfade gain curve.
func WithCurve(c audio.Curve) MergerOption {
	return func(m *Merger) { m.curve = c }
}

// WithMergerCodec sets the codec used to decode clips and export the result.
func WithMergerCodec(c codec) MergerOption {
	return func(m *Merger) { m.codec = c }
}

// WithOracle sets how the merged file is re-measured.
func WithOracle(o durationReader) MergerOption {
	return func(m *Merger) { m.oracle = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) MergerOption {
	return func(m *Merger) { m.logger = l }
}

// NewMerger creates a Merger with a 500ms linear crossfade.
func NewMerger(opts ...MergerOption) *Merger {
	m := &Merger{
		codec:     wavCodec(),
		oracle:    audio.NewOracle(),
		crossfade: DefaultCrossfade,
		curve:     audio.CurveLinear,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Crossfade returns the configured overlap.
func (m *Merger) Crossfade() time.Duration { return m.crossfade }

// Merge joins paths in order into out.
func (m *Merger) Merge(ctx context.Context, paths []string, out string) (Result, error) {
	if len(paths) == 0 {
		return Result{}, ErrEmptyInput
	}
	return m.MergeSeq(ctx, slices.Values(paths), out)
}

// MergeSeq joins the clips yielded by paths into out. Only the last
// crossfade window of the running mix is held in memory; everything before
// it is streamed to a WAV file next to out, which is then exported to the
// container implied by out's extension and measured.
func (m *Merger) MergeSeq(ctx context.Context, paths iter.Seq[string], out string) (Result, error) {
	if paths == nil {
		return Result{}, fmt.Errorf("%w: nil clip sequence", ErrInvalidInput)
	}
	if out == "" {
		return Result{}, fmt.Errorf("%w: empty output path", ErrInvalidInput)
	}
	if ext := strings.ToLower(filepath.Ext(out)); ext != ".wav" && ext != ".mp3" {
		return Result{}, fmt.Errorf("%w: %q (use .wav or .mp3)", audio.ErrUnsupportedOutput, ext)
	}

	tmp := out + ".part.wav"
	s := &mergeStream{merger: m, tmp: tmp}
	defer s.abort()

	for path := range paths {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := s.add(ctx, path); err != nil {
			return Result{}, err
		}
	}
	if len(s.changes) == 0 {
		return Result{}, ErrEmptyInput
	}
	if err := s.finish(); err != nil {
		return Result{}, err
	}

	if err := m.codec.Transcode(ctx, tmp, out); err != nil {
		return Result{}, fmt.Errorf("export merged audio: %w", err)
	}
	final, err := m.oracle.Duration(ctx, out)
	if err != nil {
		return Result{}, fmt.Errorf("measure merged audio: %w", err)
	}

	res := Result{
		OutputPath:       out,
		FinalDuration:    final,
		TotalCrossfadeMs: m.crossfade.Milliseconds() * int64(len(s.changes)-1),
		Changes:          s.changes,
	}
	for _, c := range s.changes {
		res.CalculatedMs += c.EffectiveMs
	}
	m.logger.Debug("merged clips",
		"clips", len(res.Changes),
		"calculated_ms", res.CalculatedMs,
		"final_ms", final.Milliseconds(),
		"drift_ms", res.DriftMs())
	return res, nil
}

// mergeStream is the state of one merge in progress.
type mergeStream struct {
	merger  *Merger
	tmp     string
	sink    *audio.WAVWriter
	xf      int
	pending *audio.Segment
	changes []DurationChange
}

func (s *mergeStream) add(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path at clip %d", ErrInvalidInput, len(s.changes)+1)
	}
	seg, err := s.merger.codec.Decode(ctx, path)
	if err != nil {
		return err
	}

	original := seg.Milliseconds()
	change := DurationChange{SourceFile: path, OriginalMs: original, EffectiveMs: original}

	if s.sink == nil {
		sink, err := audio.CreateWAV(s.tmp, seg.Format)
		if err != nil {
			return err
		}
		s.sink = sink
		s.xf = seg.Format.FramesFor(s.merger.crossfade)
		s.pending = seg
	} else {
		joined, err := audio.AppendCrossfade(s.pending, seg, s.xf, s.merger.curve)
		if err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
		s.pending = joined
		change.EffectiveMs = original - s.merger.crossfade.Milliseconds()
		change.DifferenceMs = change.EffectiveMs - original
	}
	s.changes = append(s.changes, change)

	s.merger.logger.Debug("merge clip",
		"clip", len(s.changes),
		"file", path,
		"original_ms", change.OriginalMs,
		"effective_ms", change.EffectiveMs)

	keep := min(s.xf, s.pending.Frames())
	if err := s.sink.Write(s.pending.Slice(0, s.pending.Frames()-keep).Samples); err != nil {
		return err
	}
	s.pending = s.pending.Slice(s.pending.Frames()-keep, s.pending.Frames())
	return nil
}

func (s *mergeStream) finish() error {
	if err := s.sink.Write(s.pending.Samples); err != nil {
		return err
	}
	err := s.sink.Close()
	s.sink = nil
	return err
}

// abort releases the sink and the temporary file. After a successful export
// the temporary file is already gone.
func (s *mergeStream) abort() {
	if s.sink != nil {
		_ = s.sink.Close()
	}
	if err := os.Remove(s.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.merger.logger.Debug("remove merge scratch file", "path", s.tmp, "error", err)
	}
}
