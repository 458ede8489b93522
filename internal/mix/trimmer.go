package mix

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/alnah/go-tilawa/internal/audio"
)

// Trimmer defaults, used when no preset is chosen.
const (
	DefaultThresholdDB = -50.0
	DefaultMinSilence  = 70 * time.Millisecond
	DefaultFade        = 15 * time.Millisecond
	DefaultPadding     = 20 * time.Millisecond
)

// Clip is a processed verse ready to merge.
type Clip struct {
	Ayah     int
	Path     string
	Duration time.Duration
}

// Trimmer removes leading silence, shortens long pauses and fades the edges.
type Trimmer struct {
	codec      codec
	threshold  float64
	minSilence time.Duration
	fade       time.Duration
	padding    time.Duration
}

// TrimmerOption configures a Trimmer.
type TrimmerOption func(*Trimmer)

// WithThreshold sets the level in dBFS below which audio counts as silence.
func WithThreshold(db float64) TrimmerOption {
	return func(t *Trimmer) { t.threshold = db }
}

// WithMinSilence sets how long a quiet stretch must last to be shortened.
func WithMinSilence(d time.Duration) TrimmerOption {
	return func(t *Trimmer) { t.minSilence = d }
}

// WithFade sets the fade-in and fade-out length.
func WithFade(d time.Duration) TrimmerOption {
	return func(t *Trimmer) { t.fade = d }
}

// WithPadding sets how much silence survives at each cut.
func WithPadding(d time.Duration) TrimmerOption {
	return func(t *Trimmer) { t.padding = d }
}

// WithTrimmerCodec sets the codec used to read and write clips.
func WithTrimmerCodec(c codec) TrimmerOption {
	return func(t *Trimmer) { t.codec = c }
}

// NewTrimmer creates a Trimmer and validates its parameters.
func NewTrimmer(opts ...TrimmerOption) (*Trimmer, error) {
	t := &Trimmer{
		codec:      wavCodec(),
		threshold:  DefaultThresholdDB,
		minSilence: DefaultMinSilence,
		fade:       DefaultFade,
		padding:    DefaultPadding,
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trimmer) validate() error {
	switch {
	case t.threshold < -100 || t.threshold > 0:
		return fmt.Errorf("%w: silence threshold %.1f dB must be between -100 and 0",
			ErrInvalidProcessingParameters, t.threshold)
	case t.minSilence <= 0:
		return fmt.Errorf("%w: minimum silence %v must be positive",
			ErrInvalidProcessingParameters, t.minSilence)
	case t.padding < 0 || 2*t.padding >= t.minSilence:
		return fmt.Errorf("%w: padding %v must be less than %v",
			ErrInvalidProcessingParameters, t.padding, t.minSilence/2)
	case t.fade < 0 || 4*t.fade >= t.minSilence:
		return fmt.Errorf("%w: fade %v must be less than %v",
			ErrInvalidProcessingParameters, t.fade, t.minSilence/4)
	}
	return nil
}

// String describes the parameters, e.g. for logs.
func (t *Trimmer) String() string {
	return fmt.Sprintf("threshold=%.0fdB min_silence=%v fade=%v padding=%v",
		t.threshold, t.minSilence, t.fade, t.padding)
}

// Trim reads in, trims it and writes out.
func (t *Trimmer) Trim(ctx context.Context, in, out string) (Clip, error) {
	seg, err := t.codec.Decode(ctx, in)
	if err != nil {
		return Clip{}, err
	}
	trimmed, err := t.TrimSegment(seg)
	if err != nil {
		return Clip{}, fmt.Errorf("trim %s: %w", in, err)
	}
	if err := t.codec.Encode(ctx, trimmed, out); err != nil {
		return Clip{}, fmt.Errorf("trim %s: %w", in, err)
	}
	return Clip{Path: out, Duration: trimmed.Duration()}, nil
}

// TrimSegment cuts the leading silence plus padding, then collapses every
// silent run of at least the minimum length: a trailing run keeps padding, a
// leading run keeps its last padding, an interior run keeps padding in total,
// half from each edge. Both ends are then faded.
func (t *Trimmer) TrimSegment(seg *audio.Segment) (*audio.Segment, error) {
	f := seg.Format
	lead := seg.LeadingSilence(t.threshold)
	if lead >= seg.Frames() {
		return nil, audio.ErrSilentAudio
	}
	body := seg.Slice(lead+f.FramesFor(t.padding), seg.Frames())
	if body.Frames() == 0 {
		return nil, audio.ErrSilentAudio
	}

	pad := f.FramesFor(t.padding)
	var parts []*audio.Segment
	pos := 0
	for _, run := range body.SilentRuns(t.threshold, t.minSilence) {
		parts = append(parts, body.Slice(pos, run.Start))
		switch {
		case run.Start == 0 && run.End == body.Frames():
			return nil, audio.ErrSilentAudio
		case run.Start == 0:
			parts = append(parts, body.Slice(run.End-pad, run.End))
		case run.End == body.Frames():
			parts = append(parts, body.Slice(run.Start, run.Start+pad))
		default:
			head := pad / 2
			parts = append(parts,
				body.Slice(run.Start, run.Start+head),
				body.Slice(run.End-(pad-head), run.End))
		}
		pos = run.End
	}
	parts = append(parts, body.Slice(pos, body.Frames()))

	joined, err := audio.Concat(f, parts...)
	if err != nil {
		return nil, err
	}
	fade := f.FramesFor(t.fade)
	return joined.FadeIn(fade).FadeOut(fade), nil
}

// Preset is a named set of trimmer parameters.
type Preset struct {
	Name        string
	ThresholdDB float64
	MinSilence  time.Duration
	Fade        time.Duration
	Padding     time.Duration
}

var presets = map[string]Preset{
	"default": {
		Name: "default", ThresholdDB: -50,
		MinSilence: 300 * time.Millisecond, Fade: 20 * time.Millisecond, Padding: 40 * time.Millisecond,
	},
	"conservative": {
		Name: "conservative", ThresholdDB: -60,
		MinSilence: 500 * time.Millisecond, Fade: 30 * time.Millisecond, Padding: 100 * time.Millisecond,
	},
	"aggressive": {
		Name: "aggressive", ThresholdDB: -40,
		MinSilence: 200 * time.Millisecond, Fade: 10 * time.Millisecond, Padding: 25 * time.Millisecond,
	},
}

// Presets returns the preset names in alphabetical order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (choose from %v)", ErrUnknownPreset, name, Presets())
	}
	return p, nil
}

// Options returns the preset as trimmer options.
func (p Preset) Options() []TrimmerOption {
	return []TrimmerOption{
		WithThreshold(p.ThresholdDB),
		WithMinSilence(p.MinSilence),
		WithFade(p.Fade),
		WithPadding(p.Padding),
	}
}

// NewTrimmerFromPreset creates a Trimmer from a named preset. Extra options
// are applied after the preset's own.
func NewTrimmerFromPreset(name string, opts ...TrimmerOption) (*Trimmer, error) {
	p, err := LookupPreset(name)
	if err != nil {
		return nil, err
	}
	return NewTrimmer(append(p.Options(), opts...)...)
}
