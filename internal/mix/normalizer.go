package mix

import (
	"context"
	"fmt"
	"math"

	"github.com/alnah/go-tilawa/internal/audio"
)

// DefaultTargetDBFS is the loudness every verse is brought to.
const DefaultTargetDBFS = -17.0

// Normalizer applies a uniform gain so a clip's RMS level hits a target.
type Normalizer struct {
	codec  codec
	target float64
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithTargetDBFS sets the target loudness.
func WithTargetDBFS(db float64) NormalizerOption {
	return func(n *Normalizer) { n.target = db }
}

// WithNormalizerCodec sets the codec used to read and write clips.
func WithNormalizerCodec(c codec) NormalizerOption {
	return func(n *Normalizer) { n.codec = c }
}

// NewNormalizer creates a Normalizer targeting DefaultTargetDBFS.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{codec: wavCodec(), target: DefaultTargetDBFS}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Target returns the configured loudness in dBFS.
func (n *Normalizer) Target() float64 { return n.target }

// Normalize reads in, applies the gain and writes out. It returns out.
func (n *Normalizer) Normalize(ctx context.Context, in, out string) (string, error) {
	seg, err := n.codec.Decode(ctx, in)
	if err != nil {
		return "", err
	}
	normalized, err := NormalizeSegment(seg, n.target)
	if err != nil {
		return "", fmt.Errorf("normalize %s: %w", in, err)
	}
	if err := n.codec.Encode(ctx, normalized, out); err != nil {
		return "", fmt.Errorf("normalize %s: %w", in, err)
	}
	return out, nil
}

// NormalizeSegment returns seg scaled by target minus its measured dBFS.
// Digital silence has no level to scale and fails with audio.ErrSilentAudio.
func NormalizeSegment(seg *audio.Segment, target float64) (*audio.Segment, error) {
	level := seg.DBFS()
	if math.IsInf(level, -1) {
		return nil, audio.ErrSilentAudio
	}
	return seg.Gain(target - level), nil
}
