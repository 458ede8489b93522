package audio

import (
	"fmt"
	"math"
)

// fullScale is the magnitude of the most negative 16-bit sample.
const fullScale = 32768.0

// RMS returns the root mean square over all samples of all channels.
func (s *Segment) RMS() float64 {
	return rms(s.Samples)
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// DBFS returns the loudness relative to full scale. Digital silence and empty
// segments return -Inf.
func (s *Segment) DBFS() float64 {
	r := s.RMS()
	if r == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(r/fullScale)
}

// DBToAmplitude converts a dBFS level to a linear sample magnitude.
func DBToAmplitude(db float64) float64 {
	return fullScale * math.Pow(10, db/20)
}

// Gain returns a copy scaled by db decibels, clipping at the int16 range.
func (s *Segment) Gain(db float64) *Segment {
	factor := math.Pow(10, db/20)
	out := make([]int16, len(s.Samples))
	for i, v := range s.Samples {
		out[i] = clip16(float64(v) * factor)
	}
	return &Segment{Format: s.Format, Samples: out}
}

// FadeIn returns a copy whose first frames ramp linearly from silence.
func (s *Segment) FadeIn(frames int) *Segment {
	out := s.clone()
	n := min(frames, out.Frames())
	ch := out.Format.Channels
	for f := 0; f < n; f++ {
		scale := float64(f) / float64(n)
		for c := 0; c < ch; c++ {
			i := f*ch + c
			out.Samples[i] = clip16(float64(out.Samples[i]) * scale)
		}
	}
	return out
}

// FadeOut returns a copy whose last frames ramp linearly to silence.
func (s *Segment) FadeOut(frames int) *Segment {
	out := s.clone()
	total := out.Frames()
	n := min(frames, total)
	ch := out.Format.Channels
	for k := 0; k < n; k++ {
		f := total - n + k
		scale := float64(n-1-k) / float64(n)
		for c := 0; c < ch; c++ {
			i := f*ch + c
			out.Samples[i] = clip16(float64(out.Samples[i]) * scale)
		}
	}
	return out
}

// Curve maps crossfade progress in [0,1] to the incoming gain.
type Curve func(t float64) float64

// CurveLinear is an equal-gain linear ramp.
func CurveLinear(t float64) float64 {
	return min(max(t, 0), 1)
}

// CurveSmoothstep eases in and out: 3t^2 - 2t^3.
func CurveSmoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// Blend mixes two windows of equal length frame by frame. Progress runs from
// all outgoing at the first frame towards all incoming at the last.
func Blend(outgoing, incoming []int16, channels int, curve Curve) []int16 {
	if curve == nil {
		curve = CurveLinear
	}
	frames := len(outgoing) / channels
	result := make([]int16, len(outgoing))
	for f := 0; f < frames; f++ {
		g := curve(float64(f) / float64(frames))
		for c := 0; c < channels; c++ {
			i := f*channels + c
			result[i] = clip16(float64(outgoing[i])*(1-g) + float64(incoming[i])*g)
		}
	}
	return result
}

// AppendCrossfade returns a followed by b, overlapping the last xf frames of a
// with the first xf frames of b. The result has a.Frames()+b.Frames()-xf
// frames.
func AppendCrossfade(a, b *Segment, xf int, curve Curve) (*Segment, error) {
	if a.Format != b.Format {
		return nil, fmt.Errorf("%w: %s vs %s", ErrFormatMismatch, a.Format, b.Format)
	}
	if xf > a.Frames() || xf > b.Frames() {
		return nil, fmt.Errorf("%w: %d frames across clips of %d and %d frames",
			ErrCrossfadeTooLong, xf, a.Frames(), b.Frames())
	}
	xf = max(xf, 0)
	ch := a.Format.Channels
	split := (a.Frames() - xf) * ch

	out := make([]int16, 0, len(a.Samples)+len(b.Samples)-xf*ch)
	out = append(out, a.Samples[:split]...)
	out = append(out, Blend(a.Samples[split:], b.Samples[:xf*ch], ch, curve)...)
	out = append(out, b.Samples[xf*ch:]...)
	return &Segment{Format: a.Format, Samples: out}, nil
}

func clip16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
