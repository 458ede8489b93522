package audio

import (
	"fmt"
	"time"
)

// Format describes interleaved 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// PipelineFormat is what FFmpeg decodes every clip to, so clips from
// different sources can be mixed sample for sample.
var PipelineFormat = Format{SampleRate: 44100, Channels: 2}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz/%d ch", f.SampleRate, f.Channels)
}

// FramesFor converts a duration to a frame count, truncating.
func (f Format) FramesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

// DurationOf converts a frame count to a duration.
func (f Format) DurationOf(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(f.SampleRate))
}

// Segment is a block of interleaved 16-bit samples.
// Methods never modify the receiver. Slices may share memory with it.
type Segment struct {
	Format  Format
	Samples []int16
}

// NewSegment wraps samples, dropping a trailing partial frame.
func NewSegment(f Format, samples []int16) *Segment {
	if f.Channels > 0 {
		samples = samples[:len(samples)-len(samples)%f.Channels]
	}
	return &Segment{Format: f, Samples: samples}
}

// Silence returns d of digital silence.
func Silence(f Format, d time.Duration) *Segment {
	return &Segment{Format: f, Samples: make([]int16, f.FramesFor(d)*f.Channels)}
}

// Frames returns the number of sample frames.
func (s *Segment) Frames() int {
	if s.Format.Channels <= 0 {
		return 0
	}
	return len(s.Samples) / s.Format.Channels
}

// Duration returns the exact length of the segment.
func (s *Segment) Duration() time.Duration {
	return s.Format.DurationOf(s.Frames())
}

// Milliseconds returns the length rounded to the nearest millisecond.
func (s *Segment) Milliseconds() int64 {
	if s.Format.SampleRate <= 0 {
		return 0
	}
	sr := int64(s.Format.SampleRate)
	return (int64(s.Frames())*1000 + sr/2) / sr
}

// Slice returns frames [from, to), clamped to the segment bounds.
func (s *Segment) Slice(from, to int) *Segment {
	n := s.Frames()
	from = min(max(from, 0), n)
	to = min(max(to, from), n)
	ch := s.Format.Channels
	return &Segment{Format: s.Format, Samples: s.Samples[from*ch : to*ch]}
}

// Concat joins segments end to end without blending.
func Concat(f Format, parts ...*Segment) (*Segment, error) {
	total := 0
	for _, p := range parts {
		if p.Format != f {
			return nil, fmt.Errorf("%w: %s vs %s", ErrFormatMismatch, p.Format, f)
		}
		total += len(p.Samples)
	}
	out := make([]int16, 0, total)
	for _, p := range parts {
		out = append(out, p.Samples...)
	}
	return &Segment{Format: f, Samples: out}, nil
}

func (s *Segment) clone() *Segment {
	return &Segment{Format: s.Format, Samples: append([]int16(nil), s.Samples...)}
}
