// Package audiotest synthesizes PCM fixtures for tests in other packages.
package audiotest

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/alnah/go-tilawa/internal/audio"
)

// Format is a small format that keeps fixtures fast: 8 kHz mono.
var Format = audio.Format{SampleRate: 8000, Channels: 1}

// Tone returns a sine at freq Hz whose RMS level is dbfs.
func Tone(f audio.Format, d time.Duration, dbfs, freq float64) *audio.Segment {
	frames := f.FramesFor(d)
	// RMS of a sine is peak/sqrt(2).
	peak := audio.DBToAmplitude(dbfs) * math.Sqrt2
	samples := make([]int16, frames*f.Channels)
	for i := 0; i < frames; i++ {
		v := int16(math.Round(peak * math.Sin(2*math.Pi*freq*float64(i)/float64(f.SampleRate))))
		for c := 0; c < f.Channels; c++ {
			samples[i*f.Channels+c] = v
		}
	}
	return audio.NewSegment(f, samples)
}

// Speech returns silence(lead) + tone(body) + silence(tail) at -20 dBFS.
func Speech(f audio.Format, lead, body, tail time.Duration) *audio.Segment {
	seg, err := audio.Concat(f, audio.Silence(f, lead), Tone(f, body, -20, 440), audio.Silence(f, tail))
	if err != nil {
		panic(err)
	}
	return seg
}

// WriteWAV writes seg under t.TempDir and returns the path.
func WriteWAV(t testing.TB, name string, seg *audio.Segment) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	WriteWAVAt(t, path, seg)
	return path
}

// WriteWAVAt writes seg at path.
func WriteWAVAt(t testing.TB, path string, seg *audio.Segment) {
	t.Helper()
	if err := audio.WriteWAV(path, seg); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}
