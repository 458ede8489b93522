package format_test

// Notes:
// - HMS truncates. The 59.9 and 3661 cases pin that contract.

import (
	"math"
	"testing"
	"time"

	"github.com/alnah/go-tilawa/internal/format"
)

// ---------------------------------------------------------------------------
// TestHMS - seconds to HH:MM:SS with truncation
// ---------------------------------------------------------------------------

func TestHMS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{name: "zero", input: 0, want: "00:00:00"},
		{name: "truncates fraction", input: 59.9, want: "00:00:59"},
		{name: "one hour one minute one second", input: 3661, want: "01:01:01"},
		{name: "just under a minute boundary", input: 119.999, want: "00:01:59"},
		{name: "long surah", input: 2*3600 + 5*60 + 7.5, want: "02:05:07"},
		{name: "over a day keeps counting hours", input: 25 * 3600, want: "25:00:00"},
		{name: "negative clamps", input: -3, want: "00:00:00"},
		{name: "NaN clamps", input: math.NaN(), want: "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := format.HMS(tt.input); got != tt.want {
				t.Errorf("HMS(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClock(t *testing.T) {
	t.Parallel()

	if got := format.Clock(time.Hour + 999*time.Millisecond); got != "01:00:00" {
		t.Errorf("Clock() = %q, want %q", got, "01:00:00")
	}
}

func TestSeconds(t *testing.T) {
	t.Parallel()

	if got := format.Seconds(3500 * time.Millisecond); got != "3.500s" {
		t.Errorf("Seconds() = %q, want %q", got, "3.500s")
	}
}

// ---------------------------------------------------------------------------
// TestSize - byte counts for display
// ---------------------------------------------------------------------------

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 bytes"},
		{1023, "1023 bytes"},
		{1024, "1 KB"},
		{1024*1024 - 1, "1023 KB"},
		{5 * 1024 * 1024, "5 MB"},
	}

	for _, tt := range tests {
		if got := format.Size(tt.input); got != tt.want {
			t.Errorf("Size(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
