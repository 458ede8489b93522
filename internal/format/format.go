// Package format renders durations and sizes for terminal output.
package format

import (
	"fmt"
	"math"
	"time"
)

// HMS formats a length in seconds as HH:MM:SS. Fractional seconds are
// truncated, never rounded: 59.9 renders as "00:00:59". Negative and NaN
// inputs render as "00:00:00".
func HMS(seconds float64) string {
	if math.IsNaN(seconds) || seconds <= 0 {
		return "00:00:00"
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Clock is HMS for a time.Duration.
func Clock(d time.Duration) string {
	return HMS(d.Seconds())
}

// Seconds formats d with millisecond precision, e.g. "3.500s".
func Seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// Size formats a size in bytes for human display.
// Uses MB for sizes >= 1MB, KB otherwise.
func Size(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	if bytes >= mb {
		return fmt.Sprintf("%d MB", bytes/mb)
	}
	if bytes >= kb {
		return fmt.Sprintf("%d KB", bytes/kb)
	}
	return fmt.Sprintf("%d bytes", bytes)
}
