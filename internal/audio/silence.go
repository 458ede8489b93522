package audio

import "time"

// SilenceWindow is the granularity of silence detection.
const SilenceWindow = 10 * time.Millisecond

// Run is a half-open range of frames.
type Run struct {
	Start, End int
}

// Len returns the run length in frames.
func (r Run) Len() int { return r.End - r.Start }

// silentWindows classifies consecutive windows as silent when their RMS is
// below the threshold. The last window may be shorter.
func (s *Segment) silentWindows(thresholdDB float64, window time.Duration) (flags []bool, size int) {
	size = max(s.Format.FramesFor(window), 1)
	limit := DBToAmplitude(thresholdDB)
	ch := s.Format.Channels
	for start := 0; start < s.Frames(); start += size {
		end := min(start+size, s.Frames())
		flags = append(flags, rms(s.Samples[start*ch:end*ch]) < limit)
	}
	return flags, size
}

// LeadingSilence returns how many frames at the start of the segment are
// below thresholdDB, measured in whole windows.
func (s *Segment) LeadingSilence(thresholdDB float64) int {
	flags, size := s.silentWindows(thresholdDB, SilenceWindow)
	n := 0
	for _, silent := range flags {
		if !silent {
			break
		}
		n += size
	}
	return min(n, s.Frames())
}

// SilentRuns returns every stretch of consecutive silent windows lasting at
// least minLen.
func (s *Segment) SilentRuns(thresholdDB float64, minLen time.Duration) []Run {
	flags, size := s.silentWindows(thresholdDB, SilenceWindow)
	minFrames := s.Format.FramesFor(minLen)
	total := s.Frames()

	var runs []Run
	start := -1
	for i, silent := range flags {
		switch {
		case silent && start < 0:
			start = i * size
		case !silent && start >= 0:
			if r := (Run{start, i * size}); r.Len() >= minFrames {
				runs = append(runs, r)
			}
			start = -1
		}
	}
	if start >= 0 {
		if r := (Run{start, total}); r.Len() >= minFrames {
			runs = append(runs, r)
		}
	}
	return runs
}
