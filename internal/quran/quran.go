// Package quran holds the vocabulary shared by the pipeline: verse ranges,
// per-verse file names and the verse text lookup.
package quran

import (
	"errors"
	"fmt"
)

// SurahCount is the number of surahs in the mushaf.
const SurahCount = 114

// ErrInvalidVerseRange indicates a surah or ayah outside the mushaf.
var ErrInvalidVerseRange = errors.New("invalid verse range")

// Range selects consecutive ayahs of one surah recited by one reciter.
// Ayah bounds are inclusive.
type Range struct {
	ReciterID int
	Surah     int
	StartAyah int
	EndAyah   int
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d (reciter %d)", r.Surah, r.StartAyah, r.EndAyah, r.ReciterID)
}

// Len returns the number of ayahs in the range.
func (r Range) Len() int {
	return max(r.EndAyah-r.StartAyah+1, 0)
}

// Ayahs returns the ayah numbers in order.
func (r Range) Ayahs() []int {
	out := make([]int, 0, r.Len())
	for a := r.StartAyah; a <= r.EndAyah; a++ {
		out = append(out, a)
	}
	return out
}

// CheckShape validates what can be checked without the per-surah ayah
// counts: the surah number and the ordering of the bounds.
func (r Range) CheckShape() error {
	if r.Surah < 1 || r.Surah > SurahCount {
		return fmt.Errorf("%w: surah %d must be between 1 and %d", ErrInvalidVerseRange, r.Surah, SurahCount)
	}
	if r.StartAyah < 1 {
		return fmt.Errorf("%w: start ayah %d must be at least 1", ErrInvalidVerseRange, r.StartAyah)
	}
	if r.EndAyah < r.StartAyah {
		return fmt.Errorf("%w: end ayah %d before start ayah %d", ErrInvalidVerseRange, r.EndAyah, r.StartAyah)
	}
	return nil
}

// AudioFileName is the per-verse file name used both remotely and in the
// local cache, e.g. "002255.mp3".
func AudioFileName(surah, ayah int) string {
	return fmt.Sprintf("%03d%03d.mp3", surah, ayah)
}
