// Package reciter loads the recitations manifest and answers questions
// about reciters and verse bounds.
package reciter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alnah/go-tilawa/internal/quran"
)

// Config describes one recitation on the audio server.
type Config struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Bitrate   string `json:"bitrate"`
}

func (c Config) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Bitrate)
}

// Manifest is the parsed recitations index.
type Manifest struct {
	reciters  map[int]Config
	ayahCount []int
}

// ParseManifest decodes the recitations manifest: a JSON object whose
// numeric keys map to reciter entries and whose "ayahCount" key lists the
// ayah count of each of the 114 surahs. Other keys are ignored.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	m := &Manifest{reciters: make(map[int]Config)}

	counts, ok := raw["ayahCount"]
	if !ok {
		return nil, fmt.Errorf("%w: missing ayahCount", ErrInvalidManifest)
	}
	if err := json.Unmarshal(counts, &m.ayahCount); err != nil {
		return nil, fmt.Errorf("%w: ayahCount: %v", ErrInvalidManifest, err)
	}
	if len(m.ayahCount) != quran.SurahCount {
		return nil, fmt.Errorf("%w: ayahCount has %d entries, want %d",
			ErrInvalidManifest, len(m.ayahCount), quran.SurahCount)
	}

	for key, value := range raw {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 {
			continue
		}
		var c Config
		if err := json.Unmarshal(value, &c); err != nil {
			return nil, fmt.Errorf("%w: reciter %s: %v", ErrInvalidManifest, key, err)
		}
		c.ID = id
		m.reciters[id] = c
	}
	return m, nil
}

// Reciter returns the entry for id.
func (m *Manifest) Reciter(id int) (Config, error) {
	c, ok := m.reciters[id]
	if !ok {
		return Config{}, fmt.Errorf("%w: %d", ErrUnknownReciter, id)
	}
	return c, nil
}

// MaxAyah returns the ayah count of surah, or 0 if surah is out of range.
func (m *Manifest) MaxAyah(surah int) int {
	if surah < 1 || surah > len(m.ayahCount) {
		return 0
	}
	return m.ayahCount[surah-1]
}

// Validate checks 1 <= surah <= 114 and 1 <= ayah <= MaxAyah(surah).
func (m *Manifest) Validate(surah, ayah int) error {
	if surah < 1 || surah > quran.SurahCount {
		return fmt.Errorf("%w: surah %d must be between 1 and %d", ErrInvalidVerseRange, surah, quran.SurahCount)
	}
	if limit := m.MaxAyah(surah); ayah < 1 || ayah > limit {
		return fmt.Errorf("%w: ayah %d must be between 1 and %d for surah %d", ErrInvalidVerseRange, ayah, limit, surah)
	}
	return nil
}

// ValidateRange checks the shape of r, both bounds, and the reciter id.
func (m *Manifest) ValidateRange(r quran.Range) error {
	if err := r.CheckShape(); err != nil {
		return err
	}
	if err := m.Validate(r.Surah, r.StartAyah); err != nil {
		return err
	}
	if err := m.Validate(r.Surah, r.EndAyah); err != nil {
		return err
	}
	_, err := m.Reciter(r.ReciterID)
	return err
}

// List returns every reciter sorted by name, then id.
func (m *Manifest) List() []Config {
	out := make([]Config, 0, len(m.reciters))
	for _, c := range m.reciters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Search returns reciters whose name contains term, case-insensitively.
func (m *Manifest) Search(term string) []Config {
	term = strings.ToLower(term)
	var out []Config
	for _, c := range m.List() {
		if strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	return out
}

// ByBitrate returns reciters whose bitrate equals bitrate, case-insensitively.
func (m *Manifest) ByBitrate(bitrate string) []Config {
	var out []Config
	for _, c := range m.List() {
		if strings.EqualFold(c.Bitrate, bitrate) {
			out = append(out, c)
		}
	}
	return out
}
