package quran

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// VerseText is the display metadata of one ayah.
type VerseText struct {
	SuraNameEn string `json:"sura_name_en"`
	SuraNameAr string `json:"sura_name_ar"`
	AyaText    string `json:"aya_text"`
}

// TextLookup resolves the text of an ayah.
type TextLookup interface {
	Verse(surah, ayah int) (VerseText, bool)
}

type verseKey struct{ surah, ayah int }

// TextIndex is an in-memory TextLookup.
type TextIndex struct {
	verses map[verseKey]VerseText
}

// NewTextIndex returns an empty index.
func NewTextIndex() *TextIndex {
	return &TextIndex{verses: make(map[verseKey]VerseText)}
}

// Add stores the text of an ayah, replacing any previous entry.
func (x *TextIndex) Add(surah, ayah int, v VerseText) {
	x.verses[verseKey{surah, ayah}] = v
}

// Verse implements TextLookup.
func (x *TextIndex) Verse(surah, ayah int) (VerseText, bool) {
	v, ok := x.verses[verseKey{surah, ayah}]
	return v, ok
}

// Len returns the number of indexed ayahs.
func (x *TextIndex) Len() int { return len(x.verses) }

// hafsRecord is one element of the Uthmanic Hafs JSON array.
type hafsRecord struct {
	SuraNo     *int    `json:"sura_no"`
	AyaNo      *int    `json:"aya_no"`
	SuraNameEn *string `json:"sura_name_en"`
	SuraNameAr *string `json:"sura_name_ar"`
	AyaText    *string `json:"aya_text"`
}

// ErrInvalidTextData indicates a malformed verse text file.
var ErrInvalidTextData = errors.New("invalid verse text data")

// LoadHafs reads the Uthmanic Hafs dataset (a JSON array of verse objects).
func LoadHafs(path string) (*TextIndex, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-configured dataset path
	if err != nil {
		return nil, fmt.Errorf("read verse text: %w", err)
	}
	return ParseHafs(data)
}

// ParseHafs parses the Uthmanic Hafs JSON. Every record must carry all of
// sura_no, aya_no, sura_name_en, sura_name_ar and aya_text.
func ParseHafs(data []byte) (*TextIndex, error) {
	var records []hafsRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTextData, err)
	}

	idx := NewTextIndex()
	for i, r := range records {
		if r.SuraNo == nil || r.AyaNo == nil || r.SuraNameEn == nil || r.SuraNameAr == nil || r.AyaText == nil {
			return nil, fmt.Errorf("%w: record %d is missing a required field", ErrInvalidTextData, i)
		}
		idx.Add(*r.SuraNo, *r.AyaNo, VerseText{
			SuraNameEn: *r.SuraNameEn,
			SuraNameAr: *r.SuraNameAr,
			AyaText:    *r.AyaText,
		})
	}
	return idx, nil
}
