// Package recitertest builds recitations manifests for tests.
package recitertest

import (
	"encoding/json"
	"strconv"

	"github.com/alnah/go-tilawa/internal/reciter"
)

// AyahCounts is the Hafs ayah count of every surah.
var AyahCounts = []int{
	7, 286, 200, 176, 120, 165, 206, 75, 129, 109, 123, 111, 43, 52, 99, 128,
	111, 110, 98, 135, 112, 78, 118, 64, 77, 227, 93, 88, 69, 60, 34, 30, 73,
	54, 45, 83, 182, 88, 75, 85, 54, 53, 89, 59, 37, 35, 38, 29, 18, 45, 60,
	49, 62, 55, 78, 96, 29, 22, 24, 13, 14, 11, 11, 18, 12, 12, 30, 52, 52,
	44, 28, 28, 20, 56, 40, 31, 50, 40, 46, 42, 29, 19, 36, 25, 22, 17, 19,
	26, 30, 20, 15, 21, 11, 8, 8, 19, 5, 8, 8, 11, 11, 8, 3, 9, 5, 4, 7, 3,
	6, 3, 5, 4, 5, 6,
}

// Basfar is reciter 6 of the public manifest.
var Basfar = reciter.Config{ID: 6, Name: "Abdullah Basfar", Subfolder: "Abdullah_Basfar_192kbps", Bitrate: "192kbps"}

// Husary is reciter 1 of the public manifest.
var Husary = reciter.Config{ID: 1, Name: "Husary", Subfolder: "Husary_64kbps", Bitrate: "64kbps"}

// ManifestJSON renders a manifest with the given reciters, plus a non-numeric
// key that parsers must skip.
func ManifestJSON(reciters ...reciter.Config) []byte {
	raw := map[string]any{
		"ayahCount": AyahCounts,
		"version":   "test",
	}
	for _, c := range reciters {
		raw[strconv.Itoa(c.ID)] = map[string]string{
			"subfolder": c.Subfolder,
			"name":      c.Name,
			"bitrate":   c.Bitrate,
		}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		panic(err)
	}
	return data
}

// Manifest parses ManifestJSON.
func Manifest(reciters ...reciter.Config) *reciter.Manifest {
	m, err := reciter.ParseManifest(ManifestJSON(reciters...))
	if err != nil {
		panic(err)
	}
	return m
}
