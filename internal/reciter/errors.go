package reciter

import (
	"errors"

	"github.com/alnah/go-tilawa/internal/quran"
)

// ErrUnknownReciter indicates an id absent from the manifest.
var ErrUnknownReciter = errors.New("unknown reciter")

// ErrInvalidManifest indicates the manifest could not be parsed.
var ErrInvalidManifest = errors.New("invalid recitations manifest")

// ErrInvalidVerseRange is quran.ErrInvalidVerseRange, re-exported so callers
// of this package can match validation failures without another import.
var ErrInvalidVerseRange = quran.ErrInvalidVerseRange
