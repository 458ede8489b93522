package mix

import (
	"context"
	"time"

	"github.com/alnah/go-tilawa/internal/audio"
)

// codec reads and writes clips. *audio.Codec satisfies it.
type codec interface {
	Decode(ctx context.Context, path string) (*audio.Segment, error)
	Encode(ctx context.Context, seg *audio.Segment, path string) error
	Transcode(ctx context.Context, wavPath, outPath string) error
}

// durationReader measures a finished file. *audio.Oracle satisfies it.
type durationReader interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

var (
	_ codec          = (*audio.Codec)(nil)
	_ durationReader = (*audio.Oracle)(nil)
)

// wavCodec is the default: WAV in, WAV or nothing out.
func wavCodec() codec { return audio.NewCodec("") }
