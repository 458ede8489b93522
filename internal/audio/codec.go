package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// mp3Bitrate is the export bitrate for the one lossy output codec.
	mp3Bitrate = "192k"

	extWAV = ".wav"
	extMP3 = ".mp3"
)

// Codec moves audio between files and Segments. WAV is handled natively;
// everything else goes through FFmpeg. A Codec without an FFmpeg path is
// WAV-only.
type Codec struct {
	ffmpegPath string
	format     Format
	cmd        commandRunner
	stat       fileStatter
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithCodecFormat sets the PCM format FFmpeg decodes to.
func WithCodecFormat(f Format) CodecOption {
	return func(c *Codec) { c.format = f }
}

// WithCodecCommandRunner sets a custom command runner (for testing).
func WithCodecCommandRunner(r commandRunner) CodecOption {
	return func(c *Codec) { c.cmd = r }
}

// NewCodec creates a Codec. ffmpegPath may be empty.
func NewCodec(ffmpegPath string, opts ...CodecOption) *Codec {
	c := &Codec{
		ffmpegPath: ffmpegPath,
		format:     PipelineFormat,
		cmd:        osCommandRunner{},
		stat:       osFileStatter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Format returns the PCM format of FFmpeg-decoded segments.
func (c *Codec) Format() Format { return c.format }

// Decode reads path into memory. Files with a RIFF/WAVE header are read
// natively whatever their extension and keep their own format.
func (c *Codec) Decode(ctx context.Context, path string) (*Segment, error) {
	if _, err := c.stat.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", ErrUnreadableAudio, ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}

	if IsWAV(path) {
		return ReadWAV(path)
	}
	if c.ffmpegPath == "" {
		return nil, fmt.Errorf("%w: %s needs ffmpeg to decode", ErrUnreadableAudio, path)
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(c.format.SampleRate),
		"-ac", strconv.Itoa(c.format.Channels),
		"pipe:1",
	}
	out, err := c.cmd.Output(ctx, c.ffmpegPath, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnreadableAudio, path, err)
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("%w: %s decoded to no samples", ErrUnreadableAudio, path)
	}
	return NewSegment(c.format, bytesToSamples(out)), nil
}

// Encode writes seg to path. The container follows the extension: .wav is
// written directly, .mp3 is transcoded from a temporary WAV next to path.
func (c *Codec) Encode(ctx context.Context, seg *Segment, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case extWAV:
		return WriteWAV(path, seg)
	case extMP3:
		tmp := path + ".part.wav"
		if err := WriteWAV(tmp, seg); err != nil {
			return err
		}
		defer os.Remove(tmp)
		return c.Transcode(ctx, tmp, path)
	default:
		return fmt.Errorf("%w: %q (use .wav or .mp3)", ErrUnsupportedOutput, ext)
	}
}

// Transcode converts a WAV file to the container implied by outPath.
// A WAV destination is a plain rename.
func (c *Codec) Transcode(ctx context.Context, wavPath, outPath string) error {
	switch ext := strings.ToLower(filepath.Ext(outPath)); ext {
	case extWAV:
		return os.Rename(wavPath, outPath)
	case extMP3:
	default:
		return fmt.Errorf("%w: %q (use .wav or .mp3)", ErrUnsupportedOutput, ext)
	}

	if c.ffmpegPath == "" {
		return fmt.Errorf("%w: ffmpeg is required to write %s", ErrEncodeFailed, outPath)
	}
	args := append([]string{"-y", "-hide_banner", "-loglevel", "error", "-i", wavPath}, mp3EncodingArgs()...)
	args = append(args, outPath)

	if err := c.cmd.RunGraceful(ctx, c.ffmpegPath, args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, outPath, err)
	}
	// An interrupted encode still exits cleanly with a truncated file.
	if err := ctx.Err(); err != nil {
		_ = os.Remove(outPath)
		return err
	}
	return nil
}

func mp3EncodingArgs() []string {
	return []string{
		"-c:a", "libmp3lame",
		"-b:a", mp3Bitrate,
	}
}

func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}
