package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavPCMFormat is the WAVE_FORMAT_PCM tag.
const wavPCMFormat = 1

// IsWAV reports whether the file starts with a RIFF/WAVE header, whatever
// its extension.
func IsWAV(path string) bool {
	f, err := os.Open(path) // #nosec G304 -- caller-provided audio path
	if err != nil {
		return false
	}
	defer f.Close()

	var hdr [12]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return false
	}
	return bytes.Equal(hdr[0:4], []byte("RIFF")) && bytes.Equal(hdr[8:12], []byte("WAVE"))
}

// ReadWAV decodes a PCM WAV file into a Segment. 24 and 32-bit input is
// reduced to 16 bits.
func ReadWAV(path string) (*Segment, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-provided audio path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnreadableAudio, path)
	}

	shift, err := bitDepthShift(int(dec.BitDepth))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v >> shift)
	}
	return NewSegment(Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}, samples), nil
}

func bitDepthShift(depth int) (uint, error) {
	switch depth {
	case 16:
		return 0, nil
	case 24:
		return 8, nil
	case 32:
		return 16, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", depth)
	}
}

// WAVDuration reads the header and data chunk size only.
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-provided audio path
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid WAV file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("locate data chunk: %w", err)
	}

	frameBytes := int(dec.NumChans) * int(dec.BitDepth) / 8
	if frameBytes == 0 || dec.SampleRate == 0 {
		return 0, fmt.Errorf("%s: invalid WAV header", path)
	}
	frames := dec.PCMSize / frameBytes
	return Format{SampleRate: int(dec.SampleRate)}.DurationOf(frames), nil
}

// WriteWAV writes seg as 16-bit PCM.
func WriteWAV(path string, seg *Segment) error {
	w, err := CreateWAV(path, seg.Format)
	if err != nil {
		return err
	}
	if err := w.Write(seg.Samples); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// WAVWriter streams 16-bit PCM to disk. The header sizes are patched on Close.
type WAVWriter struct {
	file   *os.File
	enc    *wav.Encoder
	format Format
	frames int
}

// CreateWAV creates path (and its parent directory) for streaming writes.
func CreateWAV(path string, f Format) (*WAVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path) // #nosec G304 -- output path chosen by caller
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &WAVWriter{
		file:   file,
		enc:    wav.NewEncoder(file, f.SampleRate, 16, f.Channels, wavPCMFormat),
		format: f,
	}, nil
}

// Write appends interleaved samples.
func (w *WAVWriter) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: w.format.SampleRate, NumChannels: w.format.Channels},
		SourceBitDepth: 16,
	}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("write WAV samples: %w", err)
	}
	w.frames += len(samples) / w.format.Channels
	return nil
}

// Frames returns how many frames have been written so far.
func (w *WAVWriter) Frames() int { return w.frames }

// Close finalizes the header and closes the file.
func (w *WAVWriter) Close() error {
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("finalize WAV: %w", encErr)
	}
	return fileErr
}
