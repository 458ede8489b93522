package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/alnah/go-tilawa/internal/ffmpeg"
	"github.com/alnah/go-tilawa/internal/format"
)

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	timeRe     = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// MetadataReader reports a container's declared duration.
type MetadataReader interface {
	ReadDuration(ctx context.Context, path string) (time.Duration, error)
}

// FFmpegProbe reads the duration FFmpeg prints when opening a file.
type FFmpegProbe struct {
	ffmpegPath string
	exec       *ffmpeg.Executor
}

// ProbeOption configures an FFmpegProbe.
type ProbeOption func(*FFmpegProbe)

// WithProbeExecutor sets the executor whose stderr is parsed (for testing).
func WithProbeExecutor(e *ffmpeg.Executor) ProbeOption {
	return func(p *FFmpegProbe) { p.exec = e }
}

// NewFFmpegProbe creates a probe for the given binary.
func NewFFmpegProbe(ffmpegPath string, opts ...ProbeOption) *FFmpegProbe {
	p := &FFmpegProbe{ffmpegPath: ffmpegPath, exec: ffmpeg.NewExecutor()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReadDuration implements MetadataReader.
func (p *FFmpegProbe) ReadDuration(ctx context.Context, path string) (time.Duration, error) {
	// Without an output FFmpeg prints stream info and exits 1.
	output, err := p.exec.RunOutput(ctx, p.ffmpegPath, []string{"-hide_banner", "-i", path})
	if err != nil && output == "" {
		return 0, err
	}
	return parseDurationFromFFmpegOutput(output)
}

// parseDurationFromFFmpegOutput extracts duration from FFmpeg stderr.
// Looks for "Duration: HH:MM:SS.ff", else the last "time=HH:MM:SS.ff".
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	if m := durationRe.FindStringSubmatch(output); m != nil {
		return parseTimeComponents(m[1], m[2], m[3], m[4]), nil
	}
	if all := timeRe.FindAllStringSubmatch(output, -1); len(all) > 0 {
		m := all[len(all)-1]
		return parseTimeComponents(m[1], m[2], m[3], m[4]), nil
	}
	return 0, errors.New("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH, MM, SS and a fraction of any precision.
func parseTimeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	if len(fractional) > 9 {
		fractional = fractional[:9]
	}
	frac, _ := strconv.Atoi(fractional)
	for i := len(fractional); i < 9; i++ {
		frac *= 10
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(frac)
}

// Source names the reader that produced a Measurement.
type Source string

// Measurement sources.
const (
	SourceMetadata Source = "metadata"
	SourceWAV      Source = "wav"
)

// Measurement is the outcome of Oracle.Measure.
type Measurement struct {
	Duration time.Duration
	Source   Source
}

// Seconds returns the duration as fractional seconds.
func (m Measurement) Seconds() float64 { return m.Duration.Seconds() }

// Formatted returns the duration as truncated HH:MM:SS.
func (m Measurement) Formatted() string { return format.Clock(m.Duration) }

// Oracle measures audio length: metadata first, WAV header second.
type Oracle struct {
	meta MetadataReader
	stat fileStatter
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithMetadataReader sets the primary reader. Without one the oracle only
// understands WAV files.
func WithMetadataReader(r MetadataReader) OracleOption {
	return func(o *Oracle) { o.meta = r }
}

// WithOracleFileStatter sets a custom stat implementation (for testing).
func WithOracleFileStatter(s fileStatter) OracleOption {
	return func(o *Oracle) { o.stat = s }
}

// NewOracle creates an Oracle.
func NewOracle(opts ...OracleOption) *Oracle {
	o := &Oracle{stat: osFileStatter{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Duration returns the length of the file at path.
func (o *Oracle) Duration(ctx context.Context, path string) (time.Duration, error) {
	m, err := o.Measure(ctx, path)
	return m.Duration, err
}

// Measure returns the length of the file at path and which reader
// determined it. Fails with ErrUnreadableAudio when neither can.
func (o *Oracle) Measure(ctx context.Context, path string) (Measurement, error) {
	if _, err := o.stat.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Measurement{}, fmt.Errorf("%w: %w: %s", ErrUnreadableAudio, ErrFileNotFound, path)
		}
		return Measurement{}, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}

	var metaErr error
	if o.meta != nil {
		d, err := o.meta.ReadDuration(ctx, path)
		if err == nil && d > 0 {
			return Measurement{Duration: d, Source: SourceMetadata}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Measurement{}, ctxErr
		}
		metaErr = err
		if metaErr == nil {
			metaErr = errors.New("zero duration")
		}
	}

	d, err := WAVDuration(path)
	if err != nil {
		if metaErr != nil {
			return Measurement{}, fmt.Errorf("%w: %s: metadata: %v; wav: %v", ErrUnreadableAudio, path, metaErr, err)
		}
		return Measurement{}, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}
	return Measurement{Duration: d, Source: SourceWAV}, nil
}
