package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// minMajorVersion is the oldest FFmpeg whose libmp3lame and s16le pipe
// behavior has been checked against the pipeline.
const minMajorVersion = 4

// VersionInfo is what Check learned from `ffmpeg -version`.
type VersionInfo struct {
	Major   int
	HasLame bool
}

// VersionChecker inspects the FFmpeg build in use.
type VersionChecker struct {
	executor *Executor
	stderr   io.Writer
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running FFmpeg.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionStderr sets the writer for warning messages.
func WithVersionStderr(w io.Writer) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.stderr = w }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check parses the version banner and warns on stderr when the binary is
// older than supported or was built without libmp3lame. It never fails:
// ok is false only when the banner could not be parsed.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) (info VersionInfo, ok bool) {
	output, err := vc.executor.RunStdout(ctx, ffmpegPath, []string{"-hide_banner", "-version"})
	if err != nil && output == "" {
		return VersionInfo{}, false
	}

	first, _, _ := strings.Cut(output, "\n")
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &info.Major); err != nil {
		if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &info.Major); err != nil {
			return VersionInfo{}, false
		}
	}
	info.HasLame = strings.Contains(output, "--enable-libmp3lame")

	if info.Major < minMajorVersion {
		fmt.Fprintf(vc.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			info.Major, minMajorVersion)
	}
	if !info.HasLame {
		fmt.Fprintln(vc.stderr, "Warning: ffmpeg was built without libmp3lame, MP3 export will fail (use a .wav output)")
	}
	return info, true
}
