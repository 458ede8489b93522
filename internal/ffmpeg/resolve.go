package ffmpeg

import (
	"context"
	"fmt"
	"runtime"
)

// EnvFFmpegPath overrides binary discovery when set.
const EnvFFmpegPath = "FFMPEG_PATH"

const binaryName = "ffmpeg"

// Resolver locates the FFmpeg binary.
type Resolver struct {
	explicit string
	stat     fileStatter
	env      envProvider
	goos     string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithExplicitPath sets a path taken from configuration. It wins over
// FFMPEG_PATH and PATH lookup.
func WithExplicitPath(path string) ResolverOption {
	return func(r *Resolver) { r.explicit = path }
}

// WithFileStatter sets the stat implementation (for testing).
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithEnvProvider sets the environment implementation (for testing).
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithGOOS overrides the platform used for install instructions.
func WithGOOS(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver backed by the OS.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat: osFileStatter{},
		env:  osEnvProvider{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. explicit path from configuration
//  2. FFMPEG_PATH environment variable
//  3. system PATH
//
// A configured path that does not exist is an error rather than a silent
// fall through to PATH.
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	for _, candidate := range []struct{ source, path string }{
		{"ffmpeg-path", r.explicit},
		{EnvFFmpegPath, r.env.Getenv(EnvFFmpegPath)},
	} {
		if candidate.path == "" {
			continue
		}
		if _, err := r.stat.Stat(candidate.path); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but the binary does not exist",
				ErrNotFound, candidate.source, candidate.path)
		}
		return candidate.path, nil
	}

	if path, err := r.env.LookPath(binaryName); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.installInstructions())
}

func (r *Resolver) installInstructions() string {
	switch r.goos {
	case "darwin":
		return `To install FFmpeg:
  brew install ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "linux":
		return `To install FFmpeg:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH to your ffmpeg binary.`
	case "windows":
		return `To install FFmpeg:
  winget install ffmpeg

Or set FFMPEG_PATH to your ffmpeg.exe.`
	default:
		return `Download FFmpeg from https://ffmpeg.org/download.html
or set FFMPEG_PATH to your ffmpeg binary.`
	}
}
