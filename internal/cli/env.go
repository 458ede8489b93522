package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alnah/go-tilawa/internal/config"
	"github.com/alnah/go-tilawa/internal/fetch"
	"github.com/alnah/go-tilawa/internal/ffmpeg"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Logger *slog.Logger

	// Factories for domain objects
	FFmpegResolver FFmpegResolver
	ConfigLoader   ConfigLoader
	FetcherFactory FetcherFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	// Resolve honors explicit (from configuration) before FFMPEG_PATH and PATH.
	Resolve(ctx context.Context, explicit string) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// FetcherFactory creates the rate-limited HTTP client used by one command.
// All requests of a command share the fetcher, and so its interval.
type FetcherFactory interface {
	NewFetcher() *fetch.Fetcher
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithLogger sets the structured logger handed to domain components.
func WithLogger(l *slog.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithFetcherFactory sets the fetcher factory.
func WithFetcherFactory(f FetcherFactory) EnvOption {
	return func(e *Env) {
		e.FetcherFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Getenv:         os.Getenv,
		Logger:         slog.Default(),
		FFmpegResolver: &defaultFFmpegResolver{},
		ConfigLoader:   &defaultConfigLoader{},
		FetcherFactory: &defaultFetcherFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// NewLogger returns a text logger on w, at Debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context, explicit string) (string, error) {
	return ffmpeg.NewResolver(ffmpeg.WithExplicitPath(explicit)).Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	ffmpeg.NewVersionChecker().Check(ctx, ffmpegPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultFetcherFactory implements FetcherFactory with a 1s interval.
type defaultFetcherFactory struct{}

func (defaultFetcherFactory) NewFetcher() *fetch.Fetcher {
	return fetch.New()
}

// Compile-time interface verification.
var (
	_ FFmpegResolver = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader   = (*defaultConfigLoader)(nil)
	_ FetcherFactory = (*defaultFetcherFactory)(nil)
)
