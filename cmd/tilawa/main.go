package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/apierr"
	"github.com/alnah/go-tilawa/internal/audio"
	"github.com/alnah/go-tilawa/internal/cli"
	"github.com/alnah/go-tilawa/internal/ffmpeg"
	"github.com/alnah/go-tilawa/internal/interrupt"
	"github.com/alnah/go-tilawa/internal/mix"
	"github.com/alnah/go-tilawa/internal/pipeline"
	"github.com/alnah/go-tilawa/internal/quran"
	"github.com/alnah/go-tilawa/internal/reciter"
	"github.com/alnah/go-tilawa/internal/verses"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitNetwork    = 5
	ExitAudio      = 6
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// The first Ctrl+C cancels ctx; the session directory is removed on unwind.
	handler, ctx := interrupt.NewHandler(context.Background())

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()
	rootCmd := newRootCmd(env)

	err := rootCmd.ExecuteContext(ctx)
	handler.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := exitCode(err)
		// A killed ffmpeg surfaces as an encode error rather than context.Canceled.
		if handler.WasInterrupted() {
			code = ExitInterrupt
		}
		os.Exit(code)
	}
}

// newRootCmd assembles the command tree around env.
func newRootCmd(env *cli.Env) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     "tilawa",
		Short:   "Build crossfaded Quran recitation tracks with verse timings",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env.Logger = cli.NewLogger(env.Stderr, verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details to stderr")

	// Subcommands.
	rootCmd.AddCommand(cli.RecitersCmd(env))
	rootCmd.AddCommand(cli.FetchCmd(env))
	rootCmd.AddCommand(cli.BuildCmd(env))
	rootCmd.AddCommand(cli.DurationCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, quran.ErrInvalidVerseRange) || errors.Is(err, reciter.ErrUnknownReciter) ||
		errors.Is(err, mix.ErrInvalidProcessingParameters) || errors.Is(err, mix.ErrUnknownPreset) ||
		errors.Is(err, quran.ErrInvalidTextData) || errors.Is(err, audio.ErrUnsupportedOutput) ||
		errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrOutputExists) ||
		errors.Is(err, cli.ErrInvalidConfigValue) {
		return ExitValidation
	}

	// Network errors (ExitNetwork = 5).
	if errors.Is(err, apierr.ErrNetwork) || errors.Is(err, apierr.ErrClientError) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrTransport) ||
		errors.Is(err, reciter.ErrInvalidManifest) ||
		errors.Is(err, pipeline.ErrNoVerses) {
		return ExitNetwork
	}

	// Audio errors (ExitAudio = 6).
	if errors.Is(err, audio.ErrUnreadableAudio) || errors.Is(err, audio.ErrSilentAudio) ||
		errors.Is(err, audio.ErrEncodeFailed) || errors.Is(err, audio.ErrFormatMismatch) ||
		errors.Is(err, audio.ErrCrossfadeTooLong) || errors.Is(err, mix.ErrEmptyInput) ||
		errors.Is(err, verses.ErrMissingText) {
		return ExitAudio
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
