package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/format"
)

// DurationCmd creates the duration command.
// The env parameter provides injectable dependencies for testing.
func DurationCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "duration <file>...",
		Short: "Print the length of audio files",
		Long: `Print the length of audio files.

FFmpeg is asked first; WAV files are also understood without it.`,
		Example: `  tilawa duration fatiha.mp3
  tilawa duration ~/.cache/go-tilawa/audio/Abdullah_Basfar_192kbps/*.mp3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuration(cmd, env, args)
		},
	}
}

func runDuration(cmd *cobra.Command, env *Env, paths []string) error {
	ctx := cmd.Context()
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, p)
			}
			return fmt.Errorf("cannot access input file: %w", err)
		}
	}

	ffmpegPath, err := resolveFFmpeg(ctx, env, loadConfig(env), false)
	if err != nil {
		return err
	}
	oracle := newOracle(ffmpegPath)

	for _, p := range paths {
		m, err := oracle.Measure(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s\t%s\t%s\t%s\n", m.Formatted(), format.Seconds(m.Duration), m.Source, p)
	}
	return nil
}
