package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/config"
	"github.com/alnah/go-tilawa/internal/format"
	"github.com/alnah/go-tilawa/internal/pipeline"
	"github.com/alnah/go-tilawa/internal/verses"
)

// FetchCmd creates the fetch command.
// The env parameter provides injectable dependencies for testing.
func FetchCmd(env *Env) *cobra.Command {
	var (
		rf       rangeFlags
		audioDir string
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the audio of a verse range",
		Long: `Download the audio of a verse range into the audio cache.

Files already in the cache are not downloaded again. A verse that cannot be
downloaded is reported and skipped; the others are kept.`,
		Example: `  tilawa fetch --reciter 6 --surah 1 --from 1 --to 7
  tilawa fetch -r 6 -s 2 --from 255 --audio-dir ./audio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, env, rf, audioDir, workers)
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "Download cache (default: config audio-dir)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent downloads (default: number of CPUs)")

	return cmd
}

func runFetch(cmd *cobra.Command, env *Env, rf rangeFlags, audioDir string, workers int) error {
	ctx := cmd.Context()
	cfg := loadConfig(env)
	if audioDir == "" {
		audioDir = cfg.AudioDir
	}
	audioDir = config.ExpandPath(audioDir)

	ffmpegPath, err := resolveFFmpeg(ctx, env, cfg, false)
	if err != nil {
		return err
	}

	client := env.FetcherFactory.NewFetcher()
	coord := verses.NewCoordinator(newDirectory(client, cfg), client,
		verses.WithBaseURL(cfg.BaseURL),
		verses.WithOracle(newOracle(ffmpegPath)),
		verses.WithWorkers(workers),
		verses.WithLogger(env.Logger),
	)

	r := rf.toRange()
	fmt.Fprintf(env.Stderr, "Fetching %s into %s...\n", r, audioDir)
	batch, err := coord.FetchRange(ctx, r, audioDir)
	if err != nil {
		return err
	}

	for _, a := range batch.Assets {
		state := "downloaded"
		if a.Cached {
			state = "cached"
		}
		fmt.Fprintf(env.Stdout, "%d:%d\t%s\t%s\t%s\n", a.Surah, a.Ayah, format.Clock(a.RawDuration), state, a.Path)
	}
	for _, f := range batch.Failures {
		fmt.Fprintf(env.Stderr, "  Failed %s\n", f.Error())
	}
	if len(batch.Assets) == 0 {
		return fmt.Errorf("%w: %s", pipeline.ErrNoVerses, r)
	}
	fmt.Fprintf(env.Stderr, "%d of %d verses available\n", len(batch.Assets), r.Len())
	return nil
}
