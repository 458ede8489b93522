package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/audio"
	"github.com/alnah/go-tilawa/internal/config"
	"github.com/alnah/go-tilawa/internal/fetch"
	"github.com/alnah/go-tilawa/internal/ffmpeg"
	"github.com/alnah/go-tilawa/internal/quran"
	"github.com/alnah/go-tilawa/internal/reciter"
)

// loadConfig loads configuration, falling back to defaults with a warning.
func loadConfig(env *Env) config.Config {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
		return config.Defaults()
	}
	return cfg
}

// resolveFFmpeg locates FFmpeg. When required is false a missing binary is
// reported and an empty path returned, which leaves codecs and the duration
// oracle WAV-only.
func resolveFFmpeg(ctx context.Context, env *Env, cfg config.Config, required bool) (string, error) {
	path, err := env.FFmpegResolver.Resolve(ctx, cfg.FFmpegPath)
	if err != nil {
		if required || !errors.Is(err, ffmpeg.ErrNotFound) {
			return "", err
		}
		fmt.Fprintln(env.Stderr, "Warning: ffmpeg not found, only WAV audio can be read")
		env.Logger.Debug("ffmpeg unavailable", "error", err)
		return "", nil
	}
	env.FFmpegResolver.CheckVersion(ctx, path)
	return path, nil
}

// newOracle measures with FFmpeg when available, WAV headers otherwise.
func newOracle(ffmpegPath string) *audio.Oracle {
	if ffmpegPath == "" {
		return audio.NewOracle()
	}
	return audio.NewOracle(audio.WithMetadataReader(audio.NewFFmpegProbe(ffmpegPath)))
}

// newDirectory creates a reciter directory reading the configured manifest
// through client. Commands pass the same client to the coordinator so the
// manifest and audio requests share one dispatch interval.
func newDirectory(client *fetch.Fetcher, cfg config.Config) *reciter.Directory {
	return reciter.NewDirectory(client, cfg.ManifestURL)
}

// rangeFlags are the flags selecting a verse range.
type rangeFlags struct {
	reciter int
	surah   int
	from    int
	to      int
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.reciter, "reciter", "r", 0, "Reciter id (see: tilawa reciters)")
	cmd.Flags().IntVarP(&f.surah, "surah", "s", 0, "Surah number (1-114)")
	cmd.Flags().IntVar(&f.from, "from", 1, "First ayah")
	cmd.Flags().IntVar(&f.to, "to", 0, "Last ayah (default: same as --from)")
	_ = cmd.MarkFlagRequired("reciter")
	_ = cmd.MarkFlagRequired("surah")
}

func (f *rangeFlags) toRange() quran.Range {
	to := f.to
	if to == 0 {
		to = f.from
	}
	return quran.Range{ReciterID: f.reciter, Surah: f.surah, StartAyah: f.from, EndAyah: to}
}
