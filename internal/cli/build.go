package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/audio"
	"github.com/alnah/go-tilawa/internal/config"
	"github.com/alnah/go-tilawa/internal/format"
	"github.com/alnah/go-tilawa/internal/mix"
	"github.com/alnah/go-tilawa/internal/pipeline"
	"github.com/alnah/go-tilawa/internal/quran"
	"github.com/alnah/go-tilawa/internal/verses"
)

// buildOptions holds the flags of the build command.
type buildOptions struct {
	rangeFlags
	output     string
	audioDir   string
	preset     string
	crossfade  time.Duration
	targetDBFS float64
	textData   string
	timings    string
	workers    int
	force      bool
}

// defaultOutputName names the merged file after the range, e.g.
// "tilawa-001-001-007.mp3".
func defaultOutputName(r quran.Range) string {
	return fmt.Sprintf("tilawa-%03d-%03d-%03d.mp3", r.Surah, r.StartAyah, r.EndAyah)
}

// BuildCmd creates the build command.
// The env parameter provides injectable dependencies for testing.
func BuildCmd(env *Env) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build one recitation track from a verse range",
		Long: `Download a verse range, normalize and trim every verse, and merge them with
a crossfade into a single track.

Verses that cannot be downloaded are skipped and reported. With --timings,
the start and duration of every verse in the merged track is written as JSON.

The output format follows the extension: .mp3 (requires ffmpeg with
libmp3lame) or .wav.

Trim presets: ` + strings.Join(mix.Presets(), ", "),
		Example: `  tilawa build -r 6 -s 1 --from 1 --to 7 -o fatiha.mp3
  tilawa build -r 6 -s 112 --to 4 --preset aggressive --timings ikhlas.json
  tilawa build -r 6 -s 2 --from 255 --crossfade 300ms -o kursi.wav`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, env, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file, .mp3 or .wav (default: tilawa-SSS-AAA-BBB.mp3)")
	cmd.Flags().StringVar(&opts.audioDir, "audio-dir", "", "Download cache (default: config audio-dir)")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Trim preset (default: config preset)")
	cmd.Flags().DurationVar(&opts.crossfade, "crossfade", mix.DefaultCrossfade, "Overlap between verses")
	cmd.Flags().Float64Var(&opts.targetDBFS, "target-dbfs", mix.DefaultTargetDBFS, "Loudness of every verse in dBFS")
	cmd.Flags().StringVar(&opts.textData, "text", "", "Uthmanic Hafs JSON for verse text (default: config text-data)")
	cmd.Flags().StringVar(&opts.timings, "timings", "", "Write verse timings as JSON to this file")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent downloads (default: number of CPUs)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite the output file")

	return cmd
}

// runBuild executes the build pipeline.
// Validation order: range shape -> preset -> output -> timings -> text -> ffmpeg
func runBuild(cmd *cobra.Command, env *Env, opts buildOptions) error {
	ctx := cmd.Context()
	cfg := loadConfig(env)
	r := opts.toRange()

	// === VALIDATION (fail-fast) ===

	if err := r.CheckShape(); err != nil {
		return err
	}

	preset := opts.preset
	if preset == "" {
		preset = cfg.Preset
	}
	trimmerOpts, err := presetOptions(preset)
	if err != nil {
		return err
	}

	output := config.ResolveOutputPath(config.ExpandPath(opts.output), cfg.OutputDir, defaultOutputName(r))
	if err := checkOutputFree(output, opts.force); err != nil {
		return err
	}
	if opts.timings != "" {
		if err := checkOutputFree(opts.timings, opts.force); err != nil {
			return err
		}
	}

	var text quran.TextLookup
	textPath := opts.textData
	if textPath == "" {
		textPath = cfg.TextData
	}
	if textPath != "" {
		idx, err := quran.LoadHafs(config.ExpandPath(textPath))
		if err != nil {
			return err
		}
		text = idx
	}

	needMP3 := strings.EqualFold(filepath.Ext(output), ".mp3")
	ffmpegPath, err := resolveFFmpeg(ctx, env, cfg, needMP3)
	if err != nil {
		return err
	}

	// === PIPELINE ===

	codec := audio.NewCodec(ffmpegPath)
	oracle := newOracle(ffmpegPath)

	coordOpts := []verses.Option{
		verses.WithBaseURL(cfg.BaseURL),
		verses.WithOracle(oracle),
		verses.WithWorkers(opts.workers),
		verses.WithLogger(env.Logger),
	}
	if text != nil {
		coordOpts = append(coordOpts, verses.WithTextLookup(text))
	}
	client := env.FetcherFactory.NewFetcher()
	coord := verses.NewCoordinator(newDirectory(client, cfg), client, coordOpts...)

	trimmer, err := mix.NewTrimmer(append(trimmerOpts, mix.WithTrimmerCodec(codec))...)
	if err != nil {
		return err
	}
	p := pipeline.New(coord,
		mix.NewNormalizer(mix.WithTargetDBFS(opts.targetDBFS), mix.WithNormalizerCodec(codec)),
		trimmer,
		mix.NewMerger(
			mix.WithCrossfade(opts.crossfade),
			mix.WithMergerCodec(codec),
			mix.WithOracle(oracle),
			mix.WithLogger(env.Logger),
		),
		pipeline.WithProgress(defaultProgressCallback(env.Stderr)),
		pipeline.WithLogger(env.Logger),
	)

	audioDir := opts.audioDir
	if audioDir == "" {
		audioDir = cfg.AudioDir
	}

	fmt.Fprintf(env.Stderr, "Building %s (preset %s)...\n", r, preset)
	res, err := p.Run(ctx, r, config.ExpandPath(audioDir), output)
	if err != nil {
		return err
	}

	for _, f := range res.Failures {
		fmt.Fprintf(env.Stderr, "  Skipped %s\n", f.Error())
	}
	if opts.timings != "" {
		data, err := json.MarshalIndent(newTimingsFile(res), "", "  ")
		if err != nil {
			return fmt.Errorf("encode timings: %w", err)
		}
		if opts.force {
			if err := removeIfExists(opts.timings); err != nil {
				return err
			}
		}
		if err := writeFileAtomic(opts.timings, append(data, '\n')); err != nil {
			return err
		}
	}

	size := "size unknown"
	if info, err := os.Stat(res.OutputPath); err == nil {
		size = format.Size(info.Size())
	}
	fmt.Fprintf(env.Stderr, "Wrote %s (%s, %s, %d verses, drift %dms)\n",
		res.OutputPath, format.Clock(res.FinalDuration), size, len(res.Verses), res.Merge.DriftMs())
	fmt.Fprintln(env.Stdout, res.OutputPath)
	return nil
}

// presetOptions returns the trimmer options of a named preset.
func presetOptions(name string) ([]mix.TrimmerOption, error) {
	p, err := mix.LookupPreset(name)
	if err != nil {
		return nil, err
	}
	return p.Options(), nil
}

// timingsFile is the JSON document written by --timings.
type timingsFile struct {
	Output          string          `json:"output"`
	DurationSeconds float64         `json:"duration_seconds"`
	Verses          []timingsVerse  `json:"verses"`
	Failures        []timingsFailed `json:"failures,omitempty"`
}

type timingsVerse struct {
	Surah           int     `json:"surah"`
	Ayah            int     `json:"ayah"`
	SuraName        string  `json:"sura_name,omitempty"`
	Text            string  `json:"text,omitempty"`
	StartSeconds    float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type timingsFailed struct {
	Surah int    `json:"surah"`
	Ayah  int    `json:"ayah"`
	Error string `json:"error"`
}

func newTimingsFile(res pipeline.Result) timingsFile {
	out := timingsFile{
		Output:          res.OutputPath,
		DurationSeconds: res.FinalDuration.Seconds(),
		Verses:          make([]timingsVerse, len(res.Verses)),
	}
	for i, v := range res.Verses {
		out.Verses[i] = timingsVerse{
			Surah:           v.Surah,
			Ayah:            v.Ayah,
			SuraName:        v.Text.SuraNameEn,
			Text:            v.Text.AyaText,
			StartSeconds:    v.Start.Seconds(),
			DurationSeconds: v.Duration.Seconds(),
		}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, timingsFailed{Surah: f.Surah, Ayah: f.Ayah, Error: f.Err.Error()})
	}
	return out
}
