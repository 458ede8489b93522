package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/reciter"
)

// RecitersCmd creates the reciters command.
// The env parameter provides injectable dependencies for testing.
func RecitersCmd(env *Env) *cobra.Command {
	var (
		search  string
		bitrate string
	)

	cmd := &cobra.Command{
		Use:   "reciters",
		Short: "List available reciters",
		Long: `List the reciters published in the recitations manifest.

The manifest is downloaded once per invocation from the configured
manifest-url.`,
		Example: `  tilawa reciters
  tilawa reciters --search husary
  tilawa reciters --bitrate 192kbps`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReciters(cmd, env, search, bitrate)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Only reciters whose name contains this text")
	cmd.Flags().StringVar(&bitrate, "bitrate", "", "Only reciters with this bitrate, e.g. 128kbps")

	return cmd
}

func runReciters(cmd *cobra.Command, env *Env, search, bitrate string) error {
	ctx := cmd.Context()
	dir := newDirectory(env.FetcherFactory.NewFetcher(), loadConfig(env))

	var (
		list []reciter.Config
		err  error
	)
	switch {
	case search != "":
		list, err = dir.Search(ctx, search)
	case bitrate != "":
		list, err = dir.ByBitrate(ctx, bitrate)
	default:
		list, err = dir.List(ctx)
	}
	if err != nil {
		return err
	}
	if search != "" && bitrate != "" {
		list = filterBitrate(list, bitrate)
	}

	if len(list) == 0 {
		fmt.Fprintln(env.Stderr, "No reciters found.")
		return nil
	}

	w := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBITRATE\tFOLDER")
	for _, r := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Bitrate, r.Subfolder)
	}
	return w.Flush()
}

func filterBitrate(list []reciter.Config, bitrate string) []reciter.Config {
	var out []reciter.Config
	for _, r := range list {
		if strings.EqualFold(r.Bitrate, bitrate) {
			out = append(out, r)
		}
	}
	return out
}
