package main

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	pixstore "github.com/holmberd/go-pixstore"
)

// options holds the flags shared by every subcommand.
type options struct {
	configPath string
	minSize    string
	smallest   string
	levels     []int
	logPath    string
	jsonOut    bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := pixstore.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "pixstore",
		Short: "Size a pix store for an image workload",
		Long: `pixstore prints pix store layouts and replays image buffer workloads
through a store, reporting how often each level was used, how many of its
chunks were in use at once and how often it ran out of chunks.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML file with the store configuration")
	flags.StringVar(&opts.minSize, "min", humanSize(defaults.MinDynamicSize), "Smallest request served from the store")
	flags.StringVar(&opts.smallest, "smallest", humanSize(defaults.SmallestChunkSize), "Chunk size of level 0")
	flags.IntSliceVar(&opts.levels, "levels", defaults.ChunkCounts, "Number of chunks at each level")
	flags.StringVar(&opts.logPath, "log", "", "File to append fallback allocations and the final report to")
	flags.BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newLayoutCmd(opts),
		newSimulateCmd(opts),
		newReplayCmd(opts),
	)
	return cmd
}

// logger returns a text logger writing to w.
func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
