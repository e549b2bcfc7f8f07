package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	pixstore "github.com/holmberd/go-pixstore"
)

func newLayoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Show the levels of a store configuration",
		Long: `The layout command shows the chunk size and count of each level, the
total arena size and the range of request sizes the store serves.

Example:
  pixstore layout
  pixstore layout --smallest 256KiB --levels 16,8,4
  pixstore layout --config store.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd, opts)
		},
	}
}

func runLayout(cmd *cobra.Command, opts *options) error {
	c, err := opts.storeConfig(cmd)
	if err != nil {
		return err
	}
	c.LogPath = "" // Nothing is allocated.
	s, err := pixstore.New(c)
	if err != nil {
		return err
	}
	r := s.Report()
	if err := s.Close(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		return printJSON(out, r)
	}
	fmt.Fprintf(out, "Fingerprint: %016x\n", r.Fingerprint)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tCHUNK SIZE\tCHUNKS\tBYTES")
	chunks := 0
	for _, l := range r.Levels {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", l.Level, humanSize(l.ChunkSize), l.Chunks, humanSize(l.ChunkSize*l.Chunks))
		chunks += l.Chunks
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	largest := r.Levels[len(r.Levels)-1].ChunkSize
	fmt.Fprintf(out, "Total: %d chunks, %s\n", chunks, humanSize(r.TotalBytes))
	fmt.Fprintf(out, "Pooled requests: %s to %s\n", humanSize(r.MinDynamicSize), humanSize(largest))
	return nil
}
