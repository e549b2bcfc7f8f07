package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holmberd/go-pixstore/internal/workload"
)

func newReplayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <trace>",
		Short: "Replay a recorded workload through a store",
		Long: `The replay command reads a trace of "alloc <id> <size>" and "free <id>"
lines, replays it through a store and prints the store's usage report.

Example:
  pixstore replay workload.trace
  pixstore replay workload.trace --levels 10,5,5,5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args[0])
		},
	}
}

func runReplay(cmd *cobra.Command, opts *options, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	ops, err := workload.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse trace %s: %w", path, err)
	}
	return replay(cmd, opts, ops)
}
