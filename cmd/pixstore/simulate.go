package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pixstore "github.com/holmberd/go-pixstore"
	"github.com/holmberd/go-pixstore/internal/workload"
)

type simulateOptions struct {
	seed     int64
	ops      int
	maxLive  int
	minSize  string
	maxSize  string
	traceOut string
}

func newSimulateCmd(opts *options) *cobra.Command {
	sim := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a random image workload through a store",
		Long: `The simulate command generates a deterministic random workload of image
buffer allocations and frees, replays it through a store and prints the
store's usage report.

Example:
  pixstore simulate --ops 10000 --max-live 12
  pixstore simulate --min-size 1MiB --max-size 8MiB --levels 4,4,4,4
  pixstore simulate --seed 7 --trace-out workload.trace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts, sim)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&sim.seed, "seed", 1, "Random seed")
	f.IntVar(&sim.ops, "ops", 1000, "Number of allocations")
	f.IntVar(&sim.maxLive, "max-live", 16, "Maximum number of buffers alive at once")
	f.StringVar(&sim.minSize, "min-size", "256KiB", "Smallest buffer size")
	f.StringVar(&sim.maxSize, "max-size", "12MiB", "Largest buffer size")
	f.StringVar(&sim.traceOut, "trace-out", "", "Write the generated workload to this file")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts *options, sim *simulateOptions) error {
	gc := workload.GenerateConfig{Seed: sim.seed, Ops: sim.ops, MaxLive: sim.maxLive}
	var err error
	if gc.MinSize, err = parseSize(sim.minSize); err != nil {
		return fmt.Errorf("min-size: %w", err)
	}
	if gc.MaxSize, err = parseSize(sim.maxSize); err != nil {
		return fmt.Errorf("max-size: %w", err)
	}
	ops, err := workload.Generate(gc)
	if err != nil {
		return err
	}
	if sim.traceOut != "" {
		if err := writeTrace(sim.traceOut, ops); err != nil {
			return err
		}
	}
	return replay(cmd, opts, ops)
}

func writeTrace(path string, ops []workload.Op) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}
	if err := workload.Write(f, ops); err != nil {
		f.Close()
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return f.Close()
}

// simulation is the JSON output of simulate and replay.
type simulation struct {
	Result workload.Result `json:"result"`
	Report pixstore.Report `json:"report"`
}

// replay runs ops through a fresh store and prints the outcome.
func replay(cmd *cobra.Command, opts *options, ops []workload.Op) error {
	c, err := opts.storeConfig(cmd)
	if err != nil {
		return err
	}
	s, err := pixstore.New(c)
	if err != nil {
		return err
	}
	res, err := workload.Replay(ops, s)
	if err != nil {
		return errors.Join(err, s.Close())
	}
	if err := s.Close(); err != nil {
		return err
	}
	r := s.Report()

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		return printJSON(out, simulation{Result: res, Report: r})
	}
	fmt.Fprintf(out, "Replayed %d allocations of %s in total, at most %d alive at once\n",
		res.Allocs, humanSize(int(res.Bytes)), res.PeakLive)
	if res.Leaked > 0 {
		fmt.Fprintf(out, "Released %d buffers the workload never freed\n", res.Leaked)
	}
	_, err = r.WriteTo(out)
	return err
}
