package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	pixstore "github.com/holmberd/go-pixstore"
)

// fileConfig is the YAML form of a store configuration.
// Sizes accept human units such as "512KiB" or "1MiB".
type fileConfig struct {
	MinDynamicSize    string `yaml:"min_dynamic_size"`
	SmallestChunkSize string `yaml:"smallest_chunk_size"`
	ChunkCounts       []int  `yaml:"chunk_counts"`
	LogPath           string `yaml:"log_path"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return fc, nil
}

// storeConfig builds the store configuration from defaults, then the config
// file, then any flags set explicitly on the command line.
func (o *options) storeConfig(cmd *cobra.Command) (pixstore.Config, error) {
	minSize, smallest := o.minSize, o.smallest
	c := pixstore.Config{
		ChunkCounts: o.levels,
		LogPath:     o.logPath,
		Logger:      o.logger(cmd.ErrOrStderr()),
	}

	if o.configPath != "" {
		fc, err := loadFileConfig(o.configPath)
		if err != nil {
			return c, err
		}
		flags := cmd.Flags()
		if fc.MinDynamicSize != "" && !flags.Changed("min") {
			minSize = fc.MinDynamicSize
		}
		if fc.SmallestChunkSize != "" && !flags.Changed("smallest") {
			smallest = fc.SmallestChunkSize
		}
		if len(fc.ChunkCounts) > 0 && !flags.Changed("levels") {
			c.ChunkCounts = fc.ChunkCounts
		}
		if fc.LogPath != "" && !flags.Changed("log") {
			c.LogPath = fc.LogPath
		}
	}

	var errs []error
	var err error
	if c.MinDynamicSize, err = parseSize(minSize); err != nil {
		errs = append(errs, fmt.Errorf("min: %w", err))
	}
	if c.SmallestChunkSize, err = parseSize(smallest); err != nil {
		errs = append(errs, fmt.Errorf("smallest: %w", err))
	}
	return c, errors.Join(errs...)
}

func parseSize(s string) (int, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	return int(n), nil
}

func humanSize(n int) string {
	return units.BytesSize(float64(n))
}
