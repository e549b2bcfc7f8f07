// Command pixstore sizes a pix store for a workload: it prints store layouts,
// replays synthetic or recorded allocation traces through a store and reports
// how each level was used.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
