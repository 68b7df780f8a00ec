// Command metriclog demonstrates the periodic metrics file writer and reads
// back the files it produces.
package main

import (
	"fmt"
	"os"
)

// These variables are populated via the Go linker.
var (
	version string
	commit  string
)

func init() {
	if version == "" {
		version = "unknown"
	}
	if commit == "" {
		commit = "unknown"
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
