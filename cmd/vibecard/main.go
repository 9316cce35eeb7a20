// Package main is the entry point for the vibecard CLI.
//
// Usage:
//
//	vibecard [flags] <command> [args]
//
// Commands:
//
//	config     - Configuration management (contexts, backends)
//	generate   - Turn a recorded voice clip into a vibe card
//	studio     - Serve the browser studio (live capture)
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/vibelab/vibecard/cmd/vibecard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
