// Package cli provides common utilities for the vibecard command-line
// tool.
//
// This package includes:
//   - Configuration management (named backend contexts)
//   - Output formatting (JSON, YAML, raw, jq filtering)
//   - Request file loading (YAML/JSON)
//   - Terminal rendering of finished vibe cards
//
// Configuration is stored in ~/.vibecard/<app>/ directory, supporting
// multiple contexts similar to kubectl.
//
// Example usage:
//
//	// Initialize config for your app
//	cfg, err := cli.LoadConfig("vibecard")
//
//	// Get current context
//	ctx, err := cfg.GetCurrentContext()
//
//	// Output result
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
