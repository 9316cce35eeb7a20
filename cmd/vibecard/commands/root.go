package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibelab/vibecard/pkg/cli"
	"github.com/vibelab/vibecard/pkg/gemini"
	"github.com/vibelab/vibecard/pkg/openaigen"
	"github.com/vibelab/vibecard/pkg/vibe"
)

const appName = "vibecard"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	jqFilter    string
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vibecard",
	Short: "Turn a voice clip into a generated vibe card",
	Long: `vibecard - record a short voice clip and let a generative backend
compose a personal "vibe card" from it: a personality read, cover art,
a spoken portrait and, when the backend can, a short ambient video.

Configuration is stored in ~/.vibecard/vibecard/config.yaml and supports
multiple contexts, similar to kubectl's context management.

Examples:
  # Set up a context for each backend
  vibecard config add-context gem --provider gemini --api-key YOUR_KEY
  vibecard config add-context oai --provider openai --api-key YOUR_KEY
  vibecard config use-context gem

  # One-shot card from a recorded clip
  vibecard generate voice.webm --save ./card

  # Live capture in the browser
  vibecard studio --addr 127.0.0.1:8787

  # Pipe the analysis into other tooling
  vibecard generate voice.webm --json --filter '.personality.traits'`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.vibecard/vibecard/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().StringVar(&jqFilter, "filter", "", "jq expression applied to the output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(studioCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'vibecard config use-context'")
		}
		return nil, err
	}

	return ctx, nil
}

// buildProvider constructs the generative backend for a context.
func buildProvider(ctx context.Context, cc *cli.Context) (vibe.Provider, error) {
	switch cc.Provider {
	case "", "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:        cc.APIKey,
			AnalysisModel: cc.AnalysisModel,
			ImageModels:   cc.ImageModels,
			SpeechModel:   cc.SpeechModel,
			VideoModel:    cc.VideoModel,
			Voice:         cc.Voice,
			Logger:        slog.Default(),
		})
	case "openai":
		return openaigen.New(openaigen.Config{
			APIKey:        cc.APIKey,
			BaseURL:       cc.BaseURL,
			AnalysisModel: cc.AnalysisModel,
			ImageModels:   cc.ImageModels,
			Logger:        slog.Default(),
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini or openai)", cc.Provider)
	}
}

// outputOptions assembles the shared output options from global flags.
func outputOptions() cli.OutputOptions {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.OutputOptions{
		Format: format,
		File:   outputFile,
		Filter: jqFilter,
	}
}
