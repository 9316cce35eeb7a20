package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vibelab/vibecard/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple backend configurations,
similar to kubectl's context management.

Configuration is stored in ~/.vibecard/vibecard/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  vibecard config add-context gem --provider gemini --api-key YOUR_KEY
  vibecard config add-context oai --provider openai --api-key YOUR_KEY --voice nova`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		apiKey, err := cmd.Flags().GetString("api-key")
		if err != nil {
			return fmt.Errorf("failed to read 'api-key' flag: %w", err)
		}
		if apiKey == "" {
			return fmt.Errorf("--api-key is required")
		}

		provider, err := cmd.Flags().GetString("provider")
		if err != nil {
			return fmt.Errorf("failed to read 'provider' flag: %w", err)
		}
		switch provider {
		case "", "gemini", "openai":
		default:
			return fmt.Errorf("unknown provider %q (want gemini or openai)", provider)
		}

		baseURL, err := cmd.Flags().GetString("base-url")
		if err != nil {
			return fmt.Errorf("failed to read 'base-url' flag: %w", err)
		}
		analysisModel, err := cmd.Flags().GetString("analysis-model")
		if err != nil {
			return fmt.Errorf("failed to read 'analysis-model' flag: %w", err)
		}
		imageModels, err := cmd.Flags().GetString("image-models")
		if err != nil {
			return fmt.Errorf("failed to read 'image-models' flag: %w", err)
		}
		speechModel, err := cmd.Flags().GetString("speech-model")
		if err != nil {
			return fmt.Errorf("failed to read 'speech-model' flag: %w", err)
		}
		videoModel, err := cmd.Flags().GetString("video-model")
		if err != nil {
			return fmt.Errorf("failed to read 'video-model' flag: %w", err)
		}
		voice, err := cmd.Flags().GetString("voice")
		if err != nil {
			return fmt.Errorf("failed to read 'voice' flag: %w", err)
		}

		ctx := &cli.Context{
			Provider:      provider,
			APIKey:        apiKey,
			BaseURL:       baseURL,
			AnalysisModel: analysisModel,
			ImageModels:   splitModels(imageModels),
			SpeechModel:   speechModel,
			VideoModel:    videoModel,
			Voice:         voice,
		}

		cfg := getConfig()
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.UseContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}

		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tPROVIDER\tVOICE")

		for name, ctx := range cfg.Contexts {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			provider := ctx.Provider
			if provider == "" {
				provider = "gemini"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, provider, ctx.Voice)
		}

		w.Flush()
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		fmt.Printf("Config file: %s\n", cfg.Path())
		fmt.Printf("Current context: %s\n", cfg.CurrentContext)
		fmt.Printf("Contexts: %d\n", len(cfg.Contexts))

		if len(cfg.Contexts) > 0 {
			fmt.Println("\nContext details:")
			for name, ctx := range cfg.Contexts {
				fmt.Printf("\n  %s:\n", name)
				provider := ctx.Provider
				if provider == "" {
					provider = "gemini"
				}
				fmt.Printf("    Provider: %s\n", provider)
				fmt.Printf("    API Key: %s\n", cli.MaskAPIKey(ctx.APIKey))
				if ctx.BaseURL != "" {
					fmt.Printf("    Base URL: %s\n", ctx.BaseURL)
				}
				if ctx.AnalysisModel != "" {
					fmt.Printf("    Analysis Model: %s\n", ctx.AnalysisModel)
				}
				if len(ctx.ImageModels) > 0 {
					fmt.Printf("    Image Models: %s\n", strings.Join(ctx.ImageModels, ", "))
				}
				if ctx.SpeechModel != "" {
					fmt.Printf("    Speech Model: %s\n", ctx.SpeechModel)
				}
				if ctx.VideoModel != "" {
					fmt.Printf("    Video Model: %s\n", ctx.VideoModel)
				}
				if ctx.Voice != "" {
					fmt.Printf("    Voice: %s\n", ctx.Voice)
				}
			}
		}

		return nil
	},
}

// splitModels parses a comma-separated model list flag.
func splitModels(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	models := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			models = append(models, p)
		}
	}
	return models
}

func init() {
	// add-context flags
	configAddContextCmd.Flags().String("provider", "gemini", "Backend provider (gemini or openai)")
	configAddContextCmd.Flags().String("api-key", "", "API key (required)")
	configAddContextCmd.Flags().String("base-url", "", "API base URL")
	configAddContextCmd.Flags().String("analysis-model", "", "Voice analysis model")
	configAddContextCmd.Flags().String("image-models", "", "Cover art model tiers, comma separated, tried in order")
	configAddContextCmd.Flags().String("speech-model", "", "Narration model")
	configAddContextCmd.Flags().String("video-model", "", "Video model")
	configAddContextCmd.Flags().String("voice", "", "Narration voice")

	// Add subcommands
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
