package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibelab/vibecard/pkg/capture"
	"github.com/vibelab/vibecard/pkg/cli"
	"github.com/vibelab/vibecard/pkg/vibe"
)

var (
	generateWaitVideo    bool
	generateVideoTimeout time.Duration
	generateTimeout      time.Duration
	generateSaveDir      string
	generateDirection    string
)

var generateCmd = &cobra.Command{
	Use:   "generate <clip>",
	Short: "Turn a recorded voice clip into a vibe card",
	Long: `Run the full pipeline over a pre-recorded voice clip: analysis,
cover art, narration and (when the backend supports it) a background
video, then render the finished card.

Example:
  vibecard generate voice.webm --save ./card
  vibecard generate voice.wav --wait-video --json --filter '.assets.videoURI'`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateWaitVideo, "wait-video", false, "wait for the background video before returning")
	generateCmd.Flags().DurationVar(&generateVideoTimeout, "video-timeout", 6*time.Minute, "how long to wait for the video with --wait-video")
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 5*time.Minute, "how long to wait for the card")
	generateCmd.Flags().StringVar(&generateSaveDir, "save", "", "directory to save the generated assets into")
	generateCmd.Flags().StringVar(&generateDirection, "direction", "", "creative direction file (YAML/JSON), skips voice analysis")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cctx, err := getContext()
	if err != nil {
		return err
	}
	provider, err := buildProvider(cmd.Context(), cctx)
	if err != nil {
		return err
	}

	if generateDirection != "" {
		var dir vibe.CreativeDirection
		if err := cli.LoadRequest(generateDirection, &dir); err != nil {
			return err
		}
		if dir.Speech.Text == "" {
			dir.Speech.Text = dir.Story
		}
		provider = &directionProvider{Provider: provider, direction: &dir}
	}

	rec, err := capture.FromFile(args[0])
	if err != nil {
		return err
	}

	snaps := make(chan vibe.Snapshot, 32)
	orch := vibe.New(provider,
		&terminalAuthorizer{in: os.Stdin, out: os.Stderr, hasCredential: cctx.APIKey != ""},
		rec,
		vibe.WithLogger(slog.Default()),
		vibe.WithNotify(func(s vibe.Snapshot) { snaps <- s }),
	)

	started := time.Now()
	ctx := cmd.Context()
	if err := orch.Start(ctx); err != nil {
		return err
	}
	if err := orch.Stop(ctx); err != nil {
		return err
	}

	final, err := waitForCard(ctx, snaps)
	if err != nil {
		return err
	}
	if final.Phase == vibe.PhaseFailed {
		return fmt.Errorf("card generation failed: %s", final.ErrorMessage)
	}

	if generateWaitVideo {
		final = waitForVideo(ctx, snaps, final)
	}

	cli.PrintVerbose(verbose, "card composed in %s", cli.FormatDuration(int(time.Since(started).Milliseconds())))

	if generateSaveDir != "" {
		saved, err := saveAssets(generateSaveDir, final.Assets)
		if err != nil {
			return err
		}
		for _, path := range saved {
			cli.PrintSuccess("Saved %s", path)
		}
	}

	if outputJSON || jqFilter != "" || outputFile != "" {
		return cli.Output(final, outputOptions())
	}

	fmt.Println(cli.RenderCard(final, 60))
	return nil
}

// waitForCard drains snapshots until the session settles in Ready or
// Failed.
func waitForCard(ctx context.Context, snaps <-chan vibe.Snapshot) (vibe.Snapshot, error) {
	deadline := time.NewTimer(generateTimeout)
	defer deadline.Stop()
	for {
		select {
		case s := <-snaps:
			if verbose && s.StatusMessage != "" {
				fmt.Fprintf(os.Stderr, "… %s\n", s.StatusMessage)
			}
			if s.Phase == vibe.PhaseReady || s.Phase == vibe.PhaseFailed {
				return s, nil
			}
		case <-deadline.C:
			return vibe.Snapshot{}, fmt.Errorf("timed out after %s waiting for the card", generateTimeout)
		case <-ctx.Done():
			return vibe.Snapshot{}, ctx.Err()
		}
	}
}

// waitForVideo waits for the background video patch. The card is already
// complete, so a timeout or miss just returns it without the video.
func waitForVideo(ctx context.Context, snaps <-chan vibe.Snapshot, final vibe.Snapshot) vibe.Snapshot {
	if final.Assets == nil || final.Assets.VideoURI != "" {
		return final
	}
	deadline := time.NewTimer(generateVideoTimeout)
	defer deadline.Stop()
	for {
		select {
		case s := <-snaps:
			if s.Assets != nil && s.Assets.VideoURI != "" {
				return s
			}
		case <-deadline.C:
			cli.PrintWarning("No video within %s, keeping the card without it", generateVideoTimeout)
			return final
		case <-ctx.Done():
			return final
		}
	}
}

// directionProvider substitutes a prepared creative direction for the
// analysis call, leaving all generation calls on the real backend.
type directionProvider struct {
	vibe.Provider
	direction *vibe.CreativeDirection
}

func (p *directionProvider) Analyze(context.Context, vibe.Blob) (*vibe.CreativeDirection, error) {
	return p.direction, nil
}
