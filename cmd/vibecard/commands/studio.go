package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vibelab/vibecard/pkg/studio"
)

var studioAddr string

var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "Serve the browser studio for live capture",
	Long: `Serve the browser studio: a local page that records your voice with
the microphone and streams it to the pipeline, showing the vibe card as
it composes.

Example:
  vibecard studio
  vibecard studio --addr 127.0.0.1:9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := getContext()
		if err != nil {
			return err
		}
		provider, err := buildProvider(cmd.Context(), cctx)
		if err != nil {
			return err
		}

		srv := &studio.Server{
			Addr:     studioAddr,
			Provider: provider,
			Logger:   slog.Default(),
		}
		fmt.Printf("Studio running at http://%s\n", studioAddr)
		return srv.ListenAndServe()
	},
}

func init() {
	studioCmd.Flags().StringVar(&studioAddr, "addr", "127.0.0.1:8787", "listen address")
}
