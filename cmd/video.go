package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fact-project/la-palma-overview/internal/app"
	"github.com/fact-project/la-palma-overview/internal/config"
)

// newVideoCmd creates and configures the 'video' subcommand, which runs the
// nightly capture loop until interrupted.
func newVideoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Runs the nightly timelapse capture loop",
		Long: `Captures overview images once per minute during the night, collects
them into per-night directories, and encodes each finished night into a
timelapse video. Runs until interrupted.`,

		RunE: runVideoCommand,
	}
	return cmd
}

func runVideoCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	zap.ReplaceGlobals(a.Logger)

	return app.RunVideo(ctx, cfg, a)
}
