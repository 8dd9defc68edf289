// Package cmd defines and implements the CLI commands for the
// la_palma_overview executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fact-project/la-palma-overview/internal/app"
	"github.com/fact-project/la-palma-overview/internal/config"
	"github.com/fact-project/la-palma-overview/internal/logging"
	"github.com/fact-project/la-palma-overview/internal/metrics"
)

var (
	cfgFile    string
	outputPath string
)

// newRootCmd creates and configures the root command. Running it without a
// subcommand captures a single overview image.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "la_palma_overview",
		Short: "Creates an overview image of the observatory site on La Palma.",
		Long: `la_palma_overview fetches the site cameras and weather plots of the
Roque de los Muchachos observatory, stacks them into one grid image, and
stamps the current UTC time and the telescope status onto it.

Without a subcommand it captures a single overview image and exits.`,

		RunE: runOverviewCommand,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults cover the standard camera list)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "path for the overview image (default la_palma_<timestamp>.jpg)")

	cmd.AddCommand(newVideoCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runOverviewCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	builder := app.NewBuilder(cfg, logger)
	path, err := builder.SaveImage(cmd.Context(), outputPath)
	if err != nil {
		return fmt.Errorf("save overview: %w", err)
	}

	logger.Info("overview written", zap.String("path", path))
	return nil
}
