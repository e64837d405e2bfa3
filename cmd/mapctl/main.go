package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/app"
	"github.com/navojoa/electoral-map/internal/config"
	"github.com/navojoa/electoral-map/internal/logging"
)

var (
	verbose bool
	timeout time.Duration
)

// rootCmd is the admin entry point
var rootCmd = &cobra.Command{
	Use:   "mapctl",
	Short: "Administer the electoral map data",
	Long: `mapctl works directly against the configured database.

Available subcommands:
  import          - Load affiliates from a CSV export
  assign-sections - Fill missing section codes from the section polygons
  stats           - Print per-section statistics`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(statsCmd)
}

// openApp loads configuration and builds the services for a command
func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return nil, err
	}
	return a, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
