// Package cmd defines the CLI commands for the pulseingest executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/napolipulse/pulse-ingest/internal/config"
	"github.com/napolipulse/pulse-ingest/internal/server"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pulseingest",
		Short: "Labor-market and livability ingestion service for one metro area",
		Long: `pulseingest collects unemployment statistics, job listings, points of
interest and livability metrics for a single metropolitan area, reconciles
overlapping sources, and serves the result over a REST API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML; env vars with prefix PULSE_ override)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSeedCmd())
	return cmd
}

func buildApp(ctx context.Context) (*server.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return server.Build(ctx, cfg)
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
