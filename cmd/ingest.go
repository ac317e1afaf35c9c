package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
	"github.com/napolipulse/pulse-ingest/internal/server"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "ingest {unemployment|listings|pois|livability|all}",
		Short:     "Run one ingestion pipeline and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"unemployment", "listings", "pois", "livability", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return runPipeline(cmd.Context(), app, args[0])
		},
	}
}

func runPipeline(ctx context.Context, app *server.App, name string) error {
	pipelines := []string{name}
	if name == "all" {
		pipelines = []string{"unemployment", "pois", "listings", "livability"}
	}
	for _, pipeline := range pipelines {
		summary, err := runOne(ctx, app, pipeline)
		if err != nil {
			app.Logger().Error("pipeline failed", zap.String("pipeline", pipeline), zap.Error(err))
			if name != "all" {
				return err
			}
			continue
		}
		app.Logger().Info("pipeline finished",
			zap.String("pipeline", summary.Pipeline),
			zap.String("source", summary.Source),
			zap.Int("imported", summary.Imported))
	}
	return nil
}

func runOne(ctx context.Context, app *server.App, pipeline string) (pulse.RunSummary, error) {
	engine := app.Engine()
	switch pipeline {
	case "unemployment":
		return engine.ReconcileUnemployment(ctx)
	case "listings":
		return engine.ImportListings(ctx)
	case "pois":
		return engine.ImportPOIs(ctx)
	case "livability":
		from, err := app.SyntheticFrom()
		if err != nil {
			return pulse.RunSummary{}, err
		}
		return engine.SeedLivability(ctx, from)
	default:
		return pulse.RunSummary{}, fmt.Errorf("unknown pipeline %q", pipeline)
	}
}
