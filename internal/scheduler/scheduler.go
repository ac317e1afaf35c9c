// Package scheduler runs the ingestion pipelines on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Config holds the cron expressions, standard 5-field syntax.
type Config struct {
	Stats    string
	POIs     string
	Listings string
}

// Pipelines is the subset of the reconciliation engine the scheduler drives.
type Pipelines interface {
	ReconcileUnemployment(ctx context.Context) (pulse.RunSummary, error)
	ImportPOIs(ctx context.Context) (pulse.RunSummary, error)
	ImportListings(ctx context.Context) (pulse.RunSummary, error)
}

// Scheduler triggers pipeline runs. A run that fails is logged and the
// schedule keeps ticking; overlapping runs of the same pipeline are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// jobTimeout bounds one scheduled pipeline run. Scraping with per-keyword
// pauses is the slowest pipeline by far.
const jobTimeout = 30 * time.Minute

// New creates a Scheduler with the three pipelines registered. An empty cron
// expression disables that pipeline's schedule.
func New(cfg Config, pipelines Pipelines, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	entries := []struct {
		name string
		spec string
		run  func(ctx context.Context) (pulse.RunSummary, error)
	}{
		{"unemployment", cfg.Stats, pipelines.ReconcileUnemployment},
		{"pois", cfg.POIs, pipelines.ImportPOIs},
		{"listings", cfg.Listings, pipelines.ImportListings},
	}
	for _, entry := range entries {
		if entry.spec == "" {
			continue
		}
		name, run := entry.name, entry.run
		if _, err := c.AddFunc(entry.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			logger.Info("scheduled run starting", zap.String("pipeline", name))
			if _, err := run(ctx); err != nil {
				logger.Warn("scheduled run failed", zap.String("pipeline", name), zap.Error(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("register %s schedule %q: %w", entry.name, entry.spec, err)
		}
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins dispatching scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
