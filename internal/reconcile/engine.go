// Package reconcile orchestrates the ingestion pipelines: it runs the
// unemployment fallback chain, the listing and POI imports, and the
// livability seeding, and emits a run summary for each.
package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/metrics"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
	"github.com/napolipulse/pulse-ingest/internal/synthetic"
)

// Importer runs one bulk import and reports how many records landed.
type Importer interface {
	Import(ctx context.Context) (int, error)
}

// Runner runs one scraping pass and reports how many candidates it tried to
// store and how many landed.
type Runner interface {
	Run(ctx context.Context) (attempted, imported int, err error)
}

// Config controls the engine.
type Config struct {
	Territory string
}

// Deps carries the engine's collaborators. Publisher, POIs, Listings and
// LivabilityGen are optional; the corresponding pipelines report an error
// when invoked unconfigured.
type Deps struct {
	Sources       []pulse.SeriesSource
	Unemployment  pulse.UnemploymentWriter
	Livability    pulse.LivabilityWriter
	POIs          Importer
	Listings      Runner
	LivabilityGen *synthetic.Generator
	Publisher     pulse.Publisher
	IDs           pulse.IDGenerator
	Clock         pulse.Clock
	Logger        *zap.Logger
}

// Engine coordinates pipeline runs. Each run is summarized, counted and,
// when a publisher is configured, announced on the event bus.
type Engine struct {
	cfg  Config
	deps Deps
}

// New creates an Engine.
func New(cfg Config, deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, deps: deps}
}

// ErrNoSourceData is reported when every source in the fallback chain failed
// or returned an empty series.
var ErrNoSourceData = errors.New("no unemployment source produced data")

// ReconcileUnemployment walks the source chain in priority order and persists
// the first non-empty series it finds, exclusively. Later sources are not
// consulted once one has produced data.
func (e *Engine) ReconcileUnemployment(ctx context.Context) (pulse.RunSummary, error) {
	started := e.deps.Clock.Now()

	for _, source := range e.deps.Sources {
		series, err := source.FetchSeries(ctx, e.cfg.Territory)
		if err != nil {
			if ctx.Err() != nil {
				return pulse.RunSummary{}, ctx.Err()
			}
			metrics.FetchFailure(source.Name())
			e.deps.Logger.Warn("unemployment source failed",
				zap.String("source", source.Name()), zap.Error(err))
			continue
		}
		if len(series) == 0 {
			e.deps.Logger.Info("unemployment source empty", zap.String("source", source.Name()))
			continue
		}

		imported := 0
		for _, obs := range series {
			if err := e.deps.Unemployment.UpsertUnemployment(ctx, obs); err != nil {
				if ctx.Err() != nil {
					return pulse.RunSummary{}, ctx.Err()
				}
				metrics.UpsertFailure("unemployment")
				e.deps.Logger.Warn("unemployment upsert failed",
					zap.Time("date", obs.Date), zap.Error(err))
				continue
			}
			imported++
		}
		metrics.RecordsImported("unemployment", source.Name(), imported)

		summary := e.summarize(ctx, "unemployment", source.Name(), started, len(series), imported, nil)
		return summary, nil
	}

	summary := e.summarize(ctx, "unemployment", "", started, 0, 0, ErrNoSourceData)
	return summary, ErrNoSourceData
}

// ImportListings runs the listing scraper.
func (e *Engine) ImportListings(ctx context.Context) (pulse.RunSummary, error) {
	started := e.deps.Clock.Now()
	if e.deps.Listings == nil {
		err := errors.New("listing scraper not configured")
		return e.summarize(ctx, "listings", "", started, 0, 0, err), err
	}

	attempted, imported, err := e.deps.Listings.Run(ctx)
	if err != nil && ctx.Err() != nil {
		return pulse.RunSummary{}, ctx.Err()
	}
	metrics.RecordsImported("listings", "scraper", imported)
	return e.summarize(ctx, "listings", "scraper", started, attempted, imported, err), err
}

// ImportPOIs runs the point-of-interest import.
func (e *Engine) ImportPOIs(ctx context.Context) (pulse.RunSummary, error) {
	started := e.deps.Clock.Now()
	if e.deps.POIs == nil {
		err := errors.New("poi importer not configured")
		return e.summarize(ctx, "pois", "", started, 0, 0, err), err
	}

	imported, err := e.deps.POIs.Import(ctx)
	if err != nil && ctx.Err() != nil {
		return pulse.RunSummary{}, ctx.Err()
	}
	metrics.RecordsImported("pois", "overpass", imported)
	return e.summarize(ctx, "pois", "overpass", started, imported, imported, err), err
}

// SeedLivability generates and persists synthetic livability observations
// from start through the current month. Upserts are keyed by date, so
// reseeding an already-populated range is harmless.
func (e *Engine) SeedLivability(ctx context.Context, start time.Time) (pulse.RunSummary, error) {
	startedAt := e.deps.Clock.Now()
	if e.deps.LivabilityGen == nil {
		err := errors.New("livability generator not configured")
		return e.summarize(ctx, "livability", "", startedAt, 0, 0, err), err
	}

	series := e.deps.LivabilityGen.Livability(start, e.deps.Clock.Now())
	imported := 0
	for _, obs := range series {
		if err := e.deps.Livability.UpsertLivability(ctx, obs); err != nil {
			if ctx.Err() != nil {
				return pulse.RunSummary{}, ctx.Err()
			}
			metrics.UpsertFailure("livability")
			e.deps.Logger.Warn("livability upsert failed", zap.Time("date", obs.Date), zap.Error(err))
			continue
		}
		imported++
	}
	metrics.RecordsImported("livability", "synthetic", imported)
	return e.summarize(ctx, "livability", "synthetic", startedAt, len(series), imported, nil), nil
}

// summarize builds the run summary, records the run outcome and publishes the
// summary when a publisher is configured. Publish failures are logged, never
// propagated.
func (e *Engine) summarize(ctx context.Context, pipeline, source string, started time.Time, attempted, imported int, runErr error) pulse.RunSummary {
	summary := pulse.RunSummary{
		Pipeline:   pipeline,
		Source:     source,
		Attempted:  attempted,
		Imported:   imported,
		StartedAt:  started,
		FinishedAt: e.deps.Clock.Now(),
	}
	if runErr != nil {
		summary.ErrorText = runErr.Error()
	}
	if e.deps.IDs != nil {
		if id, err := e.deps.IDs.NewID(); err == nil {
			summary.RunID = id
		} else {
			e.deps.Logger.Warn("run id generation failed", zap.Error(err))
		}
	}

	status := "ok"
	if runErr != nil {
		status = "error"
	}
	metrics.PipelineRun(pipeline, status)

	e.deps.Logger.Info("pipeline run finished",
		zap.String("pipeline", pipeline),
		zap.String("source", source),
		zap.String("status", status),
		zap.Int("imported", imported),
		zap.String("run_id", summary.RunID))

	if e.deps.Publisher != nil {
		if _, err := e.deps.Publisher.Publish(ctx, summary); err != nil {
			e.deps.Logger.Warn("run summary publish failed",
				zap.String("pipeline", pipeline), zap.Error(err))
		}
	}
	return summary
}
