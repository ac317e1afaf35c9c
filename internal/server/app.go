// Package server builds the application's dependency graph and runs the
// service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/api"
	"github.com/napolipulse/pulse-ingest/internal/clock/system"
	"github.com/napolipulse/pulse-ingest/internal/config"
	"github.com/napolipulse/pulse-ingest/internal/eurostat"
	"github.com/napolipulse/pulse-ingest/internal/geocode"
	"github.com/napolipulse/pulse-ingest/internal/id/uuid"
	"github.com/napolipulse/pulse-ingest/internal/istat"
	"github.com/napolipulse/pulse-ingest/internal/listings"
	"github.com/napolipulse/pulse-ingest/internal/logging"
	"github.com/napolipulse/pulse-ingest/internal/metrics"
	"github.com/napolipulse/pulse-ingest/internal/poi"
	memorypublisher "github.com/napolipulse/pulse-ingest/internal/publisher/memory"
	gcppublisher "github.com/napolipulse/pulse-ingest/internal/publisher/pubsub"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
	"github.com/napolipulse/pulse-ingest/internal/reconcile"
	"github.com/napolipulse/pulse-ingest/internal/scheduler"
	"github.com/napolipulse/pulse-ingest/internal/seed"
	gcsstorage "github.com/napolipulse/pulse-ingest/internal/storage/gcs"
	localstorage "github.com/napolipulse/pulse-ingest/internal/storage/local"
	memorystorage "github.com/napolipulse/pulse-ingest/internal/storage/memory"
	pgstore "github.com/napolipulse/pulse-ingest/internal/storage/postgres"
	"github.com/napolipulse/pulse-ingest/internal/synthetic"
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	store     pulse.Store
	engine    *reconcile.Engine
	seeder    *seed.Seeder
	apiServer *api.Server
	sched     *scheduler.Scheduler

	headless     *listings.HeadlessExtractor
	gcsClient    *storage.Client
	pubsubClient *pubsub.Client
	pubsubPub    *gcppublisher.Publisher
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	clock := system.New()
	ids := uuid.New()

	if err := app.setupStore(ctx); err != nil {
		return nil, err
	}
	blobs, err := app.setupBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	gen := synthetic.New(synthetic.Params{
		StartRate:      cfg.Synthetic.StartRate,
		MinRate:        cfg.Synthetic.MinRate,
		MaxRate:        cfg.Synthetic.MaxRate,
		MonthlyDrift:   cfg.Synthetic.MonthlyDrift,
		NoiseBand:      cfg.Synthetic.NoiseBand,
		RentStart:      cfg.Synthetic.RentStart,
		HouseStart:     cfg.Synthetic.HouseStart,
		CostIndexStart: cfg.Synthetic.CostIndexStart,
		TransportBase:  cfg.Synthetic.TransportBase,
		GroceriesBase:  cfg.Synthetic.GroceriesBase,
	}, nil)
	syntheticFrom, err := parseMonth(cfg.Synthetic.FromMonth)
	if err != nil {
		return nil, fmt.Errorf("synthetic.from_month: %w", err)
	}

	sources := []pulse.SeriesSource{
		istat.New(istat.Config{
			URL:     cfg.Istat.URL,
			Timeout: time.Duration(cfg.Istat.TimeoutSeconds) * time.Second,
		}, clock, logger.Named("istat")),
		eurostat.New(eurostat.Config{
			BaseURL:  cfg.Eurostat.BaseURL,
			Dataset:  cfg.Eurostat.Dataset,
			GeoCode:  cfg.Territory.GeoCode,
			FromYear: cfg.Eurostat.FromYear,
			Timeout:  time.Duration(cfg.Eurostat.TimeoutSeconds) * time.Second,
		}, logger.Named("eurostat")),
		synthetic.NewSource(gen, clock, syntheticFrom),
	}

	geocoder := geocode.New(geocode.Config{
		BaseURL:   cfg.Nominatim.BaseURL,
		UserAgent: cfg.Nominatim.UserAgent,
		Timeout:   time.Duration(cfg.Nominatim.TimeoutSeconds) * time.Second,
	}, logger.Named("geocode"))

	scraper := listings.NewScraper(
		listings.Config{
			Keywords:      cfg.Scraper.Keywords,
			MaxPerKeyword: cfg.Scraper.MaxPerKeyword,
			RegionHint:    cfg.Territory.AreaHint,
		},
		app.setupExtractor(),
		geocoder,
		app.store,
		blobs,
		listings.NewRandomDelays(nil),
		clock,
		logger.Named("scraper"),
	)

	poiFetcher := poi.New(poi.Config{
		URL:        cfg.Overpass.URL,
		AreaName:   cfg.Territory.Name,
		MaxResults: cfg.Overpass.MaxResults,
		Timeout:    time.Duration(cfg.Overpass.TimeoutSeconds) * time.Second,
	}, app.store, logger.Named("poi"))

	app.engine = reconcile.New(reconcile.Config{Territory: cfg.Territory.GeoCode}, reconcile.Deps{
		Sources:       sources,
		Unemployment:  app.store,
		Livability:    app.store,
		POIs:          poiFetcher,
		Listings:      scraper,
		LivabilityGen: gen,
		Publisher:     publisher,
		IDs:           ids,
		Clock:         clock,
		Logger:        logger.Named("engine"),
	})
	app.seeder = seed.New(app.store, gen, clock, logger.Named("seed"))
	app.apiServer = api.NewServer(app.store, cfg.Territory.GeoCode, clock, logger.Named("api"))

	if cfg.Schedule.Enabled {
		app.sched, err = scheduler.New(scheduler.Config{
			Stats:    cfg.Schedule.Stats,
			POIs:     cfg.Schedule.POIs,
			Listings: cfg.Schedule.Listings,
		}, app.engine, logger.Named("scheduler"))
		if err != nil {
			return nil, fmt.Errorf("scheduler init failed: %w", err)
		}
	}

	return app, nil
}

// Engine returns the reconciliation engine for one-shot command runs.
func (a *App) Engine() *reconcile.Engine {
	return a.engine
}

// Seed fills the store with demo data starting at the configured synthetic
// backfill month.
func (a *App) Seed(ctx context.Context) error {
	from, err := a.SyntheticFrom()
	if err != nil {
		return err
	}
	return a.seeder.Run(ctx, a.cfg.Territory.GeoCode, from)
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// SyntheticFrom returns the configured start of the synthetic backfill.
func (a *App) SyntheticFrom() (time.Time, error) {
	return parseMonth(a.cfg.Synthetic.FromMonth)
}

// Run starts the HTTP server and scheduler and blocks until the context is
// canceled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.sched != nil {
		a.sched.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()
	return nil
}

// Close releases all held resources.
func (a *App) Close() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsubPub != nil {
		a.pubsubPub.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
	a.logger.Info("shutdown complete")
}

func (a *App) setupStore(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no database DSN configured, using in-memory store")
		a.store = memorystorage.NewStore()
		return nil
	}
	store, err := pgstore.New(ctx, pgstore.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("postgres store init failed: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return fmt.Errorf("postgres migrate failed: %w", err)
	}
	a.logger.Info("postgres store initialized")
	a.store = store
	return nil
}

func (a *App) setupBlobStore(ctx context.Context) (pulse.BlobStore, error) {
	if !a.cfg.Scraper.ArchiveHTML {
		return nil, nil
	}
	switch a.cfg.Storage.Provider {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: a.cfg.Storage.GCSBucket,
			Prefix: a.cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using GCS archive", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return blobs, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local archive", zap.String("dir", a.cfg.Storage.LocalDir))
		return blobs, nil
	default:
		a.logger.Info("archive enabled without provider, using in-memory blob store")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (pulse.Publisher, error) {
	if a.cfg.PubSub.ProjectID == "" || a.cfg.PubSub.TopicID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	pub, err := gcppublisher.New(client, a.cfg.PubSub.TopicID)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.pubsubPub = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicID))
	return pub, nil
}

func (a *App) setupExtractor() listings.Extractor {
	if a.cfg.Scraper.Mode == "static" {
		a.logger.Info("using static listing extractor")
		return listings.NewStatic(listings.StaticConfig{
			BaseURL:        a.cfg.Scraper.BaseURL,
			Area:           a.cfg.Territory.Name,
			UserAgent:      a.cfg.Scraper.UserAgent,
			AcceptLanguage: a.cfg.Scraper.AcceptLanguage,
			Timeout:        time.Duration(a.cfg.Scraper.NavTimeoutSeconds) * time.Second,
		})
	}
	a.headless = listings.NewHeadless(listings.HeadlessConfig{
		BaseURL:        a.cfg.Scraper.BaseURL,
		Area:           a.cfg.Territory.Name,
		UserAgent:      a.cfg.Scraper.UserAgent,
		AcceptLanguage: a.cfg.Scraper.AcceptLanguage,
		MaxPerKeyword:  a.cfg.Scraper.MaxPerKeyword,
		NavTimeout:     time.Duration(a.cfg.Scraper.NavTimeoutSeconds) * time.Second,
	})
	return a.headless
}

func parseMonth(value string) (time.Time, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM, got %q", value)
	}
	return t, nil
}
