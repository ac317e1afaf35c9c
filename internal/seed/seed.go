// Package seed fills an empty database with demo data so the read API has
// something to show before the first real ingestion runs.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/classify"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
	"github.com/napolipulse/pulse-ingest/internal/synthetic"
)

// Seeder writes synthetic series plus a small fixed catalog of listings and
// businesses. Everything goes through the same upserts the pipelines use, so
// reseeding is idempotent.
type Seeder struct {
	store  pulse.Store
	gen    *synthetic.Generator
	clock  pulse.Clock
	logger *zap.Logger
}

// New creates a Seeder.
func New(store pulse.Store, gen *synthetic.Generator, clock pulse.Clock, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{store: store, gen: gen, clock: clock, logger: logger}
}

// Run seeds synthetic unemployment and livability series from the given month
// plus the demo listings and businesses.
func (s *Seeder) Run(ctx context.Context, territory string, from time.Time) error {
	now := s.clock.Now()

	unemployment := s.gen.Unemployment(territory, from, now)
	for _, obs := range unemployment {
		if err := s.store.UpsertUnemployment(ctx, obs); err != nil {
			return fmt.Errorf("seed unemployment: %w", err)
		}
	}

	livability := s.gen.Livability(from, now)
	for _, obs := range livability {
		if err := s.store.UpsertLivability(ctx, obs); err != nil {
			return fmt.Errorf("seed livability: %w", err)
		}
	}

	for _, b := range demoBusinesses {
		if err := s.store.UpsertBusiness(ctx, b); err != nil {
			return fmt.Errorf("seed business %d: %w", b.OSMID, err)
		}
	}

	for _, l := range demoListings(now) {
		if err := s.store.UpsertListing(ctx, l); err != nil {
			return fmt.Errorf("seed listing %s: %w", l.URL, err)
		}
	}

	s.logger.Info("seed finished",
		zap.String("territory", territory),
		zap.Int("unemployment", len(unemployment)),
		zap.Int("livability", len(livability)),
		zap.Int("businesses", len(demoBusinesses)))
	return nil
}

func ptr[T any](v T) *T { return &v }

var demoBusinesses = []pulse.Business{
	{OSMID: 1001, Name: "Caffè Partenope", Type: "cafe", Lat: 40.8358, Lon: 14.2488, Address: ptr("Via Toledo 210"), Quarter: ptr("San Ferdinando")},
	{OSMID: 1002, Name: "Trattoria del Porto", Type: "restaurant", Lat: 40.8401, Lon: 14.2553, Address: ptr("Via Mezzocannone 12"), Quarter: ptr("Centro Storico")},
	{OSMID: 1003, Name: "Libreria Vomero", Type: "books", Lat: 40.8444, Lon: 14.2291, Quarter: ptr("Vomero")},
	{OSMID: 1004, Name: "Spazio Coworking Napoli", Type: "coworking_space", Lat: 40.8530, Lon: 14.2681},
	{OSMID: 1005, Name: "Alimentari Sanità", Type: "convenience", Lat: 40.8591, Lon: 14.2500, Quarter: ptr("Sanità")},
}

func demoListings(now time.Time) []pulse.JobListing {
	lat, lon := 40.8518, 14.2681
	seeds := []pulse.JobListing{
		{
			URL:         "https://jobs.example/napoli/sviluppatore-go",
			Title:       "Sviluppatore Go",
			Company:     "Partenope Digitale",
			Location:    "Napoli, NA",
			Description: "Backend services in Go per la piattaforma logistica.",
			Lat:         &lat,
			Lon:         &lon,
		},
		{
			URL:         "https://jobs.example/napoli/cameriere-sala",
			Title:       "Cameriere di sala",
			Company:     "Trattoria del Porto",
			Location:    "Napoli, NA",
			Description: "Servizio ai tavoli, turni serali.",
		},
		{
			URL:         "https://jobs.example/napoli/magazziniere",
			Title:       "Magazziniere",
			Company:     "LogiSud",
			Location:    "Casoria, NA",
			Description: "Gestione magazzino e spedizioni.",
		},
		{
			URL:         "https://jobs.example/napoli/impiegato-amministrativo",
			Title:       "Impiegato amministrativo",
			Company:     "Studio Esposito",
			Location:    "Napoli, NA",
			Description: "Contabilità e segreteria.",
		},
	}
	for i := range seeds {
		seeds[i].PostedDate = "recent"
		seeds[i].Sector = classify.Classify(seeds[i].Title)
		seeds[i].ScrapedAt = now
	}
	return seeds
}
