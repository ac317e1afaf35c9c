package listings

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/classify"
	"github.com/napolipulse/pulse-ingest/internal/metrics"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Config controls the scraping run.
type Config struct {
	Keywords      []string
	MaxPerKeyword int
	RegionHint    string // appended to listing locations before geocoding
}

// Scraper runs keyword searches through an Extractor and turns the candidates
// into classified, geocoded listings. One keyword failing never aborts the
// run; the other keywords still get their turn.
type Scraper struct {
	cfg       Config
	extractor Extractor
	geocoder  pulse.Geocoder
	store     pulse.ListingWriter
	blobs     pulse.BlobStore
	delays    pulse.DelayStrategy
	clock     pulse.Clock
	logger    *zap.Logger
}

// NewScraper creates a Scraper. geocoder and blobs may be nil; listings are
// then stored without coordinates and raw pages are not archived.
func NewScraper(
	cfg Config,
	extractor Extractor,
	geocoder pulse.Geocoder,
	store pulse.ListingWriter,
	blobs pulse.BlobStore,
	delays pulse.DelayStrategy,
	clock pulse.Clock,
	logger *zap.Logger,
) *Scraper {
	if cfg.MaxPerKeyword <= 0 {
		cfg.MaxPerKeyword = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		cfg:       cfg,
		extractor: extractor,
		geocoder:  geocoder,
		store:     store,
		blobs:     blobs,
		delays:    delays,
		clock:     clock,
		logger:    logger,
	}
}

// Run searches every configured keyword and upserts the resulting listings by
// URL. It returns how many filtered candidates were attempted and how many
// listings were actually stored across all keywords.
func (s *Scraper) Run(ctx context.Context) (int, int, error) {
	settle := func(ctx context.Context) error {
		return pulse.Sleep(ctx, s.delays.SettlePause())
	}

	attempted, total := 0, 0
	for i, keyword := range s.cfg.Keywords {
		if i > 0 {
			if err := pulse.Sleep(ctx, s.delays.KeywordPause()); err != nil {
				return attempted, total, err
			}
		}

		candidates, raw, err := s.extractor.Extract(ctx, keyword, settle)
		if err != nil {
			if ctx.Err() != nil {
				return attempted, total, ctx.Err()
			}
			metrics.FetchFailure("listings")
			s.logger.Warn("keyword search failed", zap.String("keyword", keyword), zap.Error(err))
			continue
		}

		s.archive(ctx, keyword, raw)

		kept := FilterCandidates(candidates, s.cfg.MaxPerKeyword)
		attempted += len(kept)
		stored, err := s.storeCandidates(ctx, keyword, kept)
		total += stored
		if err != nil {
			return attempted, total, err
		}
		s.logger.Info("keyword processed",
			zap.String("keyword", keyword),
			zap.Int("candidates", len(candidates)),
			zap.Int("attempted", len(kept)),
			zap.Int("stored", stored))
	}
	return attempted, total, nil
}

// storeCandidates classifies, geocodes and upserts one keyword's candidates.
// The only error it returns is context cancellation; per-record failures are
// logged and skipped.
func (s *Scraper) storeCandidates(ctx context.Context, keyword string, candidates []Candidate) (int, error) {
	stored := 0
	for _, c := range candidates {
		if c.URL == "" {
			s.logger.Debug("candidate without url skipped", zap.String("keyword", keyword), zap.String("title", c.Title))
			continue
		}

		listing := pulse.JobListing{
			URL:         c.URL,
			Title:       c.Title,
			Company:     c.Company,
			Location:    c.Location,
			Description: c.Description,
			PostedDate:  c.PostedDate,
			Sector:      classify.Classify(c.Title),
			ScrapedAt:   s.clock.Now(),
		}

		if s.geocoder != nil && c.Location != "" {
			if err := pulse.Sleep(ctx, s.delays.GeocodePause()); err != nil {
				return stored, err
			}
			if coords, ok := s.geocoder.Resolve(ctx, c.Location, s.cfg.RegionHint); ok {
				listing.Lat = &coords.Lat
				listing.Lon = &coords.Lon
			}
		}

		if err := s.store.UpsertListing(ctx, listing); err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			metrics.UpsertFailure("listing")
			s.logger.Warn("listing upsert failed", zap.String("url", listing.URL), zap.Error(err))
			continue
		}
		stored++
	}
	return stored, nil
}

// archive stores the raw rendered page when a blob store is configured.
func (s *Scraper) archive(ctx context.Context, keyword string, raw []byte) {
	if s.blobs == nil || len(raw) == 0 {
		return
	}
	path := fmt.Sprintf("listings/%s/%s.html", s.clock.Now().UTC().Format("2006-01-02"), slug(keyword))
	uri, err := s.blobs.PutObject(ctx, path, "text/html; charset=utf-8", raw)
	if err != nil {
		s.logger.Warn("page archive failed", zap.String("keyword", keyword), zap.Error(err))
		return
	}
	s.logger.Debug("page archived", zap.String("keyword", keyword), zap.String("uri", uri))
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
