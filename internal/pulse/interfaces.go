package pulse

import (
	"context"
	"time"
)

// Store is the durable keyed persistence boundary. Every write is an upsert
// by natural key; repeating an upsert with identical fields is a no-op.
type Store interface {
	UnemploymentWriter
	ListingWriter
	BusinessWriter
	LivabilityWriter

	// UnemploymentSeries returns observations for a territory ordered by date
	// ascending, restricted to dates >= since and the total-gender breakdown.
	UnemploymentSeries(ctx context.Context, territory string, since time.Time) ([]UnemploymentObservation, error)
	// LatestUnemployment returns the most recent observation for a territory.
	LatestUnemployment(ctx context.Context, territory string) (UnemploymentObservation, bool, error)

	// ListListings returns listings scraped at or after since, newest first.
	// An empty sector matches all sectors.
	ListListings(ctx context.Context, sector Sector, since time.Time, limit, offset int) ([]JobListing, error)
	CountListings(ctx context.Context, sector Sector, since time.Time) (int64, error)
	// MapListings returns coordinate-bearing listings for map display.
	MapListings(ctx context.Context, since time.Time, limit int) ([]JobListing, error)
	// SectorBreakdown groups recent listings by sector, largest group first.
	SectorBreakdown(ctx context.Context, since time.Time, limit int) ([]SectorCount, error)

	ListBusinesses(ctx context.Context, limit int) ([]Business, error)

	LatestLivability(ctx context.Context) (LivabilityObservation, bool, error)
	LivabilitySeries(ctx context.Context, since time.Time) ([]LivabilityObservation, error)

	Close()
}

// UnemploymentWriter upserts observations by their natural key. The update
// path replaces the rate only, never the key fields.
type UnemploymentWriter interface {
	UpsertUnemployment(ctx context.Context, obs UnemploymentObservation) error
}

// ListingWriter upserts listings by URL, refreshing ScrapedAt on every call.
type ListingWriter interface {
	UpsertListing(ctx context.Context, listing JobListing) error
}

// BusinessWriter upserts businesses by OSM id.
type BusinessWriter interface {
	UpsertBusiness(ctx context.Context, business Business) error
}

// LivabilityWriter upserts livability observations by date.
type LivabilityWriter interface {
	UpsertLivability(ctx context.Context, obs LivabilityObservation) error
}

// SeriesSource fetches unemployment observations for a territory. A source
// that is unavailable or returns a malformed payload reports an error; the
// reconciliation engine treats errors and empty results identically and moves
// to the next source in the fallback chain.
type SeriesSource interface {
	Name() string
	FetchSeries(ctx context.Context, territory string) ([]UnemploymentObservation, error)
}

// Geocoder resolves a free-text address to coordinates. All failure modes
// (timeout, non-200, empty result) collapse to ok=false; it never fails hard.
type Geocoder interface {
	Resolve(ctx context.Context, address, regionHint string) (Coordinates, bool)
}

// DelayStrategy samples the pacing intervals used to stay inside upstream
// fair-use and anti-automation limits. Tests substitute a zero-delay strategy.
type DelayStrategy interface {
	// GeocodePause separates consecutive geocoding calls (>= 1.2s in production).
	GeocodePause() time.Duration
	// SettlePause is the post-navigation wait before extraction (2-4s).
	SettlePause() time.Duration
	// KeywordPause separates consecutive keyword searches (5-8s).
	KeywordPause() time.Duration
}

// BlobStore archives raw artifacts (rendered search-results HTML) and returns
// a URI for the stored object.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run summaries to an event bus.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Sleep waits for d or until the context is canceled, whichever comes first.
// A non-positive d returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
