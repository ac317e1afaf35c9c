// Package memory provides in-memory store implementations for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Store keeps all records in process memory, keyed the same way the Postgres
// store keys its rows. It is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	unemployment map[pulse.ObservationKey]pulse.UnemploymentObservation
	listings     map[string]pulse.JobListing
	businesses   map[int64]pulse.Business
	livability   map[time.Time]pulse.LivabilityObservation
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		unemployment: map[pulse.ObservationKey]pulse.UnemploymentObservation{},
		listings:     map[string]pulse.JobListing{},
		businesses:   map[int64]pulse.Business{},
		livability:   map[time.Time]pulse.LivabilityObservation{},
	}
}

// UpsertUnemployment stores the observation under its natural key.
func (s *Store) UpsertUnemployment(_ context.Context, obs pulse.UnemploymentObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs.Date = pulse.MonthOf(obs.Date)
	s.unemployment[obs.Key()] = obs
	return nil
}

// UpsertListing stores the listing under its URL.
func (s *Store) UpsertListing(_ context.Context, l pulse.JobListing) error {
	if l.URL == "" {
		return fmt.Errorf("listing url is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.URL] = l
	return nil
}

// UpsertBusiness stores the business under its OSM id.
func (s *Store) UpsertBusiness(_ context.Context, b pulse.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses[b.OSMID] = b
	return nil
}

// UpsertLivability stores the observation under its month.
func (s *Store) UpsertLivability(_ context.Context, obs pulse.LivabilityObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs.Date = pulse.MonthOf(obs.Date)
	s.livability[obs.Date] = obs
	return nil
}

// UnemploymentSeries returns total-gender observations since the given date,
// oldest first.
func (s *Store) UnemploymentSeries(_ context.Context, territory string, since time.Time) ([]pulse.UnemploymentObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pulse.UnemploymentObservation
	for _, obs := range s.unemployment {
		if obs.Territory == territory && obs.Gender == pulse.GenderTotal && !obs.Date.Before(since) {
			out = append(out, obs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LatestUnemployment returns the most recent observation for the territory.
// When the latest month holds both a survey-band and a synthetic observation,
// the survey one wins.
func (s *Store) LatestUnemployment(_ context.Context, territory string) (pulse.UnemploymentObservation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest pulse.UnemploymentObservation
		found  bool
	)
	for _, obs := range s.unemployment {
		if obs.Territory != territory || obs.Gender != pulse.GenderTotal {
			continue
		}
		switch {
		case !found, obs.Date.After(latest.Date):
			latest = obs
			found = true
		case obs.Date.Equal(latest.Date) &&
			latest.AgeGroup == pulse.AgeBandSynthetic && obs.AgeGroup != pulse.AgeBandSynthetic:
			latest = obs
		}
	}
	return latest, found, nil
}

// ListListings returns listings scraped since the given time, newest first.
func (s *Store) ListListings(_ context.Context, sector pulse.Sector, since time.Time, limit, offset int) ([]pulse.JobListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchListings(sector, since)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// CountListings counts listings matching the same filter as ListListings.
func (s *Store) CountListings(_ context.Context, sector pulse.Sector, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchListings(sector, since))), nil
}

// MapListings returns recent coordinate-bearing listings.
func (s *Store) MapListings(_ context.Context, since time.Time, limit int) ([]pulse.JobListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pulse.JobListing
	for _, l := range s.matchListings("", since) {
		if l.Lat == nil || l.Lon == nil {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SectorBreakdown groups recent listings by sector, largest group first.
func (s *Store) SectorBreakdown(_ context.Context, since time.Time, limit int) ([]pulse.SectorCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[pulse.Sector]int64{}
	for _, l := range s.matchListings("", since) {
		counts[l.Sector]++
	}
	out := make([]pulse.SectorCount, 0, len(counts))
	for sector, n := range counts {
		out = append(out, pulse.SectorCount{Sector: sector, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Sector < out[j].Sector
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListBusinesses returns businesses ordered by name.
func (s *Store) ListBusinesses(_ context.Context, limit int) ([]pulse.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]pulse.Business, 0, len(s.businesses))
	for _, b := range s.businesses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LatestLivability returns the most recent livability observation.
func (s *Store) LatestLivability(context.Context) (pulse.LivabilityObservation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest pulse.LivabilityObservation
		found  bool
	)
	for _, obs := range s.livability {
		if !found || obs.Date.After(latest.Date) {
			latest = obs
			found = true
		}
	}
	return latest, found, nil
}

// LivabilitySeries returns livability observations since the given date,
// oldest first.
func (s *Store) LivabilitySeries(_ context.Context, since time.Time) ([]pulse.LivabilityObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pulse.LivabilityObservation
	for _, obs := range s.livability {
		if !obs.Date.Before(since) {
			out = append(out, obs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// matchListings filters and sorts newest-first. Callers hold the lock.
func (s *Store) matchListings(sector pulse.Sector, since time.Time) []pulse.JobListing {
	var out []pulse.JobListing
	for _, l := range s.listings {
		if l.ScrapedAt.Before(since) {
			continue
		}
		if sector != "" && l.Sector != sector {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.After(out[j].ScrapedAt)
		}
		return out[i].URL < out[j].URL
	})
	return out
}
