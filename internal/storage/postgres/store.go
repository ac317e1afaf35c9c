// Package postgres provides the Postgres-backed store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements the persistence boundary on a pgx pool. Every write is an
// upsert on the row's natural key.
type Store struct {
	pool querier
}

// New creates a Postgres-backed store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertUnemployment inserts or refreshes one observation. Only the rate is
// updated on conflict; the key fields never change.
func (s *Store) UpsertUnemployment(ctx context.Context, obs pulse.UnemploymentObservation) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO unemployment_stats (territory, date, rate, age_group, gender)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (territory, date, age_group, gender)
DO UPDATE SET rate = EXCLUDED.rate`,
		obs.Territory, pulse.MonthOf(obs.Date), obs.Rate, obs.AgeGroup, obs.Gender)
	if err != nil {
		return fmt.Errorf("upsert unemployment: %w", err)
	}
	return nil
}

// UpsertListing inserts or refreshes a listing by URL. The update path
// rewrites every mutable field, including scraped_at.
func (s *Store) UpsertListing(ctx context.Context, l pulse.JobListing) error {
	if l.URL == "" {
		return fmt.Errorf("listing url is required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO job_listings (url, title, company, location, description, posted_date, sector, lat, lon, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	description = EXCLUDED.description,
	posted_date = EXCLUDED.posted_date,
	sector = EXCLUDED.sector,
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	scraped_at = EXCLUDED.scraped_at`,
		l.URL, l.Title, l.Company, l.Location, l.Description, l.PostedDate, string(l.Sector), l.Lat, l.Lon, l.ScrapedAt)
	if err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}
	return nil
}

// UpsertBusiness inserts or refreshes a business by OSM id.
func (s *Store) UpsertBusiness(ctx context.Context, b pulse.Business) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO businesses (osm_id, name, type, lat, lon, address, quarter)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (osm_id) DO UPDATE SET
	name = EXCLUDED.name,
	type = EXCLUDED.type,
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	address = EXCLUDED.address,
	quarter = EXCLUDED.quarter`,
		b.OSMID, b.Name, b.Type, b.Lat, b.Lon, b.Address, b.Quarter)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

// UpsertLivability inserts or refreshes one observation by date.
func (s *Store) UpsertLivability(ctx context.Context, obs pulse.LivabilityObservation) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO livability_metrics (date, avg_rent_price, avg_house_price, cost_of_living_index, transport_cost, groceries_cost)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (date) DO UPDATE SET
	avg_rent_price = EXCLUDED.avg_rent_price,
	avg_house_price = EXCLUDED.avg_house_price,
	cost_of_living_index = EXCLUDED.cost_of_living_index,
	transport_cost = EXCLUDED.transport_cost,
	groceries_cost = EXCLUDED.groceries_cost`,
		pulse.MonthOf(obs.Date), obs.AvgRentPrice, obs.AvgHousePrice, obs.CostOfLivingIndex, obs.TransportCost, obs.GroceriesCost)
	if err != nil {
		return fmt.Errorf("upsert livability: %w", err)
	}
	return nil
}

// UnemploymentSeries returns total-gender observations since the given date,
// oldest first.
func (s *Store) UnemploymentSeries(ctx context.Context, territory string, since time.Time) ([]pulse.UnemploymentObservation, error) {
	rows, err := s.pool.Query(ctx, `
SELECT territory, date, rate, age_group, gender
FROM unemployment_stats
WHERE territory = $1 AND date >= $2 AND gender = $3
ORDER BY date ASC`,
		territory, since, pulse.GenderTotal)
	if err != nil {
		return nil, fmt.Errorf("query unemployment series: %w", err)
	}
	defer rows.Close()

	var out []pulse.UnemploymentObservation
	for rows.Next() {
		var obs pulse.UnemploymentObservation
		if err := rows.Scan(&obs.Territory, &obs.Date, &obs.Rate, &obs.AgeGroup, &obs.Gender); err != nil {
			return nil, fmt.Errorf("scan unemployment row: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unemployment rows: %w", err)
	}
	return out, nil
}

// LatestUnemployment returns the most recent observation for the territory.
// When the latest month holds both a survey-band and a synthetic observation,
// the survey one wins.
func (s *Store) LatestUnemployment(ctx context.Context, territory string) (pulse.UnemploymentObservation, bool, error) {
	var obs pulse.UnemploymentObservation
	err := s.pool.QueryRow(ctx, `
SELECT territory, date, rate, age_group, gender
FROM unemployment_stats
WHERE territory = $1 AND gender = $2
ORDER BY date DESC, (age_group <> $3) DESC
LIMIT 1`,
		territory, pulse.GenderTotal, pulse.AgeBandSynthetic).
		Scan(&obs.Territory, &obs.Date, &obs.Rate, &obs.AgeGroup, &obs.Gender)
	if errors.Is(err, pgx.ErrNoRows) {
		return pulse.UnemploymentObservation{}, false, nil
	}
	if err != nil {
		return pulse.UnemploymentObservation{}, false, fmt.Errorf("query latest unemployment: %w", err)
	}
	return obs, true, nil
}

// ListListings returns listings scraped since the given time, newest first.
// An empty sector matches everything.
func (s *Store) ListListings(ctx context.Context, sector pulse.Sector, since time.Time, limit, offset int) ([]pulse.JobListing, error) {
	rows, err := s.pool.Query(ctx, `
SELECT url, title, company, location, description, posted_date, sector, lat, lon, scraped_at
FROM job_listings
WHERE scraped_at >= $1 AND ($2 = '' OR sector = $2)
ORDER BY scraped_at DESC
LIMIT $3 OFFSET $4`,
		since, string(sector), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// CountListings counts listings matching the same filter as ListListings.
func (s *Store) CountListings(ctx context.Context, sector pulse.Sector, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM job_listings
WHERE scraped_at >= $1 AND ($2 = '' OR sector = $2)`,
		since, string(sector)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return count, nil
}

// MapListings returns recent coordinate-bearing listings.
func (s *Store) MapListings(ctx context.Context, since time.Time, limit int) ([]pulse.JobListing, error) {
	rows, err := s.pool.Query(ctx, `
SELECT url, title, company, location, description, posted_date, sector, lat, lon, scraped_at
FROM job_listings
WHERE scraped_at >= $1 AND lat IS NOT NULL AND lon IS NOT NULL
ORDER BY scraped_at DESC
LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("query map listings: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// SectorBreakdown groups recent listings by sector, largest group first.
func (s *Store) SectorBreakdown(ctx context.Context, since time.Time, limit int) ([]pulse.SectorCount, error) {
	rows, err := s.pool.Query(ctx, `
SELECT sector, COUNT(*) AS n
FROM job_listings
WHERE scraped_at >= $1
GROUP BY sector
ORDER BY n DESC
LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("query sector breakdown: %w", err)
	}
	defer rows.Close()

	var out []pulse.SectorCount
	for rows.Next() {
		var row pulse.SectorCount
		if err := rows.Scan(&row.Sector, &row.Count); err != nil {
			return nil, fmt.Errorf("scan sector row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sector rows: %w", err)
	}
	return out, nil
}

// ListBusinesses returns businesses ordered by name.
func (s *Store) ListBusinesses(ctx context.Context, limit int) ([]pulse.Business, error) {
	rows, err := s.pool.Query(ctx, `
SELECT osm_id, name, type, lat, lon, address, quarter
FROM businesses
ORDER BY name ASC
LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query businesses: %w", err)
	}
	defer rows.Close()

	var out []pulse.Business
	for rows.Next() {
		var b pulse.Business
		if err := rows.Scan(&b.OSMID, &b.Name, &b.Type, &b.Lat, &b.Lon, &b.Address, &b.Quarter); err != nil {
			return nil, fmt.Errorf("scan business row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate business rows: %w", err)
	}
	return out, nil
}

// LatestLivability returns the most recent livability observation.
func (s *Store) LatestLivability(ctx context.Context) (pulse.LivabilityObservation, bool, error) {
	var obs pulse.LivabilityObservation
	err := s.pool.QueryRow(ctx, `
SELECT date, avg_rent_price, avg_house_price, cost_of_living_index, transport_cost, groceries_cost
FROM livability_metrics
ORDER BY date DESC
LIMIT 1`).
		Scan(&obs.Date, &obs.AvgRentPrice, &obs.AvgHousePrice, &obs.CostOfLivingIndex, &obs.TransportCost, &obs.GroceriesCost)
	if errors.Is(err, pgx.ErrNoRows) {
		return pulse.LivabilityObservation{}, false, nil
	}
	if err != nil {
		return pulse.LivabilityObservation{}, false, fmt.Errorf("query latest livability: %w", err)
	}
	return obs, true, nil
}

// LivabilitySeries returns livability observations since the given date,
// oldest first.
func (s *Store) LivabilitySeries(ctx context.Context, since time.Time) ([]pulse.LivabilityObservation, error) {
	rows, err := s.pool.Query(ctx, `
SELECT date, avg_rent_price, avg_house_price, cost_of_living_index, transport_cost, groceries_cost
FROM livability_metrics
WHERE date >= $1
ORDER BY date ASC`,
		since)
	if err != nil {
		return nil, fmt.Errorf("query livability series: %w", err)
	}
	defer rows.Close()

	var out []pulse.LivabilityObservation
	for rows.Next() {
		var obs pulse.LivabilityObservation
		if err := rows.Scan(&obs.Date, &obs.AvgRentPrice, &obs.AvgHousePrice, &obs.CostOfLivingIndex, &obs.TransportCost, &obs.GroceriesCost); err != nil {
			return nil, fmt.Errorf("scan livability row: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate livability rows: %w", err)
	}
	return out, nil
}

func scanListings(rows pgx.Rows) ([]pulse.JobListing, error) {
	var out []pulse.JobListing
	for rows.Next() {
		var l pulse.JobListing
		if err := rows.Scan(&l.URL, &l.Title, &l.Company, &l.Location, &l.Description, &l.PostedDate, &l.Sector, &l.Lat, &l.Lon, &l.ScrapedAt); err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}
	return out, nil
}
