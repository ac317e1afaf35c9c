package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS unemployment_stats (
	territory TEXT NOT NULL,
	date DATE NOT NULL,
	rate DOUBLE PRECISION NOT NULL,
	age_group TEXT NOT NULL,
	gender TEXT NOT NULL,
	PRIMARY KEY (territory, date, age_group, gender)
)`,
	`CREATE TABLE IF NOT EXISTS job_listings (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	posted_date TEXT NOT NULL DEFAULT '',
	sector TEXT NOT NULL DEFAULT 'Altro',
	lat DOUBLE PRECISION,
	lon DOUBLE PRECISION,
	scraped_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS job_listings_scraped_at_idx ON job_listings (scraped_at DESC)`,
	`CREATE TABLE IF NOT EXISTS businesses (
	osm_id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL,
	address TEXT,
	quarter TEXT
)`,
	`CREATE TABLE IF NOT EXISTS livability_metrics (
	date DATE PRIMARY KEY,
	avg_rent_price DOUBLE PRECISION NOT NULL,
	avg_house_price DOUBLE PRECISION NOT NULL,
	cost_of_living_index DOUBLE PRECISION NOT NULL,
	transport_cost DOUBLE PRECISION NOT NULL,
	groceries_cost DOUBLE PRECISION NOT NULL
)`,
}

// Migrate creates the schema when it does not exist yet. Statements are
// individually idempotent, so rerunning is safe.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
