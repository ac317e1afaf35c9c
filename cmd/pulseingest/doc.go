// Package main hosts the pulseingest service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and read-only
//     endpoints over the ingested data (unemployment series, listing catalog,
//     business catalog, livability series).
//   - Ingestion pipelines: internal/reconcile.Engine orchestrates four
//     pipelines. Unemployment walks a fallback chain (primary statistical
//     source, then the regional dissemination API, then a synthetic
//     generator) and persists the first non-empty series. Listings run
//     keyword searches through a headless browser (or a static fetcher),
//     classify and geocode each candidate. POIs run one composite Overpass
//     query. Livability seeds a synthetic monthly series.
//   - Persistence: every write is an upsert by the record's natural key, so
//     pipelines can re-run at any time. Postgres via pgx when a DSN is
//     configured, in-memory otherwise.
//   - Fanout: run summaries are published to Pub/Sub when a topic is
//     configured, and raw scraped pages can be archived to GCS, the local
//     filesystem, or memory.
//   - Configuration & plumbing: Viper populates config from file/env (PULSE_
//     prefix); zap provides structured logging; Prometheus metrics are served
//     on /metrics; robfig/cron drives scheduled runs when enabled.
//
// Operational notes:
//   - External sources are treated as unreliable: fetch failures and
//     malformed payloads are logged and counted, never fatal. A record that
//     fails to persist is skipped without aborting its batch.
//   - Scraping is deliberately slow: fixed spacing between geocoding calls
//     and randomized pauses between page loads and keyword searches.
//   - Run locally: go run ./cmd/pulseingest serve --config config.yaml, or
//     one-shot via the ingest and seed subcommands.
package main
