// Package api hosts the HTTP server, middleware, and REST handlers for
// read access to the ingested data. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /api/stats/... for unemployment series and sector breakdowns.
//   - GET /api/jobs and /api/jobs/map for the listing catalog.
//   - GET /api/businesses for the POI catalog.
//   - GET /api/livability/... for livability series.
package api
