// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordsImportedTotal *prometheus.CounterVec
	fetchFailuresTotal   *prometheus.CounterVec
	upsertFailuresTotal  *prometheus.CounterVec
	geocodeRequestsTotal *prometheus.CounterVec
	pipelineRunsTotal    *prometheus.CounterVec
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		recordsImportedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_records_imported_total",
				Help: "Records upserted by the ingestion pipelines, labeled by pipeline and source.",
			},
			[]string{"pipeline", "source"},
		)
		fetchFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_fetch_failures_total",
				Help: "Soft failures talking to external sources, labeled by source.",
			},
			[]string{"source"},
		)
		upsertFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_upsert_failures_total",
				Help: "Individual upserts that failed and were skipped, labeled by entity.",
			},
			[]string{"entity"},
		)
		geocodeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_geocode_requests_total",
				Help: "Geocoding lookups, labeled by outcome (resolved, unresolved).",
			},
			[]string{"outcome"},
		)
		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_pipeline_runs_total",
				Help: "Pipeline runs, labeled by pipeline and status.",
			},
			[]string{"pipeline", "status"},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency, labeled by method.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method"},
		)
	})
}

// RecordsImported adds n to the imported-records counter.
func RecordsImported(pipeline, source string, n int) {
	if recordsImportedTotal == nil || n <= 0 {
		return
	}
	recordsImportedTotal.WithLabelValues(pipeline, source).Add(float64(n))
}

// FetchFailure counts one soft source failure.
func FetchFailure(source string) {
	if fetchFailuresTotal == nil {
		return
	}
	fetchFailuresTotal.WithLabelValues(source).Inc()
}

// UpsertFailure counts one skipped upsert.
func UpsertFailure(entity string) {
	if upsertFailuresTotal == nil {
		return
	}
	upsertFailuresTotal.WithLabelValues(entity).Inc()
}

// GeocodeRequest counts one geocoding lookup by outcome.
func GeocodeRequest(resolved bool) {
	if geocodeRequestsTotal == nil {
		return
	}
	outcome := "unresolved"
	if resolved {
		outcome = "resolved"
	}
	geocodeRequestsTotal.WithLabelValues(outcome).Inc()
}

// PipelineRun counts one completed pipeline run by status.
func PipelineRun(pipeline, status string) {
	if pipelineRunsTotal == nil {
		return
	}
	pipelineRunsTotal.WithLabelValues(pipeline, status).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP handlers with request counters and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if httpRequestsTotal != nil {
			httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		}
		if httpRequestDuration != nil {
			httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
