package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
	"github.com/napolipulse/pulse-ingest/internal/reconcile"
)

const (
	defaultTrendMonths   = 24
	maxTrendMonths       = 120
	defaultWindowDays    = 30
	maxWindowDays        = 365
	defaultListLimit     = 50
	maxListLimit         = 500
	defaultMapLimit      = 200
	maxMapLimit          = 500
	defaultSectorLimit   = 10
	defaultBusinessLimit = 200
	maxBusinessLimit     = 500
)

// Handler exposes the read-only endpoints over the store.
type Handler struct {
	store     pulse.Store
	territory string
	clock     pulse.Clock
	timeout   time.Duration
	logger    *zap.Logger
}

// UnemploymentTrend handles GET /api/stats/unemployment/trend?months=.
// Months with both survey and synthetic observations collapse to the survey
// value.
func (h *Handler) UnemploymentTrend(w http.ResponseWriter, r *http.Request) {
	months, err := parseBounded(r, "months", defaultTrendMonths, maxTrendMonths)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	since := pulse.MonthOf(h.clock.Now()).AddDate(0, -months, 0)
	series, err := h.store.UnemploymentSeries(ctx, h.territory, since)
	if err != nil {
		h.logger.Error("unemployment trend query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load unemployment trend")
		return
	}
	merged := reconcile.PreferAuthoritative(series)
	writeJSON(w, http.StatusOK, map[string]any{
		"territory": h.territory,
		"trend":     merged,
	})
}

// UnemploymentCurrent handles GET /api/stats/unemployment/current.
func (h *Handler) UnemploymentCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	obs, found, err := h.store.LatestUnemployment(ctx, h.territory)
	if err != nil {
		h.logger.Error("latest unemployment query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load latest unemployment")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no unemployment data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"current": obs})
}

// Sectors handles GET /api/stats/sectors?days=&limit=.
func (h *Handler) Sectors(w http.ResponseWriter, r *http.Request) {
	days, err := parseBounded(r, "days", defaultWindowDays, maxWindowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseBounded(r, "limit", defaultSectorLimit, defaultSectorLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	since := h.clock.Now().AddDate(0, 0, -days)
	breakdown, err := h.store.SectorBreakdown(ctx, since, limit)
	if err != nil {
		h.logger.Error("sector breakdown query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load sector breakdown")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sectors": breakdown})
}

// ListJobs handles GET /api/jobs?sector=&days=&limit=&offset=.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	days, err := parseBounded(r, "days", defaultWindowDays, maxWindowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseBounded(r, "limit", defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOffset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sector := pulse.Sector(strings.TrimSpace(r.URL.Query().Get("sector")))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	since := h.clock.Now().AddDate(0, 0, -days)
	listings, err := h.store.ListListings(ctx, sector, since, limit, offset)
	if err != nil {
		h.logger.Error("list listings query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	total, err := h.store.CountListings(ctx, sector, since)
	if err != nil {
		h.logger.Error("count listings query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count jobs")
		return
	}
	if listings == nil {
		listings = []pulse.JobListing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":   listings,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// MapJobs handles GET /api/jobs/map?days=&limit=. Only coordinate-bearing
// listings are returned.
func (h *Handler) MapJobs(w http.ResponseWriter, r *http.Request) {
	days, err := parseBounded(r, "days", defaultWindowDays, maxWindowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseBounded(r, "limit", defaultMapLimit, maxMapLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	since := h.clock.Now().AddDate(0, 0, -days)
	listings, err := h.store.MapListings(ctx, since, limit)
	if err != nil {
		h.logger.Error("map listings query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load job map")
		return
	}
	if listings == nil {
		listings = []pulse.JobListing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": listings})
}

// ListBusinesses handles GET /api/businesses?limit=.
func (h *Handler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	limit, err := parseBounded(r, "limit", defaultBusinessLimit, maxBusinessLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	businesses, err := h.store.ListBusinesses(ctx, limit)
	if err != nil {
		h.logger.Error("list businesses query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list businesses")
		return
	}
	if businesses == nil {
		businesses = []pulse.Business{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"businesses": businesses})
}

// LivabilityCurrent handles GET /api/livability/current.
func (h *Handler) LivabilityCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	obs, found, err := h.store.LatestLivability(ctx)
	if err != nil {
		h.logger.Error("latest livability query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load livability")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no livability data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"current": obs})
}

// LivabilityTrend handles GET /api/livability/trend?months=.
func (h *Handler) LivabilityTrend(w http.ResponseWriter, r *http.Request) {
	months, err := parseBounded(r, "months", defaultTrendMonths, maxTrendMonths)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	since := pulse.MonthOf(h.clock.Now()).AddDate(0, -months, 0)
	series, err := h.store.LivabilitySeries(ctx, since)
	if err != nil {
		h.logger.Error("livability trend query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load livability trend")
		return
	}
	if series == nil {
		series = []pulse.LivabilityObservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trend": series})
}
