// Package geocode resolves free-text addresses via the Nominatim search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/metrics"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// MinInterval is the minimum spacing callers must keep between consecutive
// lookups under the Nominatim fair-use policy. The client does not enforce it;
// pacing is a scheduling contract on the caller (see pulse.DelayStrategy).
const MinInterval = 1200 * time.Millisecond

// Config controls the Nominatim client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client is a best-effort geocoder. Every failure mode collapses to an
// unresolved result; it never surfaces an error to callers.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Client. A zero Timeout defaults to 10s.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Resolve looks up the best-match coordinates for an address. The region hint
// is appended to the query to bias results toward the tracked territory.
func (c *Client) Resolve(ctx context.Context, address, regionHint string) (pulse.Coordinates, bool) {
	coords, ok := c.resolve(ctx, address, regionHint)
	metrics.GeocodeRequest(ok)
	return coords, ok
}

func (c *Client) resolve(ctx context.Context, address, regionHint string) (pulse.Coordinates, bool) {
	if address == "" {
		return pulse.Coordinates{}, false
	}
	query := address
	if regionHint != "" {
		query = fmt.Sprintf("%s, %s", address, regionHint)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		c.logger.Warn("geocode request build failed", zap.String("address", address), zap.Error(err))
		return pulse.Coordinates{}, false
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("geocode lookup failed", zap.String("address", address), zap.Error(err))
		return pulse.Coordinates{}, false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("geocode non-200", zap.String("address", address), zap.Int("status", resp.StatusCode))
		return pulse.Coordinates{}, false
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		c.logger.Warn("geocode decode failed", zap.String("address", address), zap.Error(err))
		return pulse.Coordinates{}, false
	}
	if len(results) == 0 {
		return pulse.Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return pulse.Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return pulse.Coordinates{}, false
	}
	return pulse.Coordinates{Lat: lat, Lon: lon}, true
}
