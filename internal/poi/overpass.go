// Package poi imports points of interest from the Overpass API into the
// business catalog.
package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/metrics"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Config controls the Overpass fetcher.
type Config struct {
	URL        string
	AreaName   string // administrative area scoping the query, e.g. "Napoli"
	MaxResults int
	Timeout    time.Duration
}

// Fetcher runs one composite spatial query and bulk-upserts the normalized
// results. Partial success is the normal case: a record that fails to
// normalize or persist is skipped, never aborting the batch.
type Fetcher struct {
	cfg    Config
	client *http.Client
	store  pulse.BusinessWriter
	logger *zap.Logger
}

// New creates a Fetcher. A zero Timeout defaults to 120s (Overpass responses
// for a whole municipality are large).
func New(cfg Config, store pulse.BusinessWriter, logger *zap.Logger) *Fetcher {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		store:  store,
		logger: logger,
	}
}

type element struct {
	ID     int64    `json:"id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

// Import queries Overpass for the configured area and upserts each usable
// business by its OSM id. It returns the number of records imported.
func (f *Fetcher) Import(ctx context.Context) (int, error) {
	body := url.Values{"data": []string{f.query()}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, strings.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.FetchFailure("overpass")
		return 0, fmt.Errorf("overpass request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		metrics.FetchFailure("overpass")
		return 0, fmt.Errorf("overpass status %d", resp.StatusCode)
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.FetchFailure("overpass")
		return 0, fmt.Errorf("decode overpass payload: %w", err)
	}

	imported := 0
	for _, el := range payload.Elements {
		business, ok := Normalize(el.ID, el.Lat, el.Lon, centerOf(el), el.Tags)
		if !ok {
			continue
		}
		if err := f.store.UpsertBusiness(ctx, business); err != nil {
			metrics.UpsertFailure("business")
			f.logger.Warn("business upsert failed", zap.Int64("osm_id", business.OSMID), zap.Error(err))
			continue
		}
		imported++
	}

	f.logger.Info("overpass import finished",
		zap.String("area", f.cfg.AreaName),
		zap.Int("elements", len(payload.Elements)),
		zap.Int("imported", imported))
	return imported, nil
}

// typeTagPriority orders the tag keys consulted for the business type; the
// first non-empty value wins.
var typeTagPriority = []string{"office", "shop", "amenity"}

// Normalize turns a raw element into a Business. Coordinates come from the
// direct point or the computed centroid; an element with neither is dropped.
func Normalize(id int64, lat, lon *float64, center *pulse.Coordinates, tags map[string]string) (pulse.Business, bool) {
	var coords pulse.Coordinates
	switch {
	case lat != nil && lon != nil:
		coords = pulse.Coordinates{Lat: *lat, Lon: *lon}
	case center != nil:
		coords = *center
	default:
		return pulse.Business{}, false
	}

	name := tags["name"]
	if name == "" {
		name = "Unnamed"
	}

	businessType := "other"
	for _, key := range typeTagPriority {
		if v := tags[key]; v != "" {
			businessType = v
			break
		}
	}

	b := pulse.Business{
		OSMID: id,
		Name:  name,
		Type:  businessType,
		Lat:   coords.Lat,
		Lon:   coords.Lon,
	}
	if v := tags["addr:street"]; v != "" {
		b.Address = &v
	}
	if v := tags["addr:suburb"]; v != "" {
		b.Quarter = &v
	}
	return b, true
}

func centerOf(el element) *pulse.Coordinates {
	if el.Center == nil {
		return nil
	}
	return &pulse.Coordinates{Lat: el.Center.Lat, Lon: el.Center.Lon}
}

// query builds the composite Overpass QL statement: offices and shops (nodes
// and ways) plus a few amenity categories, scoped to the administrative area,
// capped at MaxResults with way centroids included.
func (f *Fetcher) query() string {
	return fmt.Sprintf(`
[out:json][timeout:%d];
area["name"=%q]["boundary"="administrative"]->.searchArea;
(
  node["office"](area.searchArea);
  way["office"](area.searchArea);
  node["shop"](area.searchArea);
  way["shop"](area.searchArea);
  node["amenity"="coworking_space"](area.searchArea);
  node["amenity"="restaurant"](area.searchArea);
  node["amenity"="cafe"](area.searchArea);
);
out center %d;
`, int(f.cfg.Timeout.Seconds()), f.cfg.AreaName, f.cfg.MaxResults)
}
