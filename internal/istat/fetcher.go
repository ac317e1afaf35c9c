// Package istat attempts the authoritative ISTAT SDMX source. The endpoint
// is unstable and the fetcher is intentionally minimal: it occupies the
// highest-priority slot of the fallback chain and reports an error on any
// failure or unrecognized payload shape, letting the engine fall through.
package istat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Config controls the ISTAT fetcher.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Fetcher implements pulse.SeriesSource against the ISTAT SDMX REST API.
type Fetcher struct {
	cfg    Config
	client *http.Client
	clock  pulse.Clock
	logger *zap.Logger
}

// New creates a Fetcher. A zero Timeout defaults to 30s.
func New(cfg Config, clock pulse.Clock, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		clock:  clock,
		logger: logger,
	}
}

// Name identifies the source in run summaries and logs.
func (f *Fetcher) Name() string { return "istat" }

type sdmxPayload struct {
	DataSets []struct {
		Observations map[string][]any `json:"observations"`
	} `json:"dataSets"`
}

// FetchSeries requests the dataset and returns the latest observation as a
// single-element series dated at the current month. Whatever comes back that
// does not carry the expected observations key is an error.
func (f *Fetcher) FetchSeries(ctx context.Context, territory string) ([]pulse.UnemploymentObservation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build istat request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("istat request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("istat status %d", resp.StatusCode)
	}

	var p sdmxPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode istat payload: %w", err)
	}
	if len(p.DataSets) == 0 || len(p.DataSets[0].Observations) == 0 {
		return nil, fmt.Errorf("istat payload has no observations")
	}

	// SDMX observation keys are positional; the highest key holds the most
	// recent period. Take its value as the latest monthly rate.
	keys := make([]string, 0, len(p.DataSets[0].Observations))
	for k := range p.DataSets[0].Observations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i := len(keys) - 1; i >= 0; i-- {
		values := p.DataSets[0].Observations[keys[i]]
		if len(values) == 0 {
			continue
		}
		rate, ok := values[0].(float64)
		if !ok || rate < 0 || rate > 100 {
			continue
		}
		obs := pulse.UnemploymentObservation{
			Territory: territory,
			Date:      pulse.MonthOf(f.clock.Now()),
			Rate:      rate,
			AgeGroup:  pulse.AgeBandSurvey,
			Gender:    pulse.GenderTotal,
		}
		f.logger.Debug("istat latest observation", zap.Float64("rate", rate), zap.Time("date", obs.Date))
		return []pulse.UnemploymentObservation{obs}, nil
	}
	return nil, fmt.Errorf("istat payload has no numeric observation values")
}
