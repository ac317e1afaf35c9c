// Package eurostat fetches regional unemployment rates from the Eurostat
// dissemination API. Responses are JSON-stat style dimensional payloads: a
// flat value map addressed by a row-major offset computed across the ordered
// dimensions listed in the payload's id array.
package eurostat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Config controls the Eurostat fetcher.
type Config struct {
	BaseURL  string
	Dataset  string // e.g. "lfst_r_lfu3rt", regional unemployment rates
	GeoCode  string // NUTS-2 region, e.g. "ITF3"
	FromYear int
	Timeout  time.Duration
}

// Fetcher implements pulse.SeriesSource against Eurostat. Any network failure
// or malformed payload is reported as an error; the caller treats that the
// same as an empty series.
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Fetcher. A zero Timeout defaults to 30s.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Name identifies the source in run summaries and logs.
func (f *Fetcher) Name() string { return "eurostat" }

// The age bands accepted for the survey series, in preference order.
var wantedAgeBands = []string{"Y15-74", "Y_GE15"}

type payload struct {
	Value     map[string]float64   `json:"value"`
	ID        []string             `json:"id"`
	Size      []int                `json:"size"`
	Dimension map[string]dimension `json:"dimension"`
}

type dimension struct {
	Category struct {
		Index map[string]int `json:"index"`
	} `json:"category"`
}

// FetchSeries downloads the dataset and extracts the annual series for the
// configured region, expanding each annual value into twelve monthly
// observations tagged with the survey age band.
func (f *Fetcher) FetchSeries(ctx context.Context, territory string) ([]pulse.UnemploymentObservation, error) {
	url := fmt.Sprintf("%s/%s?format=JSON&lang=en", f.cfg.BaseURL, f.cfg.Dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build eurostat request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eurostat request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eurostat status %d", resp.StatusCode)
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode eurostat payload: %w", err)
	}

	return f.extract(p, territory)
}

func (f *Fetcher) extract(p payload, territory string) ([]pulse.UnemploymentObservation, error) {
	if len(p.Value) == 0 || len(p.ID) == 0 || len(p.Size) != len(p.ID) {
		return nil, fmt.Errorf("eurostat payload missing value/dimension structure")
	}

	sexIdx, err := categoryIndex(p, "sex", pulse.GenderTotal)
	if err != nil {
		return nil, err
	}
	geoIdx, err := categoryIndex(p, "geo", f.cfg.GeoCode)
	if err != nil {
		return nil, err
	}
	ageIdx := -1
	for _, band := range wantedAgeBands {
		if idx, bandErr := categoryIndex(p, "age", band); bandErr == nil {
			ageIdx = idx
			break
		}
	}
	if ageIdx < 0 {
		return nil, fmt.Errorf("eurostat payload has no usable age band (wanted %v)", wantedAgeBands)
	}
	timeDim, ok := p.Dimension["time"]
	if !ok || len(timeDim.Category.Index) == 0 {
		return nil, fmt.Errorf("eurostat payload missing time dimension")
	}

	years := make([]string, 0, len(timeDim.Category.Index))
	for year := range timeDim.Category.Index {
		if y, convErr := strconv.Atoi(year); convErr == nil && y >= f.cfg.FromYear {
			years = append(years, year)
		}
	}
	sort.Strings(years)

	var out []pulse.UnemploymentObservation
	for _, year := range years {
		indices := make([]int, len(p.ID))
		for i, dimID := range p.ID {
			switch dimID {
			case "sex":
				indices[i] = sexIdx
			case "age":
				indices[i] = ageIdx
			case "geo":
				indices[i] = geoIdx
			case "time":
				indices[i] = timeDim.Category.Index[year]
			default:
				// freq, isced11, unit: take the first category.
				indices[i] = 0
			}
		}

		value, present := p.Value[strconv.Itoa(flatOffset(p.Size, indices))]
		if !present || value < 0 || value > 100 {
			// Missing or implausible cell: no observation for that period.
			continue
		}

		y, _ := strconv.Atoi(year)
		for month := time.January; month <= time.December; month++ {
			out = append(out, pulse.UnemploymentObservation{
				Territory: territory,
				Date:      time.Date(y, month, 1, 0, 0, 0, 0, time.UTC),
				Rate:      value,
				AgeGroup:  pulse.AgeBandSurvey,
				Gender:    pulse.GenderTotal,
			})
		}
	}

	f.logger.Debug("eurostat series extracted",
		zap.String("geo", f.cfg.GeoCode),
		zap.Int("years", len(years)),
		zap.Int("observations", len(out)))
	return out, nil
}

// flatOffset computes the row-major offset into the flat value array: each
// dimension contributes its category index times the product of the sizes of
// the dimensions to its right.
func flatOffset(sizes, indices []int) int {
	offset := 0
	stride := 1
	for i := len(sizes) - 1; i >= 0; i-- {
		offset += indices[i] * stride
		stride *= sizes[i]
	}
	return offset
}

func categoryIndex(p payload, dimID, category string) (int, error) {
	dim, ok := p.Dimension[dimID]
	if !ok {
		return 0, fmt.Errorf("eurostat payload missing dimension %q", dimID)
	}
	idx, ok := dim.Category.Index[category]
	if !ok {
		return 0, fmt.Errorf("eurostat dimension %q has no category %q", dimID, category)
	}
	return idx, nil
}
