package pulse

import "time"

// Sector is one of the fixed taxonomy values assigned to every job listing.
type Sector string

// Sector taxonomy. Unclassifiable titles map to SectorOther, never to "".
const (
	SectorIT        Sector = "IT"
	SectorFood      Sector = "Ristorazione"
	SectorRetail    Sector = "Retail"
	SectorLogistics Sector = "Logistica"
	SectorAdmin     Sector = "Amministrazione"
	SectorOther     Sector = "Altro"
)

// Age-band tags double as provenance markers: survey data carries the
// Eurostat 15-74 band, synthetic data the 15-64 band used by the generator.
const (
	AgeBandSurvey    = "15-74"
	AgeBandSynthetic = "15-64"
)

// GenderTotal is the only gender breakdown the pipelines currently ingest.
const GenderTotal = "T"

// UnemploymentObservation is one monthly data point for a territory.
// Natural key: (Territory, Date, AgeGroup, Gender).
type UnemploymentObservation struct {
	Territory string    `json:"territory"`
	Date      time.Time `json:"date"` // first day of month, UTC
	Rate      float64   `json:"rate"` // percent, in [0,100]
	AgeGroup  string    `json:"age_group"`
	Gender    string    `json:"gender"`
}

// Key returns the natural key of the observation with the date truncated to
// month granularity, suitable for map-based grouping.
func (o UnemploymentObservation) Key() ObservationKey {
	return ObservationKey{
		Territory: o.Territory,
		Date:      MonthOf(o.Date),
		AgeGroup:  o.AgeGroup,
		Gender:    o.Gender,
	}
}

// ObservationKey is the comparable natural key of an UnemploymentObservation.
type ObservationKey struct {
	Territory string
	Date      time.Time
	AgeGroup  string
	Gender    string
}

// MonthOf truncates t to the first instant of its calendar month in UTC.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// JobListing is a scraped job advert. Natural key: URL.
type JobListing struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	PostedDate  string    `json:"posted_date"`
	Sector      Sector    `json:"sector"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Business is a point of interest from the geospatial source.
// Natural key: OSMID. Lat/Lon are required; records without coordinates are
// dropped before they reach the store.
type Business struct {
	OSMID   int64   `json:"osm_id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address *string `json:"address,omitempty"`
	Quarter *string `json:"quarter,omitempty"`
}

// LivabilityObservation is one monthly livability data point.
// Natural key: Date.
type LivabilityObservation struct {
	Date              time.Time `json:"date"`
	AvgRentPrice      float64   `json:"avg_rent_price"`
	AvgHousePrice     float64   `json:"avg_house_price"`
	CostOfLivingIndex float64   `json:"cost_of_living_index"`
	TransportCost     float64   `json:"transport_cost"`
	GroceriesCost     float64   `json:"groceries_cost"`
}

// SectorCount is one row of a grouped sector breakdown.
type SectorCount struct {
	Sector Sector `json:"sector"`
	Count  int64  `json:"count"`
}

// Coordinates is a resolved geographic point.
type Coordinates struct {
	Lat float64
	Lon float64
}

// RunSummary describes the outcome of one pipeline run. It is logged and,
// when a publisher is configured, pushed as a completion event.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Source     string    `json:"source,omitempty"`
	Attempted  int       `json:"attempted"`
	Imported   int       `json:"imported"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ErrorText  string    `json:"error_text,omitempty"`
}
