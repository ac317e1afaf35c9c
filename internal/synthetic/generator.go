// Package synthetic generates plausible monthly series for metrics with no
// reachable authoritative source. Output is explicitly lower-confidence: the
// unemployment series carries the synthetic age band so reconciliation can
// prefer real data landing on the same dates later.
package synthetic

import (
	"math"
	"math/rand"
	"time"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Params shape the generated series: a monotonic drift per month, a bounded
// uniform noise band, and a hard clamp keeping values in a realistic range.
type Params struct {
	StartRate    float64
	MinRate      float64
	MaxRate      float64
	MonthlyDrift float64
	NoiseBand    float64

	RentStart      float64
	HouseStart     float64
	CostIndexStart float64
	TransportBase  float64
	GroceriesBase  float64
}

// Generator produces synthetic series. It never fails.
type Generator struct {
	params Params
	rng    *rand.Rand
}

// New creates a Generator. A nil rng gets a time-seeded source; tests pass a
// fixed seed for reproducible output.
func New(params Params, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{params: params, rng: rng}
}

// Unemployment returns exactly one observation per calendar month in
// [start, end] inclusive for the territory, clamped to [MinRate, MaxRate].
func (g *Generator) Unemployment(territory string, start, end time.Time) []pulse.UnemploymentObservation {
	var out []pulse.UnemploymentObservation
	rate := g.params.StartRate
	for month := pulse.MonthOf(start); !month.After(pulse.MonthOf(end)); month = month.AddDate(0, 1, 0) {
		rate += g.params.MonthlyDrift + g.noise()
		rate = clamp(rate, g.params.MinRate, g.params.MaxRate)
		out = append(out, pulse.UnemploymentObservation{
			Territory: territory,
			Date:      month,
			Rate:      round2(rate),
			AgeGroup:  pulse.AgeBandSynthetic,
			Gender:    pulse.GenderTotal,
		})
	}
	return out
}

// Livability returns one observation per calendar month in [start, end]
// inclusive, with gradually drifting prices. All values stay positive.
func (g *Generator) Livability(start, end time.Time) []pulse.LivabilityObservation {
	var out []pulse.LivabilityObservation
	rent := g.params.RentStart
	house := g.params.HouseStart
	costIndex := g.params.CostIndexStart
	for month := pulse.MonthOf(start); !month.After(pulse.MonthOf(end)); month = month.AddDate(0, 1, 0) {
		rent = math.Max(1, rent+g.rng.Float64()*0.3-0.1)
		house = math.Max(100, house+g.rng.Float64()*50-20)
		costIndex = math.Max(1, costIndex+g.rng.Float64()*2-0.5)
		out = append(out, pulse.LivabilityObservation{
			Date:              month,
			AvgRentPrice:      round2(rent),
			AvgHousePrice:     math.Round(house),
			CostOfLivingIndex: round1(costIndex),
			TransportCost:     round2(g.params.TransportBase + g.rng.Float64()*5),
			GroceriesCost:     round2(g.params.GroceriesBase + g.rng.Float64()*40),
		})
	}
	return out
}

func (g *Generator) noise() float64 {
	band := g.params.NoiseBand
	if band <= 0 {
		return 0
	}
	return g.rng.Float64()*2*band - band
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
