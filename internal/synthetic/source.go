package synthetic

import (
	"context"
	"time"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Source adapts the generator to the series-source interface so it can sit at
// the end of the fallback chain. It generates from Start up to the current
// month and never fails.
type Source struct {
	gen   *Generator
	clock pulse.Clock
	start time.Time
}

// NewSource creates a Source generating monthly observations in
// [Start, clock.Now()].
func NewSource(gen *Generator, clock pulse.Clock, start time.Time) *Source {
	return &Source{gen: gen, clock: clock, start: start}
}

func (s *Source) Name() string { return "synthetic" }

// FetchSeries implements pulse.SeriesSource.
func (s *Source) FetchSeries(_ context.Context, territory string) ([]pulse.UnemploymentObservation, error) {
	return s.gen.Unemployment(territory, s.start, s.clock.Now()), nil
}
