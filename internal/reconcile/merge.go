package reconcile

import (
	"sort"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// PreferAuthoritative collapses observations that land on the same calendar
// month for the same territory and gender into a single point. Survey-band
// data wins over synthetic; among observations of equal provenance the later
// one in the input wins. The result is sorted by date ascending.
func PreferAuthoritative(observations []pulse.UnemploymentObservation) []pulse.UnemploymentObservation {
	type monthKey struct {
		territory string
		date      int64
		gender    string
	}

	best := make(map[monthKey]pulse.UnemploymentObservation, len(observations))
	for _, obs := range observations {
		key := monthKey{
			territory: obs.Territory,
			date:      pulse.MonthOf(obs.Date).Unix(),
			gender:    obs.Gender,
		}
		current, seen := best[key]
		if seen && authoritative(current) && !authoritative(obs) {
			continue
		}
		if seen && !authoritative(current) && authoritative(obs) {
			best[key] = obs
			continue
		}
		best[key] = obs
	}

	out := make([]pulse.UnemploymentObservation, 0, len(best))
	for _, obs := range best {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Territory < out[j].Territory
	})
	return out
}

func authoritative(obs pulse.UnemploymentObservation) bool {
	return obs.AgeGroup != pulse.AgeBandSynthetic
}
