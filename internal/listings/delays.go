package listings

import (
	"math/rand"
	"time"

	"github.com/napolipulse/pulse-ingest/internal/geocode"
)

// RandomDelays is the production pacing strategy: fixed geocoding spacing per
// the Nominatim fair-use policy, randomized settle and keyword pauses to
// avoid tripping upstream anti-automation defenses.
type RandomDelays struct {
	rng *rand.Rand
}

// NewRandomDelays creates a RandomDelays. A nil rng gets a time-seeded source.
func NewRandomDelays(rng *rand.Rand) *RandomDelays {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomDelays{rng: rng}
}

// GeocodePause returns the minimum spacing between geocoding calls.
func (d *RandomDelays) GeocodePause() time.Duration {
	return geocode.MinInterval
}

// SettlePause returns a uniform sample in [2s, 4s).
func (d *RandomDelays) SettlePause() time.Duration {
	return 2*time.Second + time.Duration(d.rng.Int63n(int64(2*time.Second)))
}

// KeywordPause returns a uniform sample in [5s, 8s).
func (d *RandomDelays) KeywordPause() time.Duration {
	return 5*time.Second + time.Duration(d.rng.Int63n(int64(3*time.Second)))
}
