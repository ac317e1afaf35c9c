package synthetic

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

func napoliParams() Params {
	return Params{
		StartRate:      16.2,
		MinRate:        13.5,
		MaxRate:        17.0,
		MonthlyDrift:   -0.02,
		NoiseBand:      0.15,
		RentStart:      11.5,
		HouseStart:     2800,
		CostIndexStart: 95,
		TransportBase:  35,
		GroceriesBase:  280,
	}
}

func TestUnemployment_OnePerMonthInclusive(t *testing.T) {
	t.Parallel()

	g := New(napoliParams(), rand.New(rand.NewSource(1)))
	start := time.Date(2022, time.January, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2022, time.March, 2, 0, 0, 0, 0, time.UTC)

	obs := g.Unemployment("Napoli", start, end)
	require.Len(t, obs, 3)
	require.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), obs[0].Date)
	require.Equal(t, time.Date(2022, time.February, 1, 0, 0, 0, 0, time.UTC), obs[1].Date)
	require.Equal(t, time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC), obs[2].Date)
}

func TestUnemployment_ClampAndTags(t *testing.T) {
	t.Parallel()

	params := napoliParams()
	g := New(params, rand.New(rand.NewSource(42)))
	obs := g.Unemployment("Napoli", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, obs, 96)
	for _, o := range obs {
		require.GreaterOrEqual(t, o.Rate, params.MinRate)
		require.LessOrEqual(t, o.Rate, params.MaxRate)
		require.Equal(t, pulse.AgeBandSynthetic, o.AgeGroup)
		require.Equal(t, pulse.GenderTotal, o.Gender)
		require.Equal(t, "Napoli", o.Territory)
	}
}

func TestUnemployment_DeterministicForFixedSeed(t *testing.T) {
	t.Parallel()

	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	a := New(napoliParams(), rand.New(rand.NewSource(7))).Unemployment("Napoli", start, end)
	b := New(napoliParams(), rand.New(rand.NewSource(7))).Unemployment("Napoli", start, end)
	require.Equal(t, a, b)
}

func TestLivability_PositiveAndMonthly(t *testing.T) {
	t.Parallel()

	g := New(napoliParams(), rand.New(rand.NewSource(3)))
	obs := g.Livability(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, obs, 35)
	for _, o := range obs {
		require.Positive(t, o.AvgRentPrice)
		require.Positive(t, o.AvgHousePrice)
		require.Positive(t, o.CostOfLivingIndex)
		require.Positive(t, o.TransportCost)
		require.Positive(t, o.GroceriesCost)
	}
}
