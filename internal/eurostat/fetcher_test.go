package eurostat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

func TestFlatOffset_RowMajor(t *testing.T) {
	t.Parallel()

	// 2x2x2 cube, value array of length 8: offset = i*4 + j*2 + k.
	sizes := []int{2, 2, 2}
	require.Equal(t, 0, flatOffset(sizes, []int{0, 0, 0}))
	require.Equal(t, 1, flatOffset(sizes, []int{0, 0, 1}))
	require.Equal(t, 2, flatOffset(sizes, []int{0, 1, 0}))
	require.Equal(t, 4, flatOffset(sizes, []int{1, 0, 0}))
	require.Equal(t, 7, flatOffset(sizes, []int{1, 1, 1}))

	// Mixed cardinalities.
	require.Equal(t, 1*12+2*4+3, flatOffset([]int{2, 3, 4}, []int{1, 2, 3}))
}

// fixturePayload builds a 4-dimension payload (sex, age, geo, time) with two
// categories per dimension, mirroring the shape of the real dataset with the
// leading total dimensions stripped.
func fixturePayload() string {
	// sizes [2,2,2,2]; wanted cell (sex=T:0, age=Y15-74:1, geo=ITF3:1, time=*)
	// offset(2020) = 0*8 + 1*4 + 1*2 + 0 = 6; offset(2021) = 7.
	return `{
		"id": ["sex", "age", "geo", "time"],
		"size": [2, 2, 2, 2],
		"dimension": {
			"sex":  {"category": {"index": {"T": 0, "F": 1}}},
			"age":  {"category": {"index": {"Y20-64": 0, "Y15-74": 1}}},
			"geo":  {"category": {"index": {"ITF1": 0, "ITF3": 1}}},
			"time": {"category": {"index": {"2020": 0, "2021": 1}}}
		},
		"value": {"6": 17.1, "7": 15.9}
	}`
}

func newTestFetcher(t *testing.T, body string, status int) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:  srv.URL,
		Dataset:  "lfst_r_lfu3rt",
		GeoCode:  "ITF3",
		FromYear: 2020,
	}, nil)
}

func TestFetchSeries_ExpandsAnnualToMonthly(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t, fixturePayload(), http.StatusOK)
	obs, err := f.FetchSeries(context.Background(), "Napoli")
	require.NoError(t, err)
	require.Len(t, obs, 24)

	require.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), obs[0].Date)
	require.Equal(t, time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC), obs[11].Date)
	for _, o := range obs[:12] {
		require.InDelta(t, 17.1, o.Rate, 1e-9)
	}
	for _, o := range obs[12:] {
		require.InDelta(t, 15.9, o.Rate, 1e-9)
	}
	for _, o := range obs {
		require.Equal(t, "Napoli", o.Territory)
		require.Equal(t, pulse.AgeBandSurvey, o.AgeGroup)
		require.Equal(t, pulse.GenderTotal, o.Gender)
	}
}

func TestFetchSeries_FromYearFilters(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fixturePayload()))
	}))
	t.Cleanup(srv.Close)
	f := New(Config{BaseURL: srv.URL, Dataset: "d", GeoCode: "ITF3", FromYear: 2021}, nil)

	obs, err := f.FetchSeries(context.Background(), "Napoli")
	require.NoError(t, err)
	require.Len(t, obs, 12)
	require.Equal(t, 2021, obs[0].Date.Year())
}

func TestFetchSeries_MissingCellSkipsPeriod(t *testing.T) {
	t.Parallel()

	body := `{
		"id": ["sex", "age", "geo", "time"],
		"size": [2, 2, 2, 2],
		"dimension": {
			"sex":  {"category": {"index": {"T": 0, "F": 1}}},
			"age":  {"category": {"index": {"Y15-74": 1, "Y20-64": 0}}},
			"geo":  {"category": {"index": {"ITF1": 0, "ITF3": 1}}},
			"time": {"category": {"index": {"2020": 0, "2021": 1}}}
		},
		"value": {"7": 15.9}
	}`
	f := newTestFetcher(t, body, http.StatusOK)
	obs, err := f.FetchSeries(context.Background(), "Napoli")
	require.NoError(t, err)
	require.Len(t, obs, 12) // 2020 cell absent, only 2021 expanded
	require.Equal(t, 2021, obs[0].Date.Year())
}

func TestFetchSeries_AgeBandFallback(t *testing.T) {
	t.Parallel()

	body := `{
		"id": ["sex", "age", "geo", "time"],
		"size": [2, 2, 2, 1],
		"dimension": {
			"sex":  {"category": {"index": {"T": 0, "F": 1}}},
			"age":  {"category": {"index": {"Y20-64": 0, "Y_GE15": 1}}},
			"geo":  {"category": {"index": {"ITF1": 0, "ITF3": 1}}},
			"time": {"category": {"index": {"2022": 0}}}
		},
		"value": {"3": 14.2}
	}`
	f := newTestFetcher(t, body, http.StatusOK)
	obs, err := f.FetchSeries(context.Background(), "Napoli")
	require.NoError(t, err)
	require.Len(t, obs, 12)
	require.InDelta(t, 14.2, obs[0].Rate, 1e-9)
}

func TestFetchSeries_SoftFailures(t *testing.T) {
	t.Parallel()

	t.Run("absent geography", func(t *testing.T) {
		t.Parallel()
		body := `{
			"id": ["sex", "age", "geo", "time"],
			"size": [2, 2, 1, 1],
			"dimension": {
				"sex":  {"category": {"index": {"T": 0}}},
				"age":  {"category": {"index": {"Y15-74": 0}}},
				"geo":  {"category": {"index": {"ITF1": 0}}},
				"time": {"category": {"index": {"2022": 0}}}
			},
			"value": {"0": 9.9}
		}`
		f := newTestFetcher(t, body, http.StatusOK)
		obs, err := f.FetchSeries(context.Background(), "Napoli")
		require.Error(t, err)
		require.Empty(t, obs)
	})

	t.Run("malformed top level", func(t *testing.T) {
		t.Parallel()
		f := newTestFetcher(t, `{"error": "dataset not found"}`, http.StatusOK)
		obs, err := f.FetchSeries(context.Background(), "Napoli")
		require.Error(t, err)
		require.Empty(t, obs)
	})

	t.Run("non-200", func(t *testing.T) {
		t.Parallel()
		f := newTestFetcher(t, "", http.StatusBadGateway)
		obs, err := f.FetchSeries(context.Background(), "Napoli")
		require.Error(t, err)
		require.Empty(t, obs)
	})
}
