package istat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestFetcher(t *testing.T, body string, status int) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	clock := fixedClock{now: time.Date(2024, time.June, 17, 9, 30, 0, 0, time.UTC)}
	return New(Config{URL: srv.URL}, clock, nil)
}

func TestFetchSeries_LatestObservation(t *testing.T) {
	t.Parallel()

	body := `{"dataSets":[{"observations":{
		"0:0:0:0:0": [15.4, null],
		"0:0:0:0:1": [15.1, null],
		"0:0:0:0:2": [14.8, null]
	}}]}`
	f := newTestFetcher(t, body, http.StatusOK)

	obs, err := f.FetchSeries(context.Background(), "Napoli")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	require.InDelta(t, 14.8, obs[0].Rate, 1e-9)
	require.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), obs[0].Date)
	require.Equal(t, "Napoli", obs[0].Territory)
	require.Equal(t, pulse.AgeBandSurvey, obs[0].AgeGroup)
}

func TestFetchSeries_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"non-200", "", http.StatusServiceUnavailable},
		{"missing dataSets", `{"structure": {}}`, http.StatusOK},
		{"empty observations", `{"dataSets":[{"observations":{}}]}`, http.StatusOK},
		{"non-numeric values", `{"dataSets":[{"observations":{"0": ["n/a"]}}]}`, http.StatusOK},
		{"not json", `<html>maintenance</html>`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFetcher(t, tc.body, tc.status)
			obs, err := f.FetchSeries(context.Background(), "Napoli")
			require.Error(t, err)
			require.Empty(t, obs)
		})
	}
}
