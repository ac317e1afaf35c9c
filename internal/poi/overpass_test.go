package poi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/napolipulse/pulse-ingest/internal/metrics"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fakeBusinessStore struct {
	mu         sync.Mutex
	businesses map[int64]pulse.Business
	failIDs    map[int64]bool
}

func newFakeBusinessStore() *fakeBusinessStore {
	return &fakeBusinessStore{
		businesses: map[int64]pulse.Business{},
		failIDs:    map[int64]bool{},
	}
}

func (s *fakeBusinessStore) UpsertBusiness(_ context.Context, b pulse.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[b.OSMID] {
		return errors.New("constraint violation")
	}
	s.businesses[b.OSMID] = b
	return nil
}

func ptr(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("direct coordinates", func(t *testing.T) {
		t.Parallel()
		b, ok := Normalize(1, ptr(40.85), ptr(14.25), nil, map[string]string{"name": "Caffè Gambrinus", "amenity": "cafe"})
		require.True(t, ok)
		require.Equal(t, "Caffè Gambrinus", b.Name)
		require.Equal(t, "cafe", b.Type)
		require.InDelta(t, 40.85, b.Lat, 1e-9)
	})

	t.Run("centroid fallback", func(t *testing.T) {
		t.Parallel()
		b, ok := Normalize(1, nil, nil, &pulse.Coordinates{Lat: 10, Lon: 20}, nil)
		require.True(t, ok)
		require.InDelta(t, 10.0, b.Lat, 1e-9)
		require.InDelta(t, 20.0, b.Lon, 1e-9)
	})

	t.Run("no coordinates dropped", func(t *testing.T) {
		t.Parallel()
		_, ok := Normalize(2, nil, nil, nil, map[string]string{"name": "ghost"})
		require.False(t, ok)
	})

	t.Run("tag priority office over shop over amenity", func(t *testing.T) {
		t.Parallel()
		b, _ := Normalize(1, ptr(1), ptr(1), nil, map[string]string{"office": "it", "shop": "bakery", "amenity": "cafe"})
		require.Equal(t, "it", b.Type)
		b, _ = Normalize(1, ptr(1), ptr(1), nil, map[string]string{"shop": "bakery", "amenity": "cafe"})
		require.Equal(t, "bakery", b.Type)
		b, _ = Normalize(1, ptr(1), ptr(1), nil, map[string]string{})
		require.Equal(t, "other", b.Type)
		require.Equal(t, "Unnamed", b.Name)
	})

	t.Run("optional address fields", func(t *testing.T) {
		t.Parallel()
		b, _ := Normalize(1, ptr(1), ptr(1), nil, map[string]string{"addr:street": "Via Toledo", "addr:suburb": "Centro Storico"})
		require.NotNil(t, b.Address)
		require.Equal(t, "Via Toledo", *b.Address)
		require.NotNil(t, b.Quarter)
		require.Equal(t, "Centro Storico", *b.Quarter)
		b, _ = Normalize(1, ptr(1), ptr(1), nil, nil)
		require.Nil(t, b.Address)
		require.Nil(t, b.Quarter)
	})
}

func TestImport_CentroidRetainedMissingDropped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Contains(t, r.PostForm.Get("data"), `area["name"="Napoli"]`)
		_, _ = w.Write([]byte(`{"elements": [
			{"id": 1, "center": {"lat": 10, "lon": 20}, "tags": {"shop": "books"}},
			{"id": 2}
		]}`))
	}))
	t.Cleanup(srv.Close)

	store := newFakeBusinessStore()
	f := New(Config{URL: srv.URL, AreaName: "Napoli"}, store, nil)

	count, err := f.Import(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, store.businesses, 1)
	require.InDelta(t, 10.0, store.businesses[1].Lat, 1e-9)
}

func TestImport_UpsertFailureContinuesBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"elements": [
			{"id": 1, "lat": 1, "lon": 1, "tags": {}},
			{"id": 2, "lat": 2, "lon": 2, "tags": {}},
			{"id": 3, "lat": 3, "lon": 3, "tags": {}}
		]}`))
	}))
	t.Cleanup(srv.Close)

	store := newFakeBusinessStore()
	store.failIDs[2] = true
	f := New(Config{URL: srv.URL, AreaName: "Napoli"}, store, nil)

	count, err := f.Import(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, store.businesses, 2)
}

func TestImport_SourceFailures(t *testing.T) {
	t.Parallel()

	t.Run("non-200", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusGatewayTimeout)
		}))
		t.Cleanup(srv.Close)
		count, err := New(Config{URL: srv.URL, AreaName: "Napoli"}, newFakeBusinessStore(), nil).Import(context.Background())
		require.Error(t, err)
		require.Zero(t, count)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<osm>not json</osm>`))
		}))
		t.Cleanup(srv.Close)
		count, err := New(Config{URL: srv.URL, AreaName: "Napoli"}, newFakeBusinessStore(), nil).Import(context.Background())
		require.Error(t, err)
		require.Zero(t, count)
	})
}
