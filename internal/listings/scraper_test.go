package listings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/napolipulse/pulse-ingest/internal/metrics"
	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type zeroDelays struct{}

func (zeroDelays) GeocodePause() time.Duration { return 0 }
func (zeroDelays) SettlePause() time.Duration  { return 0 }
func (zeroDelays) KeywordPause() time.Duration { return 0 }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeExtractor struct {
	results map[string][]Candidate
	raw     map[string][]byte
	errs    map[string]error
	settled int
}

func (f *fakeExtractor) Extract(ctx context.Context, keyword string, settle SettleFunc) ([]Candidate, []byte, error) {
	if settle != nil {
		if err := settle(ctx); err != nil {
			return nil, nil, err
		}
		f.settled++
	}
	if err := f.errs[keyword]; err != nil {
		return nil, nil, err
	}
	return f.results[keyword], f.raw[keyword], nil
}

type fakeGeocoder struct {
	known map[string]pulse.Coordinates
	calls []string
}

func (g *fakeGeocoder) Resolve(_ context.Context, address, _ string) (pulse.Coordinates, bool) {
	g.calls = append(g.calls, address)
	coords, ok := g.known[address]
	return coords, ok
}

type fakeListingStore struct {
	listings map[string]pulse.JobListing
	failURLs map[string]bool
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{
		listings: map[string]pulse.JobListing{},
		failURLs: map[string]bool{},
	}
}

func (s *fakeListingStore) UpsertListing(_ context.Context, l pulse.JobListing) error {
	if s.failURLs[l.URL] {
		return errors.New("constraint violation")
	}
	s.listings[l.URL] = l
	return nil
}

type fakeBlobStore struct {
	paths []string
}

func (b *fakeBlobStore) PutObject(_ context.Context, path, _ string, _ []byte) (string, error) {
	b.paths = append(b.paths, path)
	return "mem://" + path, nil
}

func candidate(n string) Candidate {
	return Candidate{Title: "Cameriere " + n, Company: "Trattoria " + n, URL: "https://jobs.example/" + n}
}

func newTestScraper(cfg Config, ex Extractor, geo pulse.Geocoder, store pulse.ListingWriter, blobs pulse.BlobStore) *Scraper {
	return NewScraper(cfg, ex, geo, store, blobs, zeroDelays{}, fixedClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}, nil)
}

func TestRun_KeywordFailureContinues(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		results: map[string][]Candidate{
			"sviluppatore": {candidate("a"), candidate("b"), candidate("c")},
			"commesso":     {candidate("d"), candidate("e")},
		},
		errs: map[string]error{"cameriere": errors.New("navigation timeout")},
	}
	store := newFakeListingStore()
	s := newTestScraper(Config{Keywords: []string{"sviluppatore", "cameriere", "commesso"}}, ex, nil, store, nil)

	attempted, total, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, attempted)
	require.Equal(t, 5, total)
	require.Len(t, store.listings, 5)
	require.Equal(t, 3, ex.settled)
}

func TestRun_FiltersAndCaps(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		results: map[string][]Candidate{
			"barista": {
				{URL: "https://jobs.example/empty"}, // no title, no company
				candidate("1"),
				candidate("2"),
				candidate("3"),
			},
		},
	}
	store := newFakeListingStore()
	s := newTestScraper(Config{Keywords: []string{"barista"}, MaxPerKeyword: 2}, ex, nil, store, nil)

	_, total, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Contains(t, store.listings, "https://jobs.example/1")
	require.Contains(t, store.listings, "https://jobs.example/2")
}

func TestRun_GeocodesAndClassifies(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		results: map[string][]Candidate{
			"sviluppatore": {
				{Title: "Sviluppatore backend", Company: "Acme", Location: "Napoli, NA", URL: "https://jobs.example/dev"},
				{Title: "Cameriere di sala", Company: "Trattoria", URL: "https://jobs.example/waiter"},
			},
		},
	}
	geo := &fakeGeocoder{known: map[string]pulse.Coordinates{"Napoli, NA": {Lat: 40.85, Lon: 14.27}}}
	store := newFakeListingStore()
	s := newTestScraper(Config{Keywords: []string{"sviluppatore"}, RegionHint: "Campania"}, ex, geo, store, nil)

	_, total, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, total)

	dev := store.listings["https://jobs.example/dev"]
	require.Equal(t, pulse.SectorIT, dev.Sector)
	require.NotNil(t, dev.Lat)
	require.InDelta(t, 40.85, *dev.Lat, 1e-9)

	waiter := store.listings["https://jobs.example/waiter"]
	require.Equal(t, pulse.SectorFood, waiter.Sector)
	require.Nil(t, waiter.Lat)

	// No location means no geocoding call at all.
	require.Equal(t, []string{"Napoli, NA"}, geo.calls)
}

func TestRun_SectorComesFromTitleAlone(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		results: map[string][]Candidate{
			"cameriere": {{
				Title:       "Cameriere di sala",
				Company:     "Trattoria del Porto",
				Description: "Turni serali, uso del software gestionale di cassa",
				URL:         "https://jobs.example/waiter",
			}},
		},
	}
	store := newFakeListingStore()
	s := newTestScraper(Config{Keywords: []string{"cameriere"}}, ex, nil, store, nil)

	_, _, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, pulse.SectorFood, store.listings["https://jobs.example/waiter"].Sector)
}

func TestRun_UpsertFailureSkipsRecord(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		results: map[string][]Candidate{"commesso": {candidate("x"), candidate("y"), candidate("z")}},
	}
	store := newFakeListingStore()
	store.failURLs["https://jobs.example/y"] = true
	s := newTestScraper(Config{Keywords: []string{"commesso"}}, ex, nil, store, nil)

	attempted, total, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, attempted)
	require.Equal(t, 2, total)
}

func TestRun_SkipsCandidatesWithoutURL(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		results: map[string][]Candidate{"barista": {
			{Title: "Barista", Company: "Bar Nilo"},
			candidate("ok"),
		}},
	}
	store := newFakeListingStore()
	s := newTestScraper(Config{Keywords: []string{"barista"}}, ex, nil, store, nil)

	attempted, total, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, attempted)
	require.Equal(t, 1, total)
}

func TestRun_ArchivesRenderedPages(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		results: map[string][]Candidate{"sviluppatore": {candidate("a")}},
		raw:     map[string][]byte{"sviluppatore": []byte("<html>results</html>")},
	}
	blobs := &fakeBlobStore{}
	s := newTestScraper(Config{Keywords: []string{"sviluppatore"}}, ex, nil, newFakeListingStore(), blobs)

	_, _, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"listings/2024-05-01/sviluppatore.html"}, blobs.paths)
}

func TestRun_CanceledContextStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &fakeExtractor{results: map[string][]Candidate{"a": {candidate("1")}}}
	s := NewScraper(Config{Keywords: []string{"a", "b"}}, ex, nil, newFakeListingStore(), nil,
		NewRandomDelays(nil), fixedClock{t: time.Now()}, nil)

	_, _, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFilterCandidates(t *testing.T) {
	t.Parallel()

	in := []Candidate{
		{Title: "only title"},
		{Company: "only company"},
		{},
		{Title: "t", Company: "c"},
	}
	out := FilterCandidates(in, 10)
	require.Len(t, out, 3)

	out = FilterCandidates(in, 2)
	require.Len(t, out, 2)
}
