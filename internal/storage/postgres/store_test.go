package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestUpsertUnemploymentTruncatesDateToMonth(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	obs := pulse.UnemploymentObservation{
		Territory: "ITF3",
		Date:      time.Date(2024, 3, 17, 9, 30, 0, 0, time.UTC),
		Rate:      15.7,
		AgeGroup:  pulse.AgeBandSurvey,
		Gender:    pulse.GenderTotal,
	}

	mock.ExpectExec("INSERT INTO unemployment_stats").
		WithArgs("ITF3", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 15.7, pulse.AgeBandSurvey, pulse.GenderTotal).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertUnemployment(context.Background(), obs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertListing(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	lat, lon := 40.85, 14.27
	scraped := time.Unix(1700000000, 0).UTC()
	listing := pulse.JobListing{
		URL:         "https://jobs.example/dev",
		Title:       "Sviluppatore backend",
		Company:     "Acme",
		Location:    "Napoli, NA",
		Description: "Go e Postgres",
		PostedDate:  "recent",
		Sector:      pulse.SectorIT,
		Lat:         &lat,
		Lon:         &lon,
		ScrapedAt:   scraped,
	}

	mock.ExpectExec("INSERT INTO job_listings").
		WithArgs(listing.URL, listing.Title, listing.Company, listing.Location,
			listing.Description, listing.PostedDate, "IT", &lat, &lon, scraped).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertListing(context.Background(), listing))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertListingRequiresURL(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	require.Error(t, store.UpsertListing(context.Background(), pulse.JobListing{Title: "no url"}))
}

func TestUpsertBusinessAndLivability(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	street := "Via Toledo"
	mock.ExpectExec("INSERT INTO businesses").
		WithArgs(int64(42), "Caffè Gambrinus", "cafe", 40.83, 14.24, &street, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.UpsertBusiness(context.Background(), pulse.Business{
		OSMID: 42, Name: "Caffè Gambrinus", Type: "cafe", Lat: 40.83, Lon: 14.24, Address: &street,
	}))

	mock.ExpectExec("INSERT INTO livability_metrics").
		WithArgs(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 13.1, 2650.0, 67.2, 35.5, 262.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.UpsertLivability(context.Background(), pulse.LivabilityObservation{
		Date:              time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
		AvgRentPrice:      13.1,
		AvgHousePrice:     2650,
		CostOfLivingIndex: 67.2,
		TransportCost:     35.5,
		GroceriesCost:     262,
	}))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnemploymentSeries(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT territory, date, rate, age_group, gender").
		WithArgs("ITF3", since, pulse.GenderTotal).
		WillReturnRows(pgxmock.NewRows([]string{"territory", "date", "rate", "age_group", "gender"}).
			AddRow("ITF3", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 16.0, pulse.AgeBandSurvey, pulse.GenderTotal).
			AddRow("ITF3", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 15.8, pulse.AgeBandSurvey, pulse.GenderTotal))

	series, err := store.UnemploymentSeries(context.Background(), "ITF3", since)
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, 16.0, series[0].Rate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestUnemployment(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		store, mock := newMockStore(t)
		// The survey band outranks the synthetic one within the same month.
		mock.ExpectQuery(`ORDER BY date DESC, \(age_group <> \$3\) DESC`).
			WithArgs("ITF3", pulse.GenderTotal, pulse.AgeBandSynthetic).
			WillReturnRows(pgxmock.NewRows([]string{"territory", "date", "rate", "age_group", "gender"}).
				AddRow("ITF3", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 15.6, pulse.AgeBandSurvey, pulse.GenderTotal))

		obs, found, err := store.LatestUnemployment(context.Background(), "ITF3")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, 15.6, obs.Rate)
	})

	t.Run("empty table", func(t *testing.T) {
		t.Parallel()
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT territory, date, rate, age_group, gender").
			WithArgs("ITF3", pulse.GenderTotal, pulse.AgeBandSynthetic).
			WillReturnError(pgx.ErrNoRows)

		_, found, err := store.LatestUnemployment(context.Background(), "ITF3")
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestSectorBreakdown(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT sector, COUNT").
		WithArgs(since, 10).
		WillReturnRows(pgxmock.NewRows([]string{"sector", "n"}).
			AddRow(pulse.SectorFood, int64(12)).
			AddRow(pulse.SectorIT, int64(5)))

	breakdown, err := store.SectorBreakdown(context.Background(), since, 10)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	require.Equal(t, pulse.SectorFood, breakdown[0].Sector)
	require.Equal(t, int64(12), breakdown[0].Count)
}

func TestMigrateAppliesAllStatements(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
