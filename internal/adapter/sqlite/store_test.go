package sqlite

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "trips.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func trip(name string, temp *float64) domain.EnrichedTrip {
	dep := time.Date(2018, 6, 1, 8, 0, 0, 0, time.UTC)
	return domain.EnrichedTrip{
		LocatedTrip: domain.LocatedTrip{
			Trip: domain.Trip{
				Departure:            &dep,
				DepartureStationID:   "1",
				DepartureStationName: name,
				ReturnStationID:      "2",
				ReturnStationName:    "B",
				DistanceM:            1000,
				DurationSec:          600,
				AvgSpeedKmh:          6,
			},
			DepartureCoordinates: &domain.Coordinates{Latitude: 60.1, Longitude: 24.9},
		},
		AirTemperatureDegC: temp,
	}
}

func TestStore_LoadReplacesYear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	assert.Equal(t, "sqlite", s.Name())

	warm := 15.5
	require.NoError(t, s.Load(ctx, 2018, []domain.EnrichedTrip{trip("a", &warm), trip("b", nil), trip("c", nil)}))
	require.NoError(t, s.Load(ctx, 2019, []domain.EnrichedTrip{trip("d", nil)}))
	require.NoError(t, s.Load(ctx, 2018, []domain.EnrichedTrip{trip("e", &warm)}))

	n, err := s.CountTrips(ctx, 2018)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountTrips(ctx, 2019)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_LoadNulls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tr := trip("a", nil)
	tr.Return = nil
	require.NoError(t, s.Load(ctx, 2018, []domain.EnrichedTrip{tr}))

	var (
		departure, ret sql.NullString
		depLon, retLon sql.NullFloat64
		temperature    sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT departure, return, departure_longitude, return_longitude, air_temperature_degc FROM trips WHERE year = 2018`,
	).Scan(&departure, &ret, &depLon, &retLon, &temperature)
	require.NoError(t, err)

	assert.Equal(t, "2018-06-01 08:00:00", departure.String)
	assert.False(t, ret.Valid)
	assert.Equal(t, 24.9, depLon.Float64)
	assert.False(t, retLon.Valid)
	assert.False(t, temperature.Valid)
}

func TestStore_LoadRecordsRun(t *testing.T) {
	s := openTestStore(t)
	s.clock = clockwork.NewFakeClockAt(time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC))
	ctx := domain.ContextWithRunID(context.Background(), "run-42")

	require.NoError(t, s.Load(ctx, 2018, []domain.EnrichedTrip{trip("a", nil), trip("b", nil)}))

	var year, trips int
	var loadedAt string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT year, trips, loaded_at FROM runs WHERE run_id = ?`, "run-42").Scan(&year, &trips, &loadedAt))
	assert.Equal(t, 2018, year)
	assert.Equal(t, 2, trips)
	assert.Equal(t, "2019-03-04T05:06:07Z", loadedAt)
}

func TestStore_LoadCancelledLeavesPreviousRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Load(context.Background(), 2018, []domain.EnrichedTrip{trip("a", nil)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Load(ctx, 2018, []domain.EnrichedTrip{trip("b", nil), trip("c", nil)}))

	n, err := s.CountTrips(context.Background(), 2018)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
