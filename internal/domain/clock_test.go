package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateYear(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	require.NoError(t, ValidateYear(2016))
	require.NoError(t, ValidateYear(2020))

	for _, y := range []int{2015, 2021, 0} {
		err := ValidateYear(y)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedYear)
		assert.True(t, IsFatal(err))
	}
}

func TestInputError(t *testing.T) {
	err := &InputError{Table: "weather", Path: "weather/2018.csv", Err: ErrMissingColumn}
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "weather input weather/2018.csv")

	assert.False(t, IsFatal(&DuplicateKeyError{Key: "A"}))
}

func TestSummary_CountNulls(t *testing.T) {
	c := &Coordinates{}
	s := Summary{DroppedService: 2, DroppedIncomplete: 3, InvalidDeparture: 1}
	s.CountNulls([]EnrichedTrip{
		{LocatedTrip: LocatedTrip{DepartureCoordinates: c, ReturnCoordinates: c}, AirTemperatureDegC: temp(1)},
		{LocatedTrip: LocatedTrip{DepartureCoordinates: c}},
	})

	assert.Equal(t, 2, s.TripsWritten)
	assert.Equal(t, 0, s.MissingDepartureCoords)
	assert.Equal(t, 1, s.MissingReturnCoords)
	assert.Equal(t, 1, s.MissingTemperature)
	assert.Equal(t, 5, s.Dropped())
	assert.Equal(t, 1, s.ParseWarnings())
}
