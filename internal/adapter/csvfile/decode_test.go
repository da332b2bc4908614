package csvfile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const legacyTrips = `Departure,Return,Departure station id,Departure station name,Return station id,Return station name,Covered distance (m),Duration (sec.)
2018-06-01T08:00:00,2018-06-01T08:10:00,094,Laajalahden aukio,100,Teljäntie,2043,500
2018-06-01T09:00:00,2018-06-01T09:05:00,082,Töölöntulli,113,Pasilan asema,,300
`

func TestDecodeTrips_LegacyHeader(t *testing.T) {
	trips, malformed, err := DecodeTrips(context.Background(), strings.NewReader(legacyTrips))
	require.NoError(t, err)

	assert.Equal(t, 0, malformed)
	require.Len(t, trips, 2)
	assert.Equal(t, domain.RawTrip{
		Departure:            "2018-06-01T08:00:00",
		Return:               "2018-06-01T08:10:00",
		DepartureStationID:   "094",
		DepartureStationName: "Laajalahden aukio",
		ReturnStationID:      "100",
		ReturnStationName:    "Teljäntie",
		DistanceM:            "2043",
		DurationSec:          "500",
	}, trips[0])
	assert.Empty(t, trips[1].DistanceM)
}

func TestDecodeTrips_AlternateHeaderWithBOM(t *testing.T) {
	in := "\xEF\xBB\xBFreturn,departure,departure_id,departure_name,return_id,return_name,distance (m),duration (sec),extra\n" +
		"2020-05-01 10:10:00,2020-05-01 10:00:00,1,Kaivopuisto,2,Laivasillankatu,900,600,x\n"

	trips, _, err := DecodeTrips(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, trips, 1)
	assert.Equal(t, "2020-05-01 10:00:00", trips[0].Departure)
	assert.Equal(t, "2020-05-01 10:10:00", trips[0].Return)
	assert.Equal(t, "900", trips[0].DistanceM)
}

func TestDecodeTrips_MissingColumns(t *testing.T) {
	in := "Departure,Return,Departure station name,Return station name\n"

	_, _, err := DecodeTrips(context.Background(), strings.NewReader(in))
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrMissingColumn)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 4)
	assert.Contains(t, err.Error(), `"departure station id"`)
	assert.Contains(t, err.Error(), `"duration (sec.)"`)
}

func TestDecodeTrips_EmptyInput(t *testing.T) {
	_, _, err := DecodeTrips(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestDecodeTrips_MalformedRowsCounted(t *testing.T) {
	in := "departure,return,departure_id,departure_name,return_id,return_name,distance (m),duration (sec.)\n" +
		"a,b,1,bro\"ken,2,c,1,1\n" +
		"2018-06-01 08:00:00,2018-06-01 08:10:00,1,A,2,B,100,60\n"

	trips, malformed, err := DecodeTrips(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 1, malformed)
	require.Len(t, trips, 1)
	assert.Equal(t, "A", trips[0].DepartureStationName)
}

func TestDecodeTrips_UnterminatedQuoteSpoilsOneLine(t *testing.T) {
	in := "departure,return,departure_id,departure_name,return_id,return_name,distance (m),duration (sec.)\n" +
		"2018-06-01 07:00:00,2018-06-01 07:05:00,1,\"A,2,B,1000,300\n" +
		"2018-06-01 08:00:00,2018-06-01 08:10:00,1,A,2,B,100,60\n" +
		"\n" +
		"2018-06-01 09:00:00,2018-06-01 09:10:00,3,C,4,D,200,120\r\n" +
		"2018-06-01 10:00:00,2018-06-01 10:10:00,5,E,6,F,300,180"

	trips, malformed, err := DecodeTrips(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 1, malformed)
	require.Len(t, trips, 3)
	assert.Equal(t, "A", trips[0].DepartureStationName)
	assert.Equal(t, "120", trips[1].DurationSec)
	assert.Equal(t, "E", trips[2].DepartureStationName)
	assert.Equal(t, "180", trips[2].DurationSec)
}

func TestDecodeTrips_ShortRowReadsEmpty(t *testing.T) {
	in := "departure,return,departure_id,departure_name,return_id,return_name,distance (m),duration (sec.)\n" +
		"2018-06-01 08:00:00,2018-06-01 08:10:00,1,A\n"

	trips, malformed, err := DecodeTrips(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 0, malformed)
	require.Len(t, trips, 1)
	assert.Equal(t, "A", trips[0].DepartureStationName)
	assert.Empty(t, trips[0].ReturnStationName)
	assert.Empty(t, trips[0].DurationSec)
}

func TestDecodeTrips_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := DecodeTrips(ctx, strings.NewReader(legacyTrips))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDecodeStations(t *testing.T) {
	in := "ID,Name,x,y\n94,Laajalahden aukio,24.8283,60.2001\n,Teljäntie,24.8195,60.2227\n"

	rows, err := DecodeStations(context.Background(), strings.NewReader(in), domain.KeyByName)
	require.NoError(t, err)

	assert.Equal(t, []domain.StationRow{
		{ID: "94", Name: "Laajalahden aukio", Longitude: "24.8283", Latitude: "60.2001"},
		{ID: "", Name: "Teljäntie", Longitude: "24.8195", Latitude: "60.2227"},
	}, rows)
}

func TestDecodeStations_KeyColumnRequired(t *testing.T) {
	in := "name,longitude,latitude\nA,24.9,60.1\n"

	_, err := DecodeStations(context.Background(), strings.NewReader(in), domain.KeyByName)
	require.NoError(t, err)

	_, err = DecodeStations(context.Background(), strings.NewReader(in), domain.KeyByID)
	assert.ErrorIs(t, err, domain.ErrMissingColumn)
}

func TestDecodeWeather(t *testing.T) {
	in := "Year,m,d,Time,Time zone,Air temperature (degC)\n" +
		"2018,6,1,07:00,UTC,15.2\n" +
		"2018,6,1,08:00,UTC,\n"

	rows, malformed, err := DecodeWeather(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 0, malformed)
	assert.Equal(t, []domain.RawWeather{
		{Year: "2018", Month: "6", Day: "1", Time: "07:00", TimeZone: "UTC", AirTemperature: "15.2"},
		{Year: "2018", Month: "6", Day: "1", Time: "08:00", TimeZone: "UTC", AirTemperature: ""},
	}, rows)
}
