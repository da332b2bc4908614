package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRenames = map[string]string{
	"Ooppera":       "Kansallisooppera",
	"Kiasma":        "Kansalaistori",
	"Kansalaistori": "Kansalaistori",
}

func TestApplyRenames(t *testing.T) {
	in := []RawTrip{
		{DepartureStationName: "Ooppera", ReturnStationName: "Kiasma"},
		{DepartureStationName: "Töölöntori", ReturnStationName: "Ooppera"},
	}

	out, n := ApplyRenames(in, testRenames)

	assert.Equal(t, 3, n)
	assert.Equal(t, "Kansallisooppera", out[0].DepartureStationName)
	assert.Equal(t, "Kansalaistori", out[0].ReturnStationName)
	assert.Equal(t, "Töölöntori", out[1].DepartureStationName)
	assert.Equal(t, "Kansallisooppera", out[1].ReturnStationName)

	assert.Equal(t, "Ooppera", in[0].DepartureStationName, "input must not be modified")
}

func TestApplyRenames_Idempotent(t *testing.T) {
	in := []RawTrip{
		{DepartureStationName: "Ooppera", ReturnStationName: "Kiasma"},
		{DepartureStationName: "Kansalaistori", ReturnStationName: "Töölöntori"},
	}

	once, _ := ApplyRenames(in, testRenames)
	twice, n := ApplyRenames(once, testRenames)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second application changed rows (-once +twice):\n%s", diff)
	}
	assert.Zero(t, n)
}

func TestApplyRenames_FollowsChains(t *testing.T) {
	renames := map[string]string{
		"Old":    "Middle",
		"Middle": "Current",
		"Loop A": "Loop B",
		"Loop B": "Loop A",
	}

	out, _ := ApplyRenames([]RawTrip{
		{DepartureStationName: "Old", ReturnStationName: "Loop A"},
	}, renames)

	assert.Equal(t, "Current", out[0].DepartureStationName)
	assert.Equal(t, "Loop A", out[0].ReturnStationName, "cyclic chains leave the name unchanged")

	again, _ := ApplyRenames(out, renames)
	assert.Equal(t, out[0].DepartureStationName, again[0].DepartureStationName)
}

func TestAttachCoordinates(t *testing.T) {
	dir, _, err := BuildDirectory([]StationRow{
		{ID: "1", Name: "A", Longitude: "24.0", Latitude: "60.0"},
	}, KeyByName)
	require.NoError(t, err)

	trips := []Trip{
		{DepartureStationName: "A", ReturnStationName: "Unknown", DistanceM: 10, DurationSec: 5},
	}

	out := AttachCoordinates(trips, dir)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].DepartureCoordinates)
	assert.Equal(t, 60.0, out[0].DepartureCoordinates.Latitude)
	assert.Equal(t, 24.0, out[0].DepartureCoordinates.Longitude)
	assert.Nil(t, out[0].ReturnCoordinates)
	assert.Equal(t, trips[0], out[0].Trip)
}

func TestAttachCoordinates_ByID(t *testing.T) {
	dir, _, err := BuildDirectory([]StationRow{
		{ID: "7", Longitude: "24.0", Latitude: "60.0"},
	}, KeyByID)
	require.NoError(t, err)

	out := AttachCoordinates([]Trip{
		{DepartureStationID: "007", DepartureStationName: "Renamed", ReturnStationID: "8"},
	}, dir)

	assert.NotNil(t, out[0].DepartureCoordinates)
	assert.Nil(t, out[0].ReturnCoordinates)
}

func TestApplyRenames_CyclicTableIdempotent(t *testing.T) {
	renames := map[string]string{"A": "B", "B": "A", "X": "Y"}
	in := []RawTrip{{DepartureStationName: "A", ReturnStationName: "X"}}

	once, _ := ApplyRenames(in, renames)
	twice, _ := ApplyRenames(once, renames)

	assert.Equal(t, "A", once[0].DepartureStationName)
	assert.Equal(t, "Y", once[0].ReturnStationName)
	assert.Equal(t, once, twice)
}

func TestRenameCycle(t *testing.T) {
	assert.Empty(t, RenameCycle(map[string]string{"Old": "Middle", "Middle": "Current", "Same": "Same"}))
	assert.Equal(t, "A", RenameCycle(map[string]string{"A": "B", "B": "A", "X": "Y"}))
	assert.Equal(t, "C", RenameCycle(map[string]string{"C": "D", "D": "E", "E": "D"}))
}
