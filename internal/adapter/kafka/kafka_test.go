package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	calls  [][]kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, append([]kafkago.Message(nil), msgs...))
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testWriter(fw *fakeWriter, batchSize int) *Writer {
	return &Writer{writer: fw, batchSize: batchSize, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func enrichedTrip(name string) domain.EnrichedTrip {
	dep := time.Date(2018, 6, 1, 8, 0, 0, 0, time.UTC)
	temp := 15.5
	return domain.EnrichedTrip{
		LocatedTrip: domain.LocatedTrip{
			Trip: domain.Trip{
				Departure:            &dep,
				DepartureStationID:   "94",
				DepartureStationName: name,
				ReturnStationID:      "100",
				ReturnStationName:    "Teljäntie",
				DistanceM:            2043,
				DurationSec:          500,
				AvgSpeedKmh:          14.7096,
			},
			DepartureCoordinates: &domain.Coordinates{Latitude: 60.2001, Longitude: 24.8283},
		},
		AirTemperatureDegC: &temp,
	}
}

func TestSerializeToMessage(t *testing.T) {
	trip := enrichedTrip("Laajalahden aukio")

	msg, err := serializeToMessage(2018, "run-1", &trip)
	require.NoError(t, err)

	assert.Equal(t, []byte("Laajalahden aukio"), msg.Key)
	assert.JSONEq(t, `{
		"year": 2018,
		"departure": "2018-06-01 08:00:00",
		"departure_id": "94",
		"departure_name": "Laajalahden aukio",
		"departure_coordinates": {"latitude": 60.2001, "longitude": 24.8283},
		"return_id": "100",
		"return_name": "Teljäntie",
		"distance_m": 2043,
		"duration_sec": 500,
		"avg_speed_kmh": 14.7096,
		"air_temperature_degc": 15.5
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "year", msg.Headers[1].Key)
	assert.Equal(t, []byte("2018"), msg.Headers[1].Value)
}

func TestWriter_LoadBatches(t *testing.T) {
	fw := &fakeWriter{}
	w := testWriter(fw, 2)
	trips := []domain.EnrichedTrip{enrichedTrip("a"), enrichedTrip("b"), enrichedTrip("c"), enrichedTrip("d"), enrichedTrip("e")}

	ctx := domain.ContextWithRunID(context.Background(), "run-7")
	require.NoError(t, w.Load(ctx, 2018, trips))

	require.Len(t, fw.calls, 3)
	assert.Len(t, fw.calls[0], 2)
	assert.Len(t, fw.calls[1], 2)
	assert.Len(t, fw.calls[2], 1)
	assert.Equal(t, []byte("a"), fw.calls[0][0].Key)
	assert.Equal(t, []byte("e"), fw.calls[2][0].Key)
	assert.Equal(t, []byte("run-7"), fw.calls[2][0].Headers[0].Value)

	var m tripMessage
	require.NoError(t, json.Unmarshal(fw.calls[1][1].Value, &m))
	assert.Equal(t, "d", m.DepartureStationName)
}

func TestWriter_LoadEmpty(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, testWriter(fw, 10).Load(context.Background(), 2018, nil))
	assert.Empty(t, fw.calls)
}

func TestWriter_LoadError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	err := testWriter(fw, 10).Load(context.Background(), 2018, []domain.EnrichedTrip{enrichedTrip("a")})
	assert.ErrorContains(t, err, "broker down")
}

func TestWriter_Close(t *testing.T) {
	fw := &fakeWriter{}
	w := testWriter(fw, 10)
	assert.Equal(t, "kafka", w.Name())
	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}
