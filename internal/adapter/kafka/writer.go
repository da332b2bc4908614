// Package kafka publishes enriched trips to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/citybike-etl/internal/config"
	"github.com/couchcryptid/citybike-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces one message per enriched trip.
// It implements pipeline.Loader.
type Writer struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured trip topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.KafkaBatchSize,
	}
	return &Writer{writer: w, batchSize: cfg.KafkaBatchSize, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load publishes the yearly table in chunks of the configured batch size.
// Messages are keyed by departure station so a station's trips share a
// partition.
func (w *Writer) Load(ctx context.Context, year int, trips []domain.EnrichedTrip) error {
	if len(trips) == 0 {
		return nil
	}
	runID := domain.RunID(ctx)
	batch := make([]kafkago.Message, 0, min(w.batchSize, len(trips)))
	for i := range trips {
		msg, err := serializeToMessage(year, runID, &trips[i])
		if err != nil {
			return err
		}
		batch = append(batch, msg)
		if len(batch) == w.batchSize || i == len(trips)-1 {
			if err := w.writer.WriteMessages(ctx, batch...); err != nil {
				return fmt.Errorf("publish trips: %w", err)
			}
			batch = batch[:0]
		}
	}
	w.logger.Info("trips published", "year", year, "count", len(trips))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// tripMessage is the JSON payload of a published trip. Nullable fields are
// omitted when null.
type tripMessage struct {
	Year                 int                 `json:"year"`
	Departure            string              `json:"departure,omitempty"`
	Return               string              `json:"return,omitempty"`
	DepartureStationID   string              `json:"departure_id"`
	DepartureStationName string              `json:"departure_name"`
	DepartureCoordinates *domain.Coordinates `json:"departure_coordinates,omitempty"`
	ReturnStationID      string              `json:"return_id"`
	ReturnStationName    string              `json:"return_name"`
	ReturnCoordinates    *domain.Coordinates `json:"return_coordinates,omitempty"`
	DistanceM            float64             `json:"distance_m"`
	DurationSec          float64             `json:"duration_sec"`
	AvgSpeedKmh          float64             `json:"avg_speed_kmh"`
	AirTemperatureDegC   *float64            `json:"air_temperature_degc,omitempty"`
}

// serializeToMessage marshals an EnrichedTrip into a Kafka message.
func serializeToMessage(year int, runID string, t *domain.EnrichedTrip) (kafkago.Message, error) {
	m := tripMessage{
		Year:                 year,
		DepartureStationID:   t.DepartureStationID,
		DepartureStationName: t.DepartureStationName,
		DepartureCoordinates: t.DepartureCoordinates,
		ReturnStationID:      t.ReturnStationID,
		ReturnStationName:    t.ReturnStationName,
		ReturnCoordinates:    t.ReturnCoordinates,
		DistanceM:            t.DistanceM,
		DurationSec:          t.DurationSec,
		AvgSpeedKmh:          t.AvgSpeedKmh,
		AirTemperatureDegC:   t.AirTemperatureDegC,
	}
	if t.Departure != nil {
		m.Departure = t.Departure.Format(domain.TimestampLayout)
	}
	if t.Return != nil {
		m.Return = t.Return.Format(domain.TimestampLayout)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize trip: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(t.DepartureStationName),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "year", Value: []byte(strconv.Itoa(year))},
		},
	}, nil
}
