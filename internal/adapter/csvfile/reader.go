package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
)

// ReadDataset loads a dataset previously written by Writer.
func ReadDataset(ctx context.Context, path string) ([]domain.EnrichedTrip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeDataset(ctx, f)
}

// DecodeDataset parses a written dataset. Unlike the source decoders it is
// strict: any malformed row is an error, reported with its line number.
func DecodeDataset(ctx context.Context, r io.Reader) ([]domain.EnrichedTrip, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = len(DatasetHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range DatasetHeader {
		if header[i] != h {
			return nil, fmt.Errorf("column %d: got %q, want %q", i, header[i], h)
		}
	}

	var out []domain.EnrichedTrip
	for line := 2; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		t, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
}

func parseRecord(record []string) (domain.EnrichedTrip, error) {
	var (
		t   domain.EnrichedTrip
		err error
	)
	if t.Departure, err = parseOptionalTime(record[0]); err != nil {
		return t, fmt.Errorf("departure: %w", err)
	}
	if t.Return, err = parseOptionalTime(record[1]); err != nil {
		return t, fmt.Errorf("return: %w", err)
	}
	t.DepartureStationID = record[2]
	t.DepartureStationName = record[3]
	if t.DepartureCoordinates, err = parseOptionalCoordinates(record[4], record[5]); err != nil {
		return t, fmt.Errorf("departure coordinates: %w", err)
	}
	t.ReturnStationID = record[6]
	t.ReturnStationName = record[7]
	if t.ReturnCoordinates, err = parseOptionalCoordinates(record[8], record[9]); err != nil {
		return t, fmt.Errorf("return coordinates: %w", err)
	}
	if t.DistanceM, err = strconv.ParseFloat(record[10], 64); err != nil {
		return t, fmt.Errorf("distance: %w", err)
	}
	if t.DurationSec, err = strconv.ParseFloat(record[11], 64); err != nil {
		return t, fmt.Errorf("duration: %w", err)
	}
	if t.AvgSpeedKmh, err = strconv.ParseFloat(record[12], 64); err != nil {
		return t, fmt.Errorf("avg speed: %w", err)
	}
	if t.AirTemperatureDegC, err = parseOptionalFloat(record[13]); err != nil {
		return t, fmt.Errorf("air temperature: %w", err)
	}
	return t, nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.TimestampLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseOptionalCoordinates(lon, lat string) (*domain.Coordinates, error) {
	if lon == "" && lat == "" {
		return nil, nil
	}
	x, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, err
	}
	y, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, err
	}
	return &domain.Coordinates{Longitude: x, Latitude: y}, nil
}
