package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
)

// DatasetHeader is the column order of a written yearly dataset.
var DatasetHeader = []string{
	"departure",
	"return",
	"departure_id",
	"departure_name",
	"departure_longitude",
	"departure_latitude",
	"return_id",
	"return_name",
	"return_longitude",
	"return_latitude",
	"distance (m)",
	"duration (sec.)",
	"avg_speed (km/h)",
	"air_temperature (degc)",
}

var stationHeader = []string{"id", "name", "longitude", "latitude"}

// Writer persists enriched yearly tables under datasets/.
// It implements pipeline.Loader.
type Writer struct {
	layout Layout
	logger *slog.Logger
}

// NewWriter creates a dataset writer rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{layout: Layout{Dir: dir}, logger: logger}
}

func (w *Writer) Name() string { return "csv" }

// Load writes the yearly table atomically; an interrupted run leaves any
// previous dataset in place.
func (w *Writer) Load(ctx context.Context, year int, trips []domain.EnrichedTrip) error {
	dst := w.layout.Dataset(year)
	err := writeAtomic(dst, func(out io.Writer) error {
		return EncodeDataset(ctx, out, trips)
	})
	if err != nil {
		return fmt.Errorf("write dataset %s: %w", dst, err)
	}
	w.logger.Info("dataset written", "path", dst, "rows", len(trips))
	return nil
}

// EncodeDataset writes trips with DatasetHeader. Null values are written as
// empty fields.
func EncodeDataset(ctx context.Context, out io.Writer, trips []domain.EnrichedTrip) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(DatasetHeader); err != nil {
		return err
	}
	record := make([]string, len(DatasetHeader))
	for i := range trips {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fillRecord(record, &trips[i])
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fillRecord(record []string, t *domain.EnrichedTrip) {
	record[0] = formatTime(t.Departure)
	record[1] = formatTime(t.Return)
	record[2] = t.DepartureStationID
	record[3] = t.DepartureStationName
	record[4], record[5] = formatCoordinates(t.DepartureCoordinates)
	record[6] = t.ReturnStationID
	record[7] = t.ReturnStationName
	record[8], record[9] = formatCoordinates(t.ReturnCoordinates)
	record[10] = formatFloat(t.DistanceM)
	record[11] = formatFloat(t.DurationSec)
	record[12] = formatFloat(t.AvgSpeedKmh)
	record[13] = ""
	if t.AirTemperatureDegC != nil {
		record[13] = formatFloat(*t.AirTemperatureDegC)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(domain.TimestampLayout)
}

func formatCoordinates(c *domain.Coordinates) (lon, lat string) {
	if c == nil {
		return "", ""
	}
	return formatFloat(c.Longitude), formatFloat(c.Latitude)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteStations stores a fetched station reference table at the layout's
// station path.
func WriteStations(dir string, rows []domain.StationRow) (string, error) {
	dst := Layout{Dir: dir}.Stations()
	err := writeAtomic(dst, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(stationHeader); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write([]string{r.ID, r.Name, r.Longitude, r.Latitude}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("write stations %s: %w", dst, err)
	}
	return dst, nil
}

// writeAtomic writes to a temporary file next to dst and renames it into
// place once fill succeeds.
func writeAtomic(dst string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
