package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/citybike-etl/internal/domain"
)

// Layout names the files of a data directory.
type Layout struct {
	Dir string
}

// CombinedTrips is the yearly trip table joined from the monthly files.
func (l Layout) CombinedTrips(year int) string {
	return filepath.Join(l.Dir, "combined_data", fmt.Sprintf("%d.csv", year))
}

// TripArchive is the downloaded yearly zip of monthly files.
func (l Layout) TripArchive(year int) string {
	return filepath.Join(l.Dir, "downloaded_data", fmt.Sprintf("%d.zip", year))
}

// Stations is the station coordinate reference table.
func (l Layout) Stations() string {
	return filepath.Join(l.Dir, "downloaded_data", "station_coordinates.csv")
}

// Weather is the raw hourly weather feed for a year.
func (l Layout) Weather(year int) string {
	return filepath.Join(l.Dir, "weather", fmt.Sprintf("helsinki_weather_%d.csv", year))
}

// Dataset is the enriched output for a year.
func (l Layout) Dataset(year int) string {
	return filepath.Join(l.Dir, "datasets", fmt.Sprintf("%d.csv", year))
}

// Source reads the yearly input tables from a data directory.
// It implements pipeline.Extractor.
type Source struct {
	layout Layout
	key    domain.StationKey
	logger *slog.Logger
}

// NewSource creates a Source rooted at dir. key selects which station column
// must exist in the reference table.
func NewSource(dir string, key domain.StationKey, logger *slog.Logger) *Source {
	return &Source{layout: Layout{Dir: dir}, key: key, logger: logger}
}

// ExtractTrips reads the combined yearly CSV, falling back to the downloaded
// archive when no combined file exists.
func (s *Source) ExtractTrips(ctx context.Context, year int) ([]domain.RawTrip, int, error) {
	combined := s.layout.CombinedTrips(year)
	f, err := os.Open(combined)
	if err == nil {
		defer f.Close()
		trips, malformed, err := DecodeTrips(ctx, f)
		if err != nil {
			return nil, 0, &domain.InputError{Table: "trips", Path: combined, Err: err}
		}
		s.logger.Debug("trips loaded", "path", combined, "rows", len(trips))
		return trips, malformed, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, 0, &domain.InputError{Table: "trips", Path: combined, Err: err}
	}

	archive := s.layout.TripArchive(year)
	trips, malformed, err := ReadTripArchive(ctx, archive)
	if err != nil {
		return nil, 0, &domain.InputError{Table: "trips", Path: archive, Err: err}
	}
	s.logger.Debug("trips loaded from archive", "path", archive, "rows", len(trips))
	return trips, malformed, nil
}

// ExtractStations reads the station reference table.
func (s *Source) ExtractStations(ctx context.Context) ([]domain.StationRow, error) {
	p := s.layout.Stations()
	f, err := os.Open(p)
	if err != nil {
		return nil, &domain.InputError{Table: "stations", Path: p, Err: err}
	}
	defer f.Close()

	rows, err := DecodeStations(ctx, f, s.key)
	if err != nil {
		return nil, &domain.InputError{Table: "stations", Path: p, Err: err}
	}
	return rows, nil
}

// ExtractWeather reads the raw weather feed for a year.
func (s *Source) ExtractWeather(ctx context.Context, year int) ([]domain.RawWeather, int, error) {
	p := s.layout.Weather(year)
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, &domain.InputError{Table: "weather", Path: p, Err: err}
	}
	defer f.Close()

	rows, malformed, err := DecodeWeather(ctx, f)
	if err != nil {
		return nil, 0, &domain.InputError{Table: "weather", Path: p, Err: err}
	}
	return rows, malformed, nil
}
