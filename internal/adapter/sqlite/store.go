// Package sqlite stores enriched yearly tables in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"github.com/jonboulle/clockwork"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const insertTrip = `INSERT INTO trips (
	year, departure, return,
	departure_id, departure_name, departure_longitude, departure_latitude,
	return_id, return_name, return_longitude, return_latitude,
	distance_m, duration_sec, avg_speed_kmh, air_temperature_degc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Store is a SQLite trip sink. A year is replaced as a whole so a re-run
// never mixes rows from two runs.
// It implements pipeline.Loader.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex // concurrent yearly runs share one writer
	logger  *slog.Logger
	clock   clockwork.Clock // stamps runs.loaded_at
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("sqlite sink ready", "path", path)
	return &Store{db: db, logger: logger, clock: clockwork.NewRealClock()}, nil
}

func (s *Store) Name() string { return "sqlite" }

// Load replaces the rows of year with trips in a single transaction.
func (s *Store) Load(ctx context.Context, year int, trips []domain.EnrichedTrip) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM trips WHERE year = ?`, year); err != nil {
		return fmt.Errorf("clear year %d: %w", year, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertTrip)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range trips {
		t := &trips[i]
		depLon, depLat := coordinateArgs(t.DepartureCoordinates)
		retLon, retLat := coordinateArgs(t.ReturnCoordinates)
		if _, err = stmt.ExecContext(ctx,
			year, timeArg(t.Departure), timeArg(t.Return),
			t.DepartureStationID, t.DepartureStationName, depLon, depLat,
			t.ReturnStationID, t.ReturnStationName, retLon, retLat,
			t.DistanceM, t.DurationSec, t.AvgSpeedKmh, floatArg(t.AirTemperatureDegC),
		); err != nil {
			return fmt.Errorf("insert trip %d: %w", i, err)
		}
	}

	if runID := domain.RunID(ctx); runID != "" {
		if _, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO runs (run_id, year, trips, loaded_at) VALUES (?, ?, ?, ?)`,
			runID, year, len(trips), s.clock.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("trips stored", "year", year, "count", len(trips))
	return nil
}

// CountTrips returns the number of stored rows for year.
func (s *Store) CountTrips(ctx context.Context, year int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips WHERE year = ?`, year).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func timeArg(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(domain.TimestampLayout), Valid: true}
}

func floatArg(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func coordinateArgs(c *domain.Coordinates) (lon, lat sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Longitude, Valid: true}, sql.NullFloat64{Float64: c.Latitude, Valid: true}
}
