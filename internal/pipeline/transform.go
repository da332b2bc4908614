package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// maxLoggedStations caps the names included in the unresolved-stations warning.
const maxLoggedStations = 20

// Input is everything a yearly transform needs, as read by an Extractor.
type Input struct {
	Year             int
	Trips            []domain.RawTrip
	MalformedTrips   int
	Stations         []domain.StationRow
	Weather          []domain.RawWeather
	MalformedWeather int
}

// TripTransformer implements Transformer with the domain cleaning stages.
type TripTransformer struct {
	curation domain.Curation
	key      domain.StationKey
	offset   time.Duration
	logger   *slog.Logger
}

// NewTransformer creates a TripTransformer. offset is the fixed local-time
// offset added to weather timestamps.
func NewTransformer(curation domain.Curation, key domain.StationKey, offset time.Duration, logger *slog.Logger) *TripTransformer {
	return &TripTransformer{
		curation: curation,
		key:      key,
		offset:   offset,
		logger:   logger,
	}
}

// Transform runs rename, filter, normalize, reconcile and join. The station
// directory and the weather table are built concurrently with the trip
// stages; they share no state with them. Recoverable conditions are counted
// in the returned Summary. The only error is cancellation.
func (t *TripTransformer) Transform(ctx context.Context, in Input) ([]domain.EnrichedTrip, domain.Summary, error) {
	sum := domain.Summary{
		Year:             in.Year,
		TripsRead:        len(in.Trips) + in.MalformedTrips,
		MalformedTrips:   in.MalformedTrips,
		WeatherRead:      len(in.Weather) + in.MalformedWeather,
		MalformedWeather: in.MalformedWeather,
	}

	var (
		dir     domain.Directory
		dupErr  error
		weather []domain.WeatherObservation
	)
	var g errgroup.Group
	g.Go(func() error {
		dir, sum.StationsSkipped, dupErr = domain.BuildDirectory(in.Stations, t.key)
		return nil
	})
	g.Go(func() error {
		weather, sum.WeatherDropped = domain.NormalizeWeather(in.Weather, t.offset)
		return nil
	})

	raw, renamed := domain.ApplyRenames(in.Trips, t.curation.Renames)
	raw, droppedService := domain.DropServiceStations(raw, t.curation)
	raw, droppedIncomplete := domain.DropIncomplete(raw)
	trips, invalidDep, invalidRet := domain.NormalizeTypes(raw)
	sum.Renamed = renamed
	sum.DroppedService = droppedService
	sum.DroppedIncomplete = droppedIncomplete
	sum.InvalidDeparture = invalidDep
	sum.InvalidReturn = invalidRet

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, sum, err
	}

	sum.StationsIndexed = dir.Len()
	dups := domain.DuplicateKeys(dupErr)
	sum.DuplicateStations = len(dups)
	for _, d := range dups {
		t.logger.Warn("duplicate station key, keeping first coordinates",
			"key", d.Key,
			"kept_lat", d.Kept.Latitude, "kept_lon", d.Kept.Longitude,
			"rejected_lat", d.Rejected.Latitude, "rejected_lon", d.Rejected.Longitude,
		)
	}

	sum.UnresolvedStations = domain.MissingStations(trips, dir)
	if n := len(sum.UnresolvedStations); n > 0 {
		t.logger.Warn("stations missing from reference table",
			"count", n,
			"stations", sum.UnresolvedStations[:min(n, maxLoggedStations)],
		)
	}

	located := domain.AttachCoordinates(trips, dir)
	enriched := domain.JoinNearestPriorWeather(located, weather)
	sum.CountNulls(enriched)

	return enriched, sum, ctx.Err()
}
