// Package pipeline orchestrates yearly extract-transform-load runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"github.com/couchcryptid/citybike-etl/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Extractor reads the three source tables of a yearly run. The int results
// count rows the decoder could not parse.
type Extractor interface {
	ExtractTrips(ctx context.Context, year int) ([]domain.RawTrip, int, error)
	ExtractStations(ctx context.Context) ([]domain.StationRow, error)
	ExtractWeather(ctx context.Context, year int) ([]domain.RawWeather, int, error)
}

// Transformer turns the extracted tables into the enriched yearly table.
type Transformer interface {
	Transform(ctx context.Context, in Input) ([]domain.EnrichedTrip, domain.Summary, error)
}

// Loader writes a complete enriched yearly table to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, year int, trips []domain.EnrichedTrip) error
}

// Pipeline orchestrates yearly runs. Runs for different years share only
// read-only configuration and may execute concurrently.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	maxParallel int
	ready       atomic.Bool

	mu      sync.Mutex
	history map[int]domain.Summary
}

// New creates a Pipeline. The first loader is the primary dataset; all
// loaders receive the same table.
func New(e Extractor, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, maxParallel int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
		maxParallel: max(maxParallel, 1),
		history:     make(map[int]domain.Summary),
	}
}

// CheckReadiness returns nil once a yearly run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no yearly run has completed yet")
	}
	return nil
}

// Summaries returns the summary of the last successful run of each year,
// ordered by year.
func (p *Pipeline) Summaries() []domain.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Summary, 0, len(p.history))
	for _, s := range p.history {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// RunYears runs every year, at most maxParallel at a time. A failing year
// does not stop the others; all failures are returned combined.
func (p *Pipeline) RunYears(ctx context.Context, years []int) ([]domain.Summary, error) {
	summaries := make([]domain.Summary, len(years))
	errs := make([]error, len(years))

	var g errgroup.Group
	g.SetLimit(p.maxParallel)
	for i, year := range years {
		g.Go(func() error {
			summaries[i], errs[i] = p.Run(ctx, year)
			return nil
		})
	}
	_ = g.Wait()

	return summaries, multierr.Combine(errs...)
}

// Run executes one yearly run. Nothing is loaded unless extraction and
// transformation both complete, so a failed run leaves earlier outputs
// untouched.
func (p *Pipeline) Run(ctx context.Context, year int) (domain.Summary, error) {
	if err := domain.ValidateYear(year); err != nil {
		p.metrics.Runs.WithLabelValues("input_error").Inc()
		return domain.Summary{Year: year}, err
	}

	runID := uuid.NewString()
	ctx = domain.ContextWithRunID(ctx, runID)
	logger := p.logger.With("run_id", runID, "year", year)

	start := time.Now()
	logger.Info("run started")
	p.metrics.PipelineRunning.Inc()
	defer p.metrics.PipelineRunning.Dec()

	sum, err := p.run(ctx, year, logger)
	if err != nil {
		outcome := "error"
		if domain.IsFatal(err) {
			outcome = "input_error"
		}
		p.metrics.Runs.WithLabelValues(outcome).Inc()
		logger.Error("run failed", "error", err)
		return sum, fmt.Errorf("year %d: %w", year, err)
	}

	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.record(sum)
	logger.Info("run completed", "summary", sum, "duration", time.Since(start))
	return sum, nil
}

func (p *Pipeline) run(ctx context.Context, year int, logger *slog.Logger) (domain.Summary, error) {
	in, err := p.extract(ctx, year)
	if err != nil {
		return domain.Summary{Year: year}, err
	}
	logger.Debug("sources extracted",
		"trips", len(in.Trips), "stations", len(in.Stations), "weather", len(in.Weather))

	trips, sum, err := p.transformer.Transform(ctx, in)
	if err != nil {
		return sum, err
	}
	p.observe(sum)

	for _, l := range p.loaders {
		if err := l.Load(ctx, year, trips); err != nil {
			return sum, fmt.Errorf("load %s: %w", l.Name(), err)
		}
		p.metrics.TripsWritten.WithLabelValues(l.Name()).Add(float64(len(trips)))
	}
	return sum, nil
}

// extract reads the three source tables concurrently. The first failure
// cancels the remaining reads.
func (p *Pipeline) extract(ctx context.Context, year int) (Input, error) {
	in := Input{Year: year}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Trips, in.MalformedTrips, err = p.extractor.ExtractTrips(gctx, year)
		return err
	})
	g.Go(func() error {
		var err error
		in.Stations, err = p.extractor.ExtractStations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		in.Weather, in.MalformedWeather, err = p.extractor.ExtractWeather(gctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (p *Pipeline) observe(sum domain.Summary) {
	p.metrics.TripsRead.Add(float64(sum.TripsRead))
	p.metrics.RowsDropped.WithLabelValues("malformed").Add(float64(sum.MalformedTrips))
	p.metrics.RowsDropped.WithLabelValues("service_station").Add(float64(sum.DroppedService))
	p.metrics.RowsDropped.WithLabelValues("incomplete").Add(float64(sum.DroppedIncomplete))
	p.metrics.ParseWarnings.WithLabelValues("departure").Add(float64(sum.InvalidDeparture))
	p.metrics.ParseWarnings.WithLabelValues("return").Add(float64(sum.InvalidReturn))
	p.metrics.ParseWarnings.WithLabelValues("weather").Add(float64(sum.WeatherDropped + sum.MalformedWeather))
	p.metrics.UnresolvedStations.WithLabelValues(strconv.Itoa(sum.Year)).Set(float64(len(sum.UnresolvedStations)))
	p.metrics.DuplicateStations.Add(float64(sum.DuplicateStations))
}

func (p *Pipeline) record(sum domain.Summary) {
	p.mu.Lock()
	p.history[sum.Year] = sum
	p.mu.Unlock()
	p.ready.Store(true)
}
