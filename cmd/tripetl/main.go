// Command tripetl builds the cleaned, weather-enriched city-bike trip
// datasets and downloads their sources.
//
// Usage:
//
//	tripetl run -year 2018 [-year 2019 ...]
//	tripetl fetch -year 2018 [-skip-stations]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/couchcryptid/citybike-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/citybike-etl/internal/adapter/hsl"
	"github.com/couchcryptid/citybike-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/citybike-etl/internal/adapter/kafka"
	"github.com/couchcryptid/citybike-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/citybike-etl/internal/config"
	"github.com/couchcryptid/citybike-etl/internal/observability"
	"github.com/couchcryptid/citybike-etl/internal/pipeline"
	"go.uber.org/multierr"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var code int
	switch os.Args[1] {
	case "run":
		code = runCommand(ctx, cfg, logger, os.Args[2:])
	case "fetch":
		code = fetchCommand(ctx, cfg, logger, os.Args[2:])
	default:
		usage(os.Stderr)
		code = 2
	}

	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: tripetl run -year YEAR [-year YEAR ...]")
	fmt.Fprintln(w, "       tripetl fetch -year YEAR [-skip-stations]")
}

// yearList collects repeated -year flags; a comma-separated value is also
// accepted.
type yearList []int

func (y *yearList) String() string {
	parts := make([]string, len(*y))
	for i, v := range *y {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (y *yearList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid year %q", part)
		}
		*y = append(*y, v)
	}
	return nil
}

func runCommand(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var years yearList
	fs.Var(&years, "year", "year to process (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(years) == 0 {
		usage(os.Stderr)
		return 2
	}

	metrics := observability.NewMetrics()
	loaders, closeLoaders, err := buildLoaders(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise sinks", "error", err)
		return 1
	}
	defer func() {
		if err := closeLoaders(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}()

	source := csvfile.NewSource(cfg.DataDir, cfg.StationKey, logger)
	transformer := pipeline.NewTransformer(cfg.Curation, cfg.StationKey, cfg.WeatherOffset, logger)
	p := pipeline.New(source, transformer, loaders, logger, metrics, cfg.MaxParallelYears)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	logger.Info("processing years", "years", years.String(), "data_dir", cfg.DataDir,
		"station_key", cfg.StationKey, "max_parallel", cfg.MaxParallelYears)
	_, runErr := p.RunYears(ctx, years)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		for _, err := range multierr.Errors(runErr) {
			logger.Error("year failed", "error", err)
		}
		return 1
	}
	logger.Info("all years completed")
	return 0
}

// buildLoaders returns the CSV dataset writer followed by the enabled
// optional sinks, and a function closing the sinks that hold connections.
func buildLoaders(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Loader, func() error, error) {
	loaders := []pipeline.Loader{csvfile.NewWriter(cfg.DataDir, logger)}
	var closers []io.Closer
	closeAll := func() error {
		var err error
		for _, c := range closers {
			err = multierr.Append(err, c.Close())
		}
		return err
	}

	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, store)
		closers = append(closers, store)
	}

	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, w)
		closers = append(closers, w)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic, "batch_size", cfg.KafkaBatchSize)
	}

	return loaders, closeAll, nil
}

func fetchCommand(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	var years yearList
	fs.Var(&years, "year", "year whose trip archive to download (repeatable)")
	skipStations := fs.Bool("skip-stations", false, "do not refresh the station reference table")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(years) == 0 && *skipStations {
		usage(os.Stderr)
		return 2
	}

	client := hsl.NewClient(cfg.TripsBaseURL, cfg.StationsURL, cfg.HTTPClientTimeout, logger)
	layout := csvfile.Layout{Dir: cfg.DataDir}
	code := 0

	for _, year := range years {
		if err := client.DownloadTrips(ctx, year, layout.TripArchive(year)); err != nil {
			if errors.Is(err, hsl.ErrNotPublished) {
				logger.Warn("no archive published for year", "year", year)
			} else {
				logger.Error("archive download failed", "year", year, "error", err)
			}
			code = 1
		}
	}

	if !*skipStations {
		rows, err := client.FetchStations(ctx)
		if err != nil {
			logger.Error("station fetch failed", "error", err)
			return 1
		}
		path, err := csvfile.WriteStations(cfg.DataDir, rows)
		if err != nil {
			logger.Error("station write failed", "error", err)
			return 1
		}
		logger.Info("station reference written", "path", path, "stations", len(rows))
	}
	return code
}
