package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	DataDir         string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StationKey       domain.StationKey
	WeatherOffset    time.Duration
	CurationFile     string
	Curation         domain.Curation
	MaxParallelYears int

	// Optional sinks next to the CSV dataset.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaBatchSize int
	SQLitePath     string

	// Source endpoints used by the fetch command.
	TripsBaseURL      string
	StationsURL       string
	HTTPClientTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	stationKey, err := domain.ParseStationKey(sharedcfg.EnvOrDefault("STATION_KEY", "name"))
	if err != nil {
		return nil, fmt.Errorf("STATION_KEY: %w", err)
	}

	offset, err := time.ParseDuration(sharedcfg.EnvOrDefault("WEATHER_UTC_OFFSET", "2h"))
	if err != nil || offset < -14*time.Hour || offset > 14*time.Hour {
		return nil, errors.New("invalid WEATHER_UTC_OFFSET")
	}

	clientTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("HTTP_CLIENT_TIMEOUT", "5m"))
	if err != nil || clientTimeout <= 0 {
		return nil, errors.New("invalid HTTP_CLIENT_TIMEOUT")
	}

	parallel, err := parsePositiveInt("MAX_PARALLEL_YEARS", 2)
	if err != nil {
		return nil, err
	}

	kafkaBatch, err := parsePositiveInt("KAFKA_BATCH_SIZE", 500)
	if err != nil {
		return nil, err
	}

	curationFile := os.Getenv("CURATION_FILE")
	curation, err := LoadCuration(curationFile)
	if err != nil {
		return nil, fmt.Errorf("CURATION_FILE: %w", err)
	}

	cfg := &Config{
		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StationKey:       stationKey,
		WeatherOffset:    offset,
		CurationFile:     curationFile,
		Curation:         curation,
		MaxParallelYears: parallel,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     sharedcfg.EnvOrDefault("KAFKA_TOPIC", "citybike-trips"),
		KafkaBatchSize: kafkaBatch,
		SQLitePath:     os.Getenv("SQLITE_PATH"),

		TripsBaseURL:      sharedcfg.EnvOrDefault("HSL_TRIPS_BASE_URL", "https://dev.hsl.fi/citybikes"),
		StationsURL:       sharedcfg.EnvOrDefault("HSL_STATIONS_URL", "https://www.cityfillarit.fi/stage-ajax/hslCityBikes?stage-language=en"),
		HTTPClientTimeout: clientTimeout,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
