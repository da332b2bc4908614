package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for yearly runs.
type Metrics struct {
	TripsRead       prometheus.Counter
	RowsDropped     *prometheus.CounterVec // labels: reason={malformed,service_station,incomplete}
	ParseWarnings   *prometheus.CounterVec // labels: field={departure,return,weather}
	TripsWritten    *prometheus.CounterVec // labels: sink={csv,sqlite,kafka}
	Runs            *prometheus.CounterVec // labels: outcome={success,input_error,error}
	PipelineRunning prometheus.Gauge

	UnresolvedStations *prometheus.GaugeVec // labels: year
	DuplicateStations  prometheus.Counter
	RunDuration        prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.TripsRead,
		m.RowsDropped,
		m.ParseWarnings,
		m.TripsWritten,
		m.Runs,
		m.PipelineRunning,
		m.UnresolvedStations,
		m.DuplicateStations,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TripsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citybike_etl",
			Name:      "trips_read_total",
			Help:      "Total raw trip rows read from yearly sources.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citybike_etl",
			Name:      "rows_dropped_total",
			Help:      "Trip rows excluded from the output by reason.",
		}, []string{"reason"}),
		ParseWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citybike_etl",
			Name:      "parse_warnings_total",
			Help:      "Fields that failed to parse and were nulled or dropped.",
		}, []string{"field"}),
		TripsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citybike_etl",
			Name:      "trips_written_total",
			Help:      "Enriched trips written by sink.",
		}, []string{"sink"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citybike_etl",
			Name:      "runs_total",
			Help:      "Yearly pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "citybike_etl",
			Name:      "pipeline_running",
			Help:      "Number of yearly runs currently in progress.",
		}),
		UnresolvedStations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "citybike_etl",
			Name:      "unresolved_stations",
			Help:      "Station names without coordinates in the last run of a year.",
		}, []string{"year"}),
		DuplicateStations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citybike_etl",
			Name:      "duplicate_station_keys_total",
			Help:      "Station reference keys seen with conflicting coordinates.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "citybike_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete yearly extract-transform-load run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}
