package domain

import "log/slog"

// Summary counts the recoverable conditions met during one yearly run.
type Summary struct {
	Year int `json:"year"`

	TripsRead          int      `json:"trips_read"`
	MalformedTrips     int      `json:"malformed_trips"`
	Renamed            int      `json:"renamed"`
	DroppedService     int      `json:"dropped_service"`
	DroppedIncomplete  int      `json:"dropped_incomplete"`
	InvalidDeparture   int      `json:"invalid_departure"`
	InvalidReturn      int      `json:"invalid_return"`
	UnresolvedStations []string `json:"unresolved_stations"`

	StationsIndexed   int `json:"stations_indexed"`
	StationsSkipped   int `json:"stations_skipped"`
	DuplicateStations int `json:"duplicate_stations"`

	WeatherRead      int `json:"weather_read"`
	MalformedWeather int `json:"malformed_weather"`
	WeatherDropped   int `json:"weather_dropped"`

	TripsWritten           int `json:"trips_written"`
	MissingDepartureCoords int `json:"missing_departure_coords"`
	MissingReturnCoords    int `json:"missing_return_coords"`
	MissingTemperature     int `json:"missing_temperature"`
}

// Dropped returns the number of trip rows excluded from the output.
func (s Summary) Dropped() int {
	return s.MalformedTrips + s.DroppedService + s.DroppedIncomplete
}

// ParseWarnings returns the number of timestamp fields that became null.
func (s Summary) ParseWarnings() int {
	return s.InvalidDeparture + s.InvalidReturn
}

// CountNulls fills the null-count section from the final table.
func (s *Summary) CountNulls(trips []EnrichedTrip) {
	s.TripsWritten = len(trips)
	s.MissingDepartureCoords, s.MissingReturnCoords, s.MissingTemperature = 0, 0, 0
	for i := range trips {
		if trips[i].DepartureCoordinates == nil {
			s.MissingDepartureCoords++
		}
		if trips[i].ReturnCoordinates == nil {
			s.MissingReturnCoords++
		}
		if trips[i].AirTemperatureDegC == nil {
			s.MissingTemperature++
		}
	}
}

// LogValue renders the summary as a structured log group.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("year", s.Year),
		slog.Int("trips_read", s.TripsRead),
		slog.Int("malformed_trips", s.MalformedTrips),
		slog.Int("renamed", s.Renamed),
		slog.Int("dropped_service", s.DroppedService),
		slog.Int("dropped_incomplete", s.DroppedIncomplete),
		slog.Int("invalid_departure", s.InvalidDeparture),
		slog.Int("invalid_return", s.InvalidReturn),
		slog.Int("dropped", s.Dropped()),
		slog.Int("parse_warnings", s.ParseWarnings()),
		slog.Int("unresolved_stations", len(s.UnresolvedStations)),
		slog.Int("stations_indexed", s.StationsIndexed),
		slog.Int("stations_skipped", s.StationsSkipped),
		slog.Int("duplicate_stations", s.DuplicateStations),
		slog.Int("weather_read", s.WeatherRead),
		slog.Int("malformed_weather", s.MalformedWeather),
		slog.Int("weather_dropped", s.WeatherDropped),
		slog.Int("trips_written", s.TripsWritten),
		slog.Int("missing_departure_coords", s.MissingDepartureCoords),
		slog.Int("missing_return_coords", s.MissingReturnCoords),
		slog.Int("missing_temperature", s.MissingTemperature),
	)
}
