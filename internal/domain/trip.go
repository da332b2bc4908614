package domain

import "time"

// RawTrip is one row of a yearly origin-destination table exactly as decoded
// from CSV. Empty strings stand for missing values.
type RawTrip struct {
	Departure            string
	Return               string
	DepartureStationID   string
	DepartureStationName string
	ReturnStationID      string
	ReturnStationName    string
	DistanceM            string
	DurationSec          string
}

// Trip is a typed rental record. Timestamps are wall-clock Helsinki time stored
// in the UTC location; a nil timestamp means the source value did not parse.
type Trip struct {
	Departure            *time.Time
	Return               *time.Time
	DepartureStationID   string
	DepartureStationName string
	ReturnStationID      string
	ReturnStationName    string
	DistanceM            float64
	DurationSec          float64
	AvgSpeedKmh          float64
}

// Coordinates is a WGS-84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocatedTrip is a Trip with the station coordinates attached. Nil
// coordinates mean the station key was not found in the directory.
type LocatedTrip struct {
	Trip
	DepartureCoordinates *Coordinates
	ReturnCoordinates    *Coordinates
}

// EnrichedTrip is the output record of a yearly run.
type EnrichedTrip struct {
	LocatedTrip
	AirTemperatureDegC *float64
}
