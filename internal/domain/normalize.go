package domain

import (
	"strings"
	"time"
)

// SpeedFactor converts distance_m / duration_sec into the published
// avg_speed (km/h) column. The constant is kept as-is for numeric parity
// with previously published datasets.
const SpeedFactor = 0.06

// TimestampLayout is the wall-clock format used in written datasets.
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order when parsing trip timestamps. Source
// vintages use ISO "T" separators, later exports use a space.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a naive wall-clock timestamp into the UTC location.
// Values carrying an explicit zone (RFC 3339) keep their wall clock as written;
// the zone is discarded, not converted.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
	}
	return time.Time{}, false
}

// NormalizeTypes types the filtered trip table: timestamps are parsed (an
// invalid value becomes nil and is counted, the row is kept), station names
// and ids are trimmed, distance and duration become numbers, and the average
// speed is derived. Rows must have passed DropIncomplete.
func NormalizeTypes(trips []RawTrip) (out []Trip, invalidDeparture, invalidReturn int) {
	out = make([]Trip, 0, len(trips))
	for _, r := range trips {
		distance, _ := parseNumber(r.DistanceM)
		duration, _ := parseNumber(r.DurationSec)

		t := Trip{
			DepartureStationID:   strings.TrimSpace(r.DepartureStationID),
			DepartureStationName: strings.TrimSpace(r.DepartureStationName),
			ReturnStationID:      strings.TrimSpace(r.ReturnStationID),
			ReturnStationName:    strings.TrimSpace(r.ReturnStationName),
			DistanceM:            distance,
			DurationSec:          duration,
			AvgSpeedKmh:          AverageSpeed(distance, duration),
		}

		if ts, ok := ParseTimestamp(r.Departure); ok {
			t.Departure = &ts
		} else {
			invalidDeparture++
		}
		if ts, ok := ParseTimestamp(r.Return); ok {
			t.Return = &ts
		} else {
			invalidReturn++
		}

		out = append(out, t)
	}
	return out, invalidDeparture, invalidReturn
}

// AverageSpeed returns (distance / duration) * SpeedFactor, or 0 when the
// duration is not positive.
func AverageSpeed(distanceM, durationSec float64) float64 {
	if durationSec <= 0 {
		return 0
	}
	return (distanceM / durationSec) * SpeedFactor
}
