package domain

import (
	"math"
	"strconv"
	"strings"
)

// DropServiceStations removes every trip whose departure or return station
// name starts with an excluded prefix. Names are matched untrimmed, so a
// prefix of " " removes names with leading whitespace.
func DropServiceStations(trips []RawTrip, cur Curation) (kept []RawTrip, dropped int) {
	kept = make([]RawTrip, 0, len(trips))
	for _, t := range trips {
		if cur.Excluded(t.DepartureStationName) || cur.Excluded(t.ReturnStationName) {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	return kept, dropped
}

// DropIncomplete removes trips with a missing station name or a distance or
// duration that is not a number. Negative distances and non-positive
// durations are structurally invalid and dropped as well.
func DropIncomplete(trips []RawTrip) (kept []RawTrip, dropped int) {
	kept = make([]RawTrip, 0, len(trips))
	for _, t := range trips {
		if !complete(t) {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	return kept, dropped
}

func complete(t RawTrip) bool {
	if strings.TrimSpace(t.DepartureStationName) == "" || strings.TrimSpace(t.ReturnStationName) == "" {
		return false
	}
	distance, ok := parseNumber(t.DistanceM)
	if !ok || distance < 0 {
		return false
	}
	duration, ok := parseNumber(t.DurationSec)
	return ok && duration > 0
}

// parseNumber parses a decimal field, rejecting empty, NaN and infinite values.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
