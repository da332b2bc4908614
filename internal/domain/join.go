package domain

import "sort"

// JoinNearestPriorWeather sorts trips by departure (stable, so equal
// departures keep their relative order) and attaches to each the temperature
// of the latest observation whose timestamp is at or before the departure.
// Trips departing before the first observation, or with no departure
// timestamp, get a nil temperature; the latter are placed last.
//
// weather must be sorted ascending, as returned by NormalizeWeather. The scan
// is a single merge pass over both sorted sequences.
func JoinNearestPriorWeather(trips []LocatedTrip, weather []WeatherObservation) []EnrichedTrip {
	sorted := make([]LocatedTrip, len(trips))
	copy(sorted, trips)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Departure, sorted[j].Departure
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	out := make([]EnrichedTrip, len(sorted))
	w := -1 // index of the latest observation <= current departure
	for i, t := range sorted {
		out[i] = EnrichedTrip{LocatedTrip: t}
		if t.Departure == nil {
			continue
		}
		for w+1 < len(weather) && !weather[w+1].Timestamp.After(*t.Departure) {
			w++
		}
		if w >= 0 && weather[w].AirTemperatureDegC != nil {
			v := *weather[w].AirTemperatureDegC
			out[i].AirTemperatureDegC = &v
		}
	}
	return out
}
