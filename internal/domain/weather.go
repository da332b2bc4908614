package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// HelsinkiOffset is the fixed shift from UTC applied to weather observations.
// Daylight-saving time is deliberately not applied.
const HelsinkiOffset = 2 * time.Hour

// RawWeather is one row of the hourly weather feed with the timestamp split
// across fields and expressed in UTC.
type RawWeather struct {
	Year           string
	Month          string
	Day            string
	Time           string
	TimeZone       string
	AirTemperature string
}

// WeatherObservation is a normalized hourly observation in local wall time.
// A nil temperature means the feed reported no value for that hour.
type WeatherObservation struct {
	Timestamp          time.Time
	AirTemperatureDegC *float64
}

var weatherLayouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
}

// NormalizeWeather assembles a single local timestamp per row, shifts it by
// offset and returns the observations sorted ascending. Rows whose timestamp
// cannot be assembled or whose zone is not UTC are dropped and counted.
func NormalizeWeather(raw []RawWeather, offset time.Duration) (obs []WeatherObservation, dropped int) {
	obs = make([]WeatherObservation, 0, len(raw))
	for _, r := range raw {
		ts, err := weatherTimestamp(r)
		if err != nil {
			dropped++
			continue
		}

		o := WeatherObservation{Timestamp: ts.Add(offset)}
		if v, ok := parseNumber(r.AirTemperature); ok {
			o.AirTemperatureDegC = &v
		}
		obs = append(obs, o)
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Timestamp.Before(obs[j].Timestamp)
	})
	return obs, dropped
}

func weatherTimestamp(r RawWeather) (time.Time, error) {
	if zone := strings.TrimSpace(r.TimeZone); zone != "" && !strings.EqualFold(zone, "UTC") {
		return time.Time{}, fmt.Errorf("unsupported time zone %q", zone)
	}

	s := fmt.Sprintf("%s-%s-%s %s",
		strings.TrimSpace(r.Year), strings.TrimSpace(r.Month),
		strings.TrimSpace(r.Day), strings.TrimSpace(r.Time))
	for _, layout := range weatherLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable weather timestamp %q", s)
}
