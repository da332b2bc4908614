package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StationKey selects which trip column resolves against the directory.
type StationKey string

const (
	// KeyByName looks stations up by their display name (early vintages).
	KeyByName StationKey = "name"
	// KeyByID looks stations up by numeric station id (later vintages).
	KeyByID StationKey = "id"
)

// ParseStationKey validates a configured key kind.
func ParseStationKey(s string) (StationKey, error) {
	switch StationKey(strings.ToLower(strings.TrimSpace(s))) {
	case KeyByName:
		return KeyByName, nil
	case KeyByID:
		return KeyByID, nil
	default:
		return "", fmt.Errorf("invalid station key %q (allowed: name, id)", s)
	}
}

// StationRow is one row of the station reference table.
type StationRow struct {
	ID        string
	Name      string
	Longitude string
	Latitude  string
}

// Directory maps a station key to its coordinates.
type Directory struct {
	key     StationKey
	entries map[string]Coordinates
}

// Len returns the number of distinct keys in the directory.
func (d Directory) Len() int { return len(d.entries) }

// Key returns the key kind the directory was built with.
func (d Directory) Key() StationKey { return d.key }

// Lookup resolves a raw station key. Id keys are canonicalised first.
func (d Directory) Lookup(key string) (Coordinates, bool) {
	c, ok := d.entries[d.normalize(key)]
	return c, ok
}

func (d Directory) normalize(key string) string {
	if d.key == KeyByID {
		return CanonicalStationID(key)
	}
	return strings.TrimSpace(key)
}

// BuildDirectory indexes the reference rows by the requested key. Rows whose
// key is empty or whose coordinates do not parse are skipped and counted in
// skipped. When a key appears twice with different coordinates the first pair
// is kept and a *DuplicateKeyError is joined into the returned error; the
// directory is usable even when err is non-nil.
func BuildDirectory(rows []StationRow, key StationKey) (dir Directory, skipped int, err error) {
	dir = Directory{key: key, entries: make(map[string]Coordinates, len(rows))}

	var dups []error
	for _, row := range rows {
		raw := row.Name
		if key == KeyByID {
			raw = row.ID
		}
		k := dir.normalize(raw)
		if k == "" {
			skipped++
			continue
		}

		lat, errLat := strconv.ParseFloat(strings.TrimSpace(row.Latitude), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(row.Longitude), 64)
		if errLat != nil || errLon != nil {
			skipped++
			continue
		}
		c := Coordinates{Latitude: lat, Longitude: lon}

		if kept, ok := dir.entries[k]; ok {
			if kept != c {
				dups = append(dups, &DuplicateKeyError{Key: k, Kept: kept, Rejected: c})
			}
			continue
		}
		dir.entries[k] = c
	}

	return dir, skipped, errors.Join(dups...)
}

// MissingStations reports the distinct trip-side station keys that have no
// directory entry, sorted. It is a diagnostic and never fails.
func MissingStations(trips []Trip, dir Directory) []string {
	missing := make(map[string]struct{})
	check := func(k string) {
		if _, ok := dir.Lookup(k); !ok {
			missing[k] = struct{}{}
		}
	}
	for i := range trips {
		if dir.key == KeyByID {
			check(trips[i].DepartureStationID)
			check(trips[i].ReturnStationID)
			continue
		}
		check(trips[i].DepartureStationName)
		check(trips[i].ReturnStationName)
	}

	out := make([]string, 0, len(missing))
	for k := range missing {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CanonicalStationID trims a station id and strips the leading zeros and
// trailing ".0" that spreadsheet round-trips introduce ("094", "94.0" -> "94").
func CanonicalStationID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimSuffix(id, ".0")
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" && id != "" {
		return "0"
	}
	return trimmed
}

// DuplicateKeys extracts every *DuplicateKeyError joined into err.
func DuplicateKeys(err error) []*DuplicateKeyError {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	}

	var out []*DuplicateKeyError
	for _, e := range errs {
		var dup *DuplicateKeyError
		if errors.As(e, &dup) {
			out = append(out, dup)
		}
	}
	return out
}
