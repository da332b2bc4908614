package domain

import (
	"maps"
	"slices"
)

// ApplyRenames returns a copy of trips with departure and return station names
// replaced by their rename-table target. Names without an entry are kept.
// Chained entries (A->B, B->C) resolve to the final name so that applying the
// table twice changes nothing. The second return value counts replaced fields.
func ApplyRenames(trips []RawTrip, renames map[string]string) ([]RawTrip, int) {
	out := make([]RawTrip, len(trips))
	var n int
	for i, t := range trips {
		if to := resolveRename(renames, t.DepartureStationName); to != t.DepartureStationName {
			t.DepartureStationName = to
			n++
		}
		if to := resolveRename(renames, t.ReturnStationName); to != t.ReturnStationName {
			t.ReturnStationName = to
			n++
		}
		out[i] = t
	}
	return out, n
}

// resolveRename follows the rename chain from name. A chain that runs into a
// cycle leaves name unchanged.
func resolveRename(renames map[string]string, name string) string {
	seen := map[string]bool{name: true}
	cur := name
	for {
		to, ok := renames[cur]
		if !ok || to == cur {
			return cur
		}
		if seen[to] {
			return name
		}
		seen[to] = true
		cur = to
	}
}

// RenameCycle reports a station name whose rename chain loops back on
// itself, or "" when the table is acyclic.
func RenameCycle(renames map[string]string) string {
	for _, from := range slices.Sorted(maps.Keys(renames)) {
		if resolveRename(renames, from) == from && renames[from] != from {
			return from
		}
	}
	return ""
}

// AttachCoordinates resolves both stations of every trip against dir.
// Unresolved stations leave the coordinate pointer nil; no row is dropped.
func AttachCoordinates(trips []Trip, dir Directory) []LocatedTrip {
	out := make([]LocatedTrip, len(trips))
	for i, t := range trips {
		dep, ret := t.DepartureStationName, t.ReturnStationName
		if dir.Key() == KeyByID {
			dep, ret = t.DepartureStationID, t.ReturnStationID
		}
		out[i] = LocatedTrip{
			Trip:                 t,
			DepartureCoordinates: lookup(dir, dep),
			ReturnCoordinates:    lookup(dir, ret),
		}
	}
	return out
}

func lookup(dir Directory, key string) *Coordinates {
	c, ok := dir.Lookup(key)
	if !ok {
		return nil
	}
	return &c
}
