// Package domain models Helsinki city-bike origin-destination trips and the
// cleaning stages that turn a raw yearly table into the published dataset.
//
// # Data Sources
//
// Trip records come from the yearly HSL open-data archives, one CSV per month.
// Station coordinates come from the live station API and therefore reflect the
// current network, not the network of the year being processed. Weather comes
// from the hourly observation feed of the Finnish Meteorological Institute.
//
// # Station Drift
//
// Stations are renamed and reclassified between seasons, so older trip names
// do not always appear in the current reference. A curated rename table
// ([Curation].Renames) maps old names to current ones; [MissingStations]
// lists whatever is still unresolved so the table can be reviewed.
//
// Service stations (workshops, bike production, pop-up points) are not rental
// points and are excluded by name prefix ([Curation].ExcludedPrefixes).
//
// # Stage Order
//
// The stages run in a fixed order:
//
//	ApplyRenames -> DropServiceStations -> DropIncomplete -> NormalizeTypes
//	  -> AttachCoordinates -> JoinNearestPriorWeather
//
// Filtering happens before typing. Prefix matching therefore sees the raw,
// untrimmed station names, and renames are keyed on raw names too.
// Coordinates are attached after trimming.
//
// # Time
//
// Trip timestamps are naive Helsinki wall-clock values. They are kept as
// time.Time in the UTC location so no zone conversion ever applies to them.
// A trip timestamp that carries an explicit zone keeps the wall clock as
// written and the zone is dropped, so it lines up with the naive values.
// Weather timestamps are UTC and shifted by a fixed [HelsinkiOffset] of two
// hours; daylight-saving time is not applied, so summer observations are one
// hour behind local time.
//
// # Weather Join
//
// Each trip receives the temperature of the latest observation at or before
// its departure (an as-of join). Observations are never interpolated and a
// later observation is never chosen, even when it is closer.
package domain
