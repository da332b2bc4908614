package domain

import (
	"errors"
	"fmt"
)

// ErrMissingColumn marks a source table that lacks a required header.
var ErrMissingColumn = errors.New("missing required column")

// ErrUnsupportedYear is returned by ValidateYear for years outside the
// published range.
var ErrUnsupportedYear = errors.New("unsupported year")

// InputError is fatal for a yearly run: a source table is unreadable or does
// not carry the required columns. Nothing is written when it occurs.
type InputError struct {
	Table string // "trips", "stations" or "weather"
	Path  string
	Err   error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s input: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("%s input %s: %v", e.Table, e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// DuplicateKeyError reports a station key that appears in the reference
// table with two distinct coordinate pairs.
type DuplicateKeyError struct {
	Key      string
	Kept     Coordinates
	Rejected Coordinates
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate station key %q: kept (%g, %g), rejected (%g, %g)",
		e.Key, e.Kept.Latitude, e.Kept.Longitude, e.Rejected.Latitude, e.Rejected.Longitude)
}

// IsFatal reports whether err must abort a yearly run.
func IsFatal(err error) bool {
	var in *InputError
	return errors.As(err, &in) || errors.Is(err, ErrUnsupportedYear)
}
