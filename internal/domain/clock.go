package domain

import (
	"fmt"

	"github.com/jonboulle/clockwork"
)

// FirstYear is the first season published as origin-destination data.
const FirstYear = 2016

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// ValidateYear accepts FirstYear through the current calendar year.
func ValidateYear(year int) error {
	current := clock.Now().Year()
	if year < FirstYear || year > current {
		return fmt.Errorf("%w: %d (supported %d-%d)", ErrUnsupportedYear, year, FirstYear, current)
	}
	return nil
}
