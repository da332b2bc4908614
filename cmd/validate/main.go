// Command validate re-reads written yearly datasets and checks them against
// the pipeline's output guarantees: the speed formula, the absence of
// service stations, departure ordering, and as-of weather correctness against
// the raw weather file.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data -year 2018 [-year 2019 ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/citybike-etl/internal/config"
	"github.com/couchcryptid/citybike-etl/internal/domain"
)

// maxReported caps the per-phase error lines printed.
const maxReported = 25

// phase tracks pass/fail for a validation phase. Advisory phases report but
// never fail the run.
type phase struct {
	name     string
	advisory bool
	errors   []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type years []int

func (y *years) String() string { return fmt.Sprint(*y) }

func (y *years) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*y = append(*y, v)
	return nil
}

func main() {
	dataDir := flag.String("data-dir", "data", "data directory holding datasets/ and weather/")
	curationPath := flag.String("curation", "", "curation YAML (default: embedded)")
	offset := flag.Duration("offset", domain.HelsinkiOffset, "weather UTC offset used by the run")
	var ys years
	flag.Var(&ys, "year", "dataset year to validate (repeatable)")
	flag.Parse()

	if len(ys) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	curation, err := config.LoadCuration(*curationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load curation: %v\n", err)
		os.Exit(1)
	}

	code := 0
	for _, year := range ys {
		if c := run(*dataDir, year, curation, *offset); c != 0 {
			code = c
		}
	}
	os.Exit(code)
}

func run(dataDir string, year int, curation domain.Curation, offset time.Duration) int {
	ctx := context.Background()
	layout := csvfile.Layout{Dir: dataDir}

	fmt.Printf("=== City Bike Dataset Validation: %d ===\n\n", year)

	trips, err := csvfile.ReadDataset(ctx, layout.Dataset(year))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	// The station key does not matter here; only the weather table is read.
	rawWeather, _, err := csvfile.NewSource(dataDir, domain.KeyByName, slog.New(slog.DiscardHandler)).ExtractWeather(ctx, year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load weather: %v\n", err)
		return 1
	}
	weather, _ := domain.NormalizeWeather(rawWeather, offset)

	phases := []*phase{
		validateSpeed(trips),
		validateExcluded(trips, curation),
		validateOrdering(trips),
		validateAsOf(trips, weather),
		validateDurations(trips),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case !p.passed() && p.advisory:
			status = fmt.Sprintf("\033[33mWARN (%d rows)\033[0m", len(p.errors))
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	var sum domain.Summary
	sum.CountNulls(trips)
	fmt.Println()
	fmt.Printf("Rows: %d dataset, %d weather observations\n", len(trips), len(weather))
	fmt.Printf("Nulls: %d departure coords, %d return coords, %d temperature\n",
		sum.MissingDepartureCoords, sum.MissingReturnCoords, sum.MissingTemperature)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateSpeed(trips []domain.EnrichedTrip) *phase {
	p := &phase{name: "Average speed formula"}
	for i, t := range trips {
		want := domain.AverageSpeed(t.DistanceM, t.DurationSec)
		if !floatEq(want, t.AvgSpeedKmh) {
			p.errorf("row %d: avg_speed %g, expected %g", i+2, t.AvgSpeedKmh, want)
		}
	}
	return p
}

func validateExcluded(trips []domain.EnrichedTrip, curation domain.Curation) *phase {
	p := &phase{name: "Service stations excluded"}
	for i, t := range trips {
		for _, name := range []string{t.DepartureStationName, t.ReturnStationName} {
			if curation.Excluded(name) {
				p.errorf("row %d: station %q matches an excluded prefix", i+2, name)
			}
			if strings.TrimSpace(name) == "" {
				p.errorf("row %d: empty station name", i+2)
			}
		}
	}
	return p
}

func validateOrdering(trips []domain.EnrichedTrip) *phase {
	p := &phase{name: "Departure ordering (nulls last)"}
	var prev *time.Time
	sawNull := false
	for i, t := range trips {
		if t.Departure == nil {
			sawNull = true
			continue
		}
		if sawNull {
			p.errorf("row %d: departure after a null departure", i+2)
		}
		if prev != nil && t.Departure.Before(*prev) {
			p.errorf("row %d: departure %s before previous %s", i+2,
				t.Departure.Format(domain.TimestampLayout), prev.Format(domain.TimestampLayout))
		}
		prev = t.Departure
	}
	return p
}

// validateAsOf recomputes the nearest-prior observation for every departure
// by binary search and compares temperatures.
func validateAsOf(trips []domain.EnrichedTrip, weather []domain.WeatherObservation) *phase {
	p := &phase{name: "As-of weather join"}
	for i, t := range trips {
		var want *float64
		if t.Departure != nil {
			j := sort.Search(len(weather), func(k int) bool {
				return weather[k].Timestamp.After(*t.Departure)
			})
			if j > 0 {
				want = weather[j-1].AirTemperatureDegC
			}
		}
		if !ptrFloatEq(want, t.AirTemperatureDegC) {
			p.errorf("row %d: temperature %s, expected %s", i+2, ptrFloat(t.AirTemperatureDegC), ptrFloat(want))
		}
	}
	return p
}

func validateDurations(trips []domain.EnrichedTrip) *phase {
	p := &phase{name: "Return not before departure", advisory: true}
	for i, t := range trips {
		if t.Departure != nil && t.Return != nil && t.Return.Before(*t.Departure) {
			p.errorf("row %d: return %s before departure %s", i+2,
				t.Return.Format(domain.TimestampLayout), t.Departure.Format(domain.TimestampLayout))
		}
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func ptrFloatEq(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEq(*a, *b)
}

func ptrFloat(f *float64) string {
	if f == nil {
		return "<nil>"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
