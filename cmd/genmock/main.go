// Command genmock writes a small deterministic data directory (trip table or
// monthly archive, station reference, hourly weather) for smoke runs of
// tripetl. The generated trips deliberately include the conditions the
// pipeline must handle: service stations, renamed stations, stations missing
// from the reference, incomplete rows and unparseable timestamps.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -year 2018 -trips 2000 [-zip]
package main

import (
	"archive/zip"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/citybike-etl/internal/domain"
)

// Season bounds: bikes are on the street from April through October.
const (
	firstMonth = time.April
	lastMonth  = time.October
)

var stations = []domain.StationRow{
	{ID: "1", Name: "Kaivopuisto", Longitude: "24.9502", Latitude: "60.1553"},
	{ID: "2", Name: "Laivasillankatu", Longitude: "24.9561", Latitude: "60.1609"},
	{ID: "3", Name: "Kapteeninpuistikko", Longitude: "24.9443", Latitude: "60.1588"},
	{ID: "4", Name: "Viiskulma", Longitude: "24.9414", Latitude: "60.1608"},
	{ID: "5", Name: "Sepänkatu", Longitude: "24.9365", Latitude: "60.1579"},
	{ID: "6", Name: "Hietalahdentori", Longitude: "24.9298", Latitude: "60.1624"},
	{ID: "7", Name: "Designmuseo", Longitude: "24.9466", Latitude: "60.1632"},
	{ID: "8", Name: "Vanha kirkkopuisto", Longitude: "24.9393", Latitude: "60.1653"},
	{ID: "9", Name: "Erottajan aukio", Longitude: "24.9441", Latitude: "60.1667"},
	{ID: "10", Name: "Kasarmitori", Longitude: "24.9488", Latitude: "60.1654"},
	{ID: "11", Name: "Unioninkatu", Longitude: "24.9503", Latitude: "60.1661"},
	{ID: "12", Name: "Kanavaranta", Longitude: "24.9562", Latitude: "60.1674"},
	{ID: "13", Name: "Kalasatama (M) / Sörnäinen", Longitude: "24.977", Latitude: "60.1874"},
}

// Names that exercise the cleaning stages rather than resolve directly.
var (
	oldNames     = []string{"Kalasatama (M)"}
	serviceNames = []string{"Workshop Helsinki", "Bike Production", "Pop-Up Kaivopuisto"}
	unknownNames = []string{"Uusi asema"}
)

var tripHeader = []string{
	"Departure", "Return",
	"Departure station id", "Departure station name",
	"Return station id", "Return station name",
	"Covered distance (m)", "Duration (sec.)",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "data directory to write")
	year := flag.Int("year", 2018, "season to generate")
	count := flag.Int("trips", 2000, "number of trip rows")
	asZip := flag.Bool("zip", false, "write a monthly zip archive instead of the combined CSV")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *count <= 0 {
		flag.Usage()
		return fmt.Errorf("-trips must be positive")
	}

	rng := rand.New(rand.NewPCG(*seed, uint64(*year)))
	layout := csvfile.Layout{Dir: *out}

	if _, err := csvfile.WriteStations(*out, stations); err != nil {
		return err
	}

	byMonth := genTrips(rng, *year, *count)
	if *asZip {
		if err := writeArchive(layout.TripArchive(*year), *year, byMonth); err != nil {
			return err
		}
	} else {
		var all [][]string
		for m := firstMonth; m <= lastMonth; m++ {
			all = append(all, byMonth[m]...)
		}
		if err := writeCSVFile(layout.CombinedTrips(*year), tripHeader, all); err != nil {
			return err
		}
	}

	if err := writeCSVFile(layout.Weather(*year), weatherHeader(), genWeather(rng, *year)); err != nil {
		return err
	}

	fmt.Printf("Wrote %d trips for %d to %s\n", *count, *year, *out)
	return nil
}

// genTrips returns trip records grouped by departure month.
func genTrips(rng *rand.Rand, year, count int) map[time.Month][][]string {
	start := time.Date(year, firstMonth, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, lastMonth+1, 1, 0, 0, 0, 0, time.UTC)
	span := end.Sub(start)

	byMonth := make(map[time.Month][][]string)
	for range count {
		dep := start.Add(time.Duration(rng.Int64N(int64(span)))).Truncate(time.Second)
		from := stations[rng.IntN(len(stations))]
		to := stations[rng.IntN(len(stations))]
		distance := 300 + rng.IntN(6000)
		duration := distance/4 + rng.IntN(600) + 1
		ret := dep.Add(time.Duration(duration) * time.Second)

		rec := []string{
			dep.Format("2006-01-02T15:04:05"),
			ret.Format("2006-01-02T15:04:05"),
			padID(from.ID), from.Name,
			padID(to.ID), to.Name,
			strconv.Itoa(distance), strconv.Itoa(duration),
		}

		// Roughly one row in ten carries a condition to clean up.
		switch rng.IntN(40) {
		case 0:
			rec[3] = serviceNames[rng.IntN(len(serviceNames))]
		case 1:
			rec[3] = oldNames[rng.IntN(len(oldNames))]
		case 2:
			rec[5] = unknownNames[rng.IntN(len(unknownNames))]
		case 3:
			rec[6] = ""
		case 4:
			rec[0] = "not-a-date"
		}

		m := dep.Month()
		byMonth[m] = append(byMonth[m], rec)
	}
	return byMonth
}

// padID reproduces the zero-padded ids of the published tables.
func padID(id string) string {
	n, err := strconv.Atoi(id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("%03d", n)
}

func weatherHeader() []string {
	return []string{"Year", "m", "d", "Time", "Time zone", "Air temperature (degC)"}
}

// genWeather produces hourly UTC observations with a daily cycle. About one
// in a hundred readings is missing.
func genWeather(rng *rand.Rand, year int) [][]string {
	start := time.Date(year, firstMonth, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, lastMonth+1, 1, 0, 0, 0, 0, time.UTC)

	var rows [][]string
	for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
		seasonal := 15 - 8*math.Cos(2*math.Pi*float64(ts.YearDay()-15)/365)
		daily := 4 * math.Sin(2*math.Pi*float64(ts.Hour()-9)/24)
		temp := math.Round((seasonal+daily+rng.NormFloat64())*10) / 10

		value := strconv.FormatFloat(temp, 'f', 1, 64)
		if rng.IntN(100) == 0 {
			value = ""
		}
		rows = append(rows, []string{
			strconv.Itoa(ts.Year()), strconv.Itoa(int(ts.Month())), strconv.Itoa(ts.Day()),
			ts.Format("15:04"), "UTC", value,
		})
	}
	return rows
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSV(f, header, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// writeArchive lays the monthly tables out the way the published archives
// do: od-trips-YYYY/YYYY-MM.csv.
func writeArchive(path string, year int, byMonth map[time.Month][][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for m := firstMonth; m <= lastMonth; m++ {
		entry, err := zw.Create(fmt.Sprintf("od-trips-%d/%d-%02d.csv", year, year, int(m)))
		if err != nil {
			return err
		}
		if err := writeCSV(entry, tripHeader, byMonth[m]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}
