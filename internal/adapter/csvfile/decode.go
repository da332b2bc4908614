// Package csvfile reads the yearly source tables from CSV and zip archives and
// writes the enriched dataset back to CSV.
package csvfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"go.uber.org/multierr"
)

// ctxCheckEvery is how many rows are decoded between cancellation checks.
const ctxCheckEvery = 10000

// column names a canonical field and the header spellings it accepts.
// Aliases are compared case-insensitively after trimming.
type column struct {
	name     string
	aliases  []string
	required bool
}

var tripColumns = []column{
	{name: "departure", aliases: []string{"departure"}, required: true},
	{name: "return", aliases: []string{"return"}, required: true},
	{name: "departure_id", aliases: []string{"departure station id", "departure_id"}, required: true},
	{name: "departure_name", aliases: []string{"departure station name", "departure_name"}, required: true},
	{name: "return_id", aliases: []string{"return station id", "return_id"}, required: true},
	{name: "return_name", aliases: []string{"return station name", "return_name"}, required: true},
	{name: "distance", aliases: []string{"covered distance (m)", "distance (m)"}, required: true},
	{name: "duration", aliases: []string{"duration (sec.)", "duration (sec)"}, required: true},
}

var weatherColumns = []column{
	{name: "year", aliases: []string{"year"}, required: true},
	{name: "month", aliases: []string{"m"}, required: true},
	{name: "day", aliases: []string{"d"}, required: true},
	{name: "time", aliases: []string{"time"}, required: true},
	{name: "zone", aliases: []string{"time zone"}, required: true},
	{name: "temperature", aliases: []string{"air temperature (degc)"}, required: true},
}

func stationColumns(key domain.StationKey) []column {
	return []column{
		{name: "id", aliases: []string{"id", "station id", "station_id"}, required: key == domain.KeyByID},
		{name: "name", aliases: []string{"name", "station name"}, required: key == domain.KeyByName},
		{name: "longitude", aliases: []string{"longitude", "x"}, required: true},
		{name: "latitude", aliases: []string{"latitude", "y"}, required: true},
	}
}

// row gives access to one record by canonical field name. Absent optional
// columns and short records read as "".
type row struct {
	idx    map[string]int
	record []string
}

func (r row) get(name string) string {
	i, ok := r.idx[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

// resolveHeader maps canonical names onto header positions. Every missing
// required column is reported in a single combined error.
func resolveHeader(header []string, cols []column) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := make(map[string]int, len(cols))
	var err error
	for _, c := range cols {
		found := false
		for _, a := range c.aliases {
			if i, ok := pos[a]; ok {
				idx[c.name] = i
				found = true
				break
			}
		}
		if !found && c.required {
			err = multierr.Append(err, fmt.Errorf("%w %q", domain.ErrMissingColumn, c.aliases[0]))
		}
	}
	return idx, err
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM drops a leading UTF-8 byte order mark; combined yearly files are
// written as utf-8-sig.
func skipBOM(r io.Reader) *bufio.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// lineRecords yields one CSV record per physical line. Each line is parsed
// on its own, so a stray quote spoils only its own line; quoted fields cannot
// span lines.
type lineRecords struct {
	br   *bufio.Reader
	line int
	eof  bool
}

// next returns the next non-blank record. A line the CSV
// parser rejects comes back as a *csv.ParseError; io.EOF ends the input.
func (l *lineRecords) next() ([]string, error) {
	for !l.eof {
		text, err := l.br.ReadString('\n')
		if errors.Is(err, io.EOF) {
			l.eof = true
		} else if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		l.line++
		if strings.TrimRight(text, "\r\n") == "" {
			continue
		}
		return parseLine(text, l.line)
	}
	return nil, io.EOF
}

func parseLine(text string, line int) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	record, err := cr.Read()
	if err == nil {
		return record, nil
	}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		perr.StartLine, perr.Line = line, line
		return nil, perr
	}
	return nil, &csv.ParseError{StartLine: line, Line: line, Err: err}
}

// decode reads a header plus records, building one T per record. Lines the
// CSV parser rejects are skipped and counted as malformed.
func decode[T any](ctx context.Context, r io.Reader, cols []column, build func(row) T) (out []T, malformed int, err error) {
	lr := &lineRecords{br: skipBOM(r)}

	header, err := lr.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, errors.New("empty table: no header row")
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	idx, err := resolveHeader(header, cols)
	if err != nil {
		return nil, 0, err
	}

	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}

		record, err := lr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			malformed++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read record: %w", err)
		}
		out = append(out, build(row{idx: idx, record: record}))
	}
	return out, malformed, nil
}

// DecodeTrips reads a trip table with any of the known header spellings.
func DecodeTrips(ctx context.Context, r io.Reader) ([]domain.RawTrip, int, error) {
	return decode(ctx, r, tripColumns, func(r row) domain.RawTrip {
		return domain.RawTrip{
			Departure:            r.get("departure"),
			Return:               r.get("return"),
			DepartureStationID:   r.get("departure_id"),
			DepartureStationName: r.get("departure_name"),
			ReturnStationID:      r.get("return_id"),
			ReturnStationName:    r.get("return_name"),
			DistanceM:            r.get("distance"),
			DurationSec:          r.get("duration"),
		}
	})
}

// DecodeStations reads the station reference table. The column required for
// the station key must be present; the other key column is optional.
func DecodeStations(ctx context.Context, r io.Reader, key domain.StationKey) ([]domain.StationRow, error) {
	rows, _, err := decode(ctx, r, stationColumns(key), func(r row) domain.StationRow {
		return domain.StationRow{
			ID:        r.get("id"),
			Name:      r.get("name"),
			Longitude: r.get("longitude"),
			Latitude:  r.get("latitude"),
		}
	})
	return rows, err
}

// DecodeWeather reads the raw hourly weather feed.
func DecodeWeather(ctx context.Context, r io.Reader) ([]domain.RawWeather, int, error) {
	return decode(ctx, r, weatherColumns, func(r row) domain.RawWeather {
		return domain.RawWeather{
			Year:           r.get("year"),
			Month:          r.get("month"),
			Day:            r.get("day"),
			Time:           r.get("time"),
			TimeZone:       r.get("zone"),
			AirTemperature: r.get("temperature"),
		}
	})
}
