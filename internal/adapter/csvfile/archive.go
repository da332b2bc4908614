package csvfile

import (
	"archive/zip"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/couchcryptid/citybike-etl/internal/domain"
)

// ReadTripArchive concatenates every monthly CSV inside a yearly zip archive,
// in entry-name order. Archive layouts differ between vintages (files at the
// root or under od-trips-YYYY/), so only the entry extension is significant.
func ReadTripArchive(ctx context.Context, zipPath string) ([]domain.RawTrip, int, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		entries = append(entries, f)
	}
	if len(entries) == 0 {
		return nil, 0, fmt.Errorf("archive %s contains no csv files", zipPath)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var (
		trips     []domain.RawTrip
		malformed int
	)
	for _, f := range entries {
		rows, bad, err := readArchiveEntry(ctx, f)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", f.Name, err)
		}
		trips = append(trips, rows...)
		malformed += bad
	}
	return trips, malformed, nil
}

func readArchiveEntry(ctx context.Context, f *zip.File) ([]domain.RawTrip, int, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()
	return DecodeTrips(ctx, rc)
}
