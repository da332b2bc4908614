// Package hsl downloads the published trip archives and the station reference
// list from Helsinki Region Transport endpoints.
package hsl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	defaultAttempts = 3
	initialBackoff  = time.Second
	maxBackoff      = 10 * time.Second
)

// ErrNotPublished is returned when no archive exists for the requested year.
var ErrNotPublished = errors.New("trip archive not published")

// Client fetches source data over HTTP.
type Client struct {
	httpClient   *http.Client
	tripsBaseURL string
	stationsURL  string
	attempts     int
	backoff      time.Duration
	logger       *slog.Logger
}

// NewClient creates an HSL client. timeout bounds each whole request,
// including the archive body.
func NewClient(tripsBaseURL, stationsURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tripsBaseURL: strings.TrimSuffix(tripsBaseURL, "/"),
		stationsURL:  stationsURL,
		attempts:     defaultAttempts,
		backoff:      initialBackoff,
		logger:       logger,
	}
}

// ArchiveURL returns the download location of a yearly trip archive.
func (c *Client) ArchiveURL(year int) string {
	return fmt.Sprintf("%s/od-trips-%d/od-trips-%d.zip", c.tripsBaseURL, year, year)
}

// DownloadTrips stores the yearly archive at dst. The body is written to a
// temporary file in the same directory and renamed on success.
func (c *Client) DownloadTrips(ctx context.Context, year int, dst string) (err error) {
	if err := domain.ValidateYear(year); err != nil {
		return err
	}

	resp, err := c.get(ctx, c.ArchiveURL(year))
	if err != nil {
		return fmt.Errorf("download %d archive: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %d", ErrNotPublished, year)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return fmt.Errorf("download %d archive: %w", year, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return err
	}
	c.logger.Info("trip archive downloaded", "year", year, "path", dst, "bytes", n)
	return nil
}

// FetchStations retrieves the current station list. Coordinates are kept as
// text so the reference table round-trips without float formatting drift.
func (c *Client) FetchStations(ctx context.Context) ([]domain.StationRow, error) {
	resp, err := c.get(ctx, c.stationsURL)
	if err != nil {
		return nil, fmt.Errorf("station request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var body stationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Stations) == 0 {
		return nil, errors.New("station response contains no stations")
	}

	rows := make([]domain.StationRow, 0, len(body.Stations))
	for _, s := range body.Stations {
		rows = append(rows, domain.StationRow{
			ID:        string(s.ID),
			Name:      string(s.Name),
			Longitude: string(s.X),
			Latitude:  string(s.Y),
		})
	}
	c.logger.Info("stations fetched", "count", len(rows))
	return rows, nil
}

// get issues a GET, retrying transport failures and 5xx responses with
// exponential backoff. The last response or error is returned as is.
func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		retryable := err != nil || resp.StatusCode >= http.StatusInternalServerError
		if !retryable || attempt >= c.attempts || ctx.Err() != nil {
			return resp, err
		}

		if err != nil {
			c.logger.Warn("request failed, retrying", "url", u, "attempt", attempt, "error", err)
		} else {
			c.logger.Warn("request failed, retrying", "url", u, "attempt", attempt, "status", resp.StatusCode)
			_ = resp.Body.Close()
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("hsl API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

// Station API response types.

type stationsResponse struct {
	Stations []station `json:"stations"`
}

type station struct {
	ID   text `json:"id"`
	Name text `json:"name"`
	X    text `json:"x"` // longitude
	Y    text `json:"y"` // latitude
}

// text accepts either a JSON string or a JSON number; the endpoint has served
// both for ids and coordinates.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}
