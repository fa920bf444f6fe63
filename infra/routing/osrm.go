// Package routing provides travel-time matrices and drivable paths from an
// OSRM-compatible routing host.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/civigrid/evacd/core/cost"
	"github.com/civigrid/evacd/core/dispatch"
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/infra/logger"
)

// Config holds the routing host endpoint.
type Config struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Profile string        `json:"profile" yaml:"profile"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Client talks to an OSRM-compatible host. It serves both the travel-time
// matrix and the drivable-path needs of a planning run.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

// NewClient creates a routing client. An empty profile defaults to driving.
func NewClient(cfg Config) *Client {
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.New("osrm"),
	}
}

// TravelTimes requests the full origins-by-destinations duration matrix in a
// single table call. Durations are seconds. Any unroutable pair fails the
// whole matrix; callers substitute geodesic costs.
func (c *Client) TravelTimes(ctx context.Context, origins, dests []geo.Point) (*cost.Matrix, error) {
	if len(origins) == 0 || len(dests) == 0 {
		return nil, fmt.Errorf("routing: empty origin or destination set")
	}
	points := make([]geo.Point, 0, len(origins)+len(dests))
	points = append(points, origins...)
	points = append(points, dests...)

	var srcIdx, dstIdx []string
	for i := range origins {
		srcIdx = append(srcIdx, strconv.Itoa(i))
	}
	for i := range dests {
		dstIdx = append(dstIdx, strconv.Itoa(len(origins)+i))
	}
	// url.Values percent-encodes the index separators; OSRM accepts the
	// encoded form and Go-side proxies reject the bare one.
	q := url.Values{}
	q.Set("sources", strings.Join(srcIdx, ";"))
	q.Set("destinations", strings.Join(dstIdx, ";"))
	q.Set("annotations", "duration")
	u := fmt.Sprintf("%s/table/v1/%s/%s?%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.Profile, coordPath(points), q.Encode())

	var body struct {
		Code      string       `json:"code"`
		Durations [][]*float64 `json:"durations"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, err
	}
	if body.Code != "Ok" {
		return nil, fmt.Errorf("routing: table response code %q", body.Code)
	}
	if len(body.Durations) != len(origins) {
		return nil, fmt.Errorf("routing: expected %d rows, got %d", len(origins), len(body.Durations))
	}

	data := make([]float64, 0, len(origins)*len(dests))
	for i, row := range body.Durations {
		if len(row) != len(dests) {
			return nil, fmt.Errorf("routing: row %d has %d cells, want %d", i, len(row), len(dests))
		}
		for j, cell := range row {
			if cell == nil {
				return nil, fmt.Errorf("routing: pair (%d,%d) unroutable", i, j)
			}
			data = append(data, *cell)
		}
	}
	return cost.New(len(origins), len(dests), data), nil
}

// Path requests a drivable path visiting the stops in order, with the full
// geometry. Distances convert to kilometres and durations to minutes.
func (c *Client) Path(ctx context.Context, stops []geo.Point) (*dispatch.RoutePath, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("routing: need at least 2 stops, got %d", len(stops))
	}
	u := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=geojson",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.Profile, coordPath(stops))

	var body struct {
		Code   string `json:"code"`
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, err
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, fmt.Errorf("routing: route response code %q with %d routes", body.Code, len(body.Routes))
	}

	r := body.Routes[0]
	geom := make([]geo.Point, 0, len(r.Geometry.Coordinates))
	for _, cpair := range r.Geometry.Coordinates {
		if len(cpair) < 2 {
			return nil, fmt.Errorf("routing: malformed geometry position")
		}
		geom = append(geom, geo.Point{Lon: cpair[0], Lat: cpair[1]})
	}
	return &dispatch.RoutePath{
		Geometry:    geom,
		DistanceKm:  r.Distance / 1000,
		DurationMin: r.Duration / 60,
	}, nil
}

// getJSON performs a GET with retry on transient failures (network errors,
// 429 and 5xx responses) using exponential backoff.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	const maxAttempts = 3
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("routing: build request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			if resp.StatusCode == http.StatusOK {
				defer resp.Body.Close()
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return fmt.Errorf("routing: decode response: %w", err)
				}
				return nil
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("routing: status %d", resp.StatusCode)
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return lastErr
			}
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return lastErr
}

func coordPath(points []geo.Point) string {
	parts := make([]string, 0, len(points))
	for _, p := range points {
		parts = append(parts, fmt.Sprintf("%f,%f", p.Lon, p.Lat))
	}
	return strings.Join(parts, ";")
}
