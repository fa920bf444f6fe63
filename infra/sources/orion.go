// Package sources reads hazard zones, evacuation targets and fleet state
// from a FIWARE Orion context broker over the NGSI-v2 API.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/infra/logger"
)

// Config holds the broker endpoint and the FIWARE scoping headers.
type Config struct {
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	ServicePath string        `json:"service_path" yaml:"service_path"`
	Service     string        `json:"service" yaml:"service"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// Client is a minimal NGSI-v2 read client.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

// NewClient creates a client for the given broker.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.New("orion"),
	}
}

// entities fetches all entities of the given type in normalized NGSI-v2
// representation.
func (c *Client) entities(ctx context.Context, entityType string) ([]rawEntity, error) {
	u := fmt.Sprintf("%s/v2/entities?type=%s&limit=1000",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), url.QueryEscape(entityType))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("orion: build request: %w", err)
	}
	if c.cfg.ServicePath != "" {
		req.Header.Set("Fiware-ServicePath", c.cfg.ServicePath)
	}
	if c.cfg.Service != "" {
		req.Header.Set("Fiware-Service", c.cfg.Service)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("orion: fetch %s: %w", entityType, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orion: fetch %s: unexpected status %d", entityType, resp.StatusCode)
	}

	var out []rawEntity
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("orion: decode %s: %w", entityType, err)
	}
	return out, nil
}

// rawEntity is one normalized NGSI-v2 entity: id and type plus attributes
// of the form {"type": ..., "value": ...}.
type rawEntity map[string]json.RawMessage

type attribute struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (e rawEntity) id() string {
	var s string
	_ = json.Unmarshal(e["id"], &s)
	return s
}

func (e rawEntity) attr(name string) (attribute, bool) {
	raw, ok := e[name]
	if !ok {
		return attribute{}, false
	}
	var a attribute
	if err := json.Unmarshal(raw, &a); err != nil {
		return attribute{}, false
	}
	return a, true
}

func (e rawEntity) text(name string) string {
	a, ok := e.attr(name)
	if !ok {
		return ""
	}
	var s string
	_ = json.Unmarshal(a.Value, &s)
	return s
}

func (e rawEntity) integer(name string) int {
	a, ok := e.attr(name)
	if !ok {
		return 0
	}
	var n int
	_ = json.Unmarshal(a.Value, &n)
	return n
}

func (e rawEntity) timestamp(name string) *time.Time {
	a, ok := e.attr(name)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(a.Value, &s); err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// point parses a geo:json Point attribute.
func (e rawEntity) point(name string) (geo.Point, error) {
	a, ok := e.attr(name)
	if !ok {
		return geo.Point{}, fmt.Errorf("missing attribute %s", name)
	}
	var v struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(a.Value, &v); err != nil {
		return geo.Point{}, fmt.Errorf("attribute %s: %w", name, err)
	}
	if v.Type != "Point" || len(v.Coordinates) < 2 {
		return geo.Point{}, fmt.Errorf("attribute %s: not a valid Point", name)
	}
	return geo.Point{Lon: v.Coordinates[0], Lat: v.Coordinates[1]}, nil
}

// geometry parses a geo:json Polygon or MultiPolygon attribute.
func (e rawEntity) geometry(name string) (geo.Geometry, error) {
	a, ok := e.attr(name)
	if !ok {
		return geo.Geometry{}, fmt.Errorf("missing attribute %s", name)
	}
	var v struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(a.Value, &v); err != nil {
		return geo.Geometry{}, fmt.Errorf("attribute %s: %w", name, err)
	}
	return geo.ParseGeometry(v.Type, v.Coordinates)
}
