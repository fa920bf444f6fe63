// Package config loads the service configuration from a YAML or JSON file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/civigrid/evacd/core/area"
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/infra/mqtt"
	"github.com/civigrid/evacd/infra/optimizer"
	"github.com/civigrid/evacd/infra/routing"
	"github.com/civigrid/evacd/infra/sources"
)

type Config struct {
	Sources   SourcesConfig   `json:"sources"`
	Areas     []AreaConfig    `json:"areas"`
	Routing   RoutingConfig   `json:"routing"`
	Cache     CacheConfig     `json:"cache"`
	Optimizer OptimizerConfig `json:"optimizer"`
	Notify    NotifyConfig    `json:"notify"`
	Metrics   MetricsConfig   `json:"metrics"`
	API       APIConfig       `json:"api"`
}

// SourcesConfig describes the context broker and the entity types to read.
// Each target type becomes its own isolated source.
type SourcesConfig struct {
	Orion       sources.Config `json:"orion"`
	HazardType  string         `json:"hazard_type"`
	TargetTypes []string       `json:"target_types"`
	VehicleType string         `json:"vehicle_type"`
}

func (c *SourcesConfig) SetDefaults() {
	if len(c.TargetTypes) == 0 {
		c.TargetTypes = []string{""}
	}
}

func (c *SourcesConfig) Validate() error {
	if c.Orion.BaseURL == "" {
		return fmt.Errorf("sources: orion base_url is required")
	}
	return nil
}

// AreaConfig is one service area: a named center with a coverage radius.
type AreaConfig struct {
	Name     string  `json:"name"`
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	RadiusKm float64 `json:"radius_km"`
}

func validateAreas(areas []AreaConfig) error {
	if len(areas) == 0 {
		return fmt.Errorf("areas: at least one service area is required")
	}
	seen := make(map[string]bool, len(areas))
	for _, a := range areas {
		if a.Name == "" {
			return fmt.Errorf("areas: name is required")
		}
		if seen[a.Name] {
			return fmt.Errorf("areas: duplicate name %q", a.Name)
		}
		seen[a.Name] = true
		if a.RadiusKm <= 0 {
			return fmt.Errorf("areas: %s: radius_km must be positive", a.Name)
		}
	}
	return nil
}

// ServiceAreas converts the configured areas into the partitioner's form.
func (c *Config) ServiceAreas() []area.ServiceArea {
	out := make([]area.ServiceArea, 0, len(c.Areas))
	for _, a := range c.Areas {
		out = append(out, area.ServiceArea{
			Name:     a.Name,
			Center:   geo.Point{Lon: a.Lon, Lat: a.Lat},
			RadiusKm: a.RadiusKm,
		})
	}
	return out
}

// RoutingConfig enables the OSRM-compatible routing host.
type RoutingConfig struct {
	Enabled bool          `json:"enabled"`
	BaseURL string        `json:"base_url"`
	Profile string        `json:"profile"`
	Timeout time.Duration `json:"timeout"`
}

// ClientConfig converts to the routing client's form.
func (c RoutingConfig) ClientConfig() routing.Config {
	return routing.Config{BaseURL: c.BaseURL, Profile: c.Profile, Timeout: c.Timeout}
}

// CacheConfig enables the Redis matrix cache.
type CacheConfig struct {
	Enabled  bool          `json:"enabled"`
	Addr     string        `json:"addr"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

// ClientConfig converts to the cache's form.
func (c CacheConfig) ClientConfig() routing.CacheConfig {
	return routing.CacheConfig{Addr: c.Addr, Password: c.Password, DB: c.DB, TTL: c.TTL}
}

// OptimizerConfig enables the remote solving service.
type OptimizerConfig struct {
	Enabled bool          `json:"enabled"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// ClientConfig converts to the optimizer client's form.
func (c OptimizerConfig) ClientConfig() optimizer.Config {
	return optimizer.Config{BaseURL: c.BaseURL, Timeout: c.Timeout}
}

// NotifyConfig enables MQTT plan notifications.
type NotifyConfig struct {
	Enabled bool        `json:"enabled"`
	MQTT    mqtt.Config `json:"mqtt"`
}

// MetricsConfig configures the InfluxDB sink. Prometheus collectors are
// always registered and exposed by the HTTP API.
type MetricsConfig struct {
	InfluxEnabled bool   `json:"influx_enabled"`
	InfluxURL     string `json:"influx_url"`
	InfluxToken   string `json:"influx_token"`
	InfluxOrg     string `json:"influx_org"`
	InfluxBucket  string `json:"influx_bucket"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Addr string `json:"addr"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Load reads the configuration file, applies EVACD_* environment overrides
// (double underscore as the section separator) and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("EVACD_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "evacd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Sources.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Sources.Validate(); err != nil {
		return nil, err
	}
	if err := validateAreas(cfg.Areas); err != nil {
		return nil, err
	}
	return &cfg, nil
}
