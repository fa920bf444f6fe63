// Package optimizer adapts a VROOM-compatible solving service to the
// planner's optimizer port.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/civigrid/evacd/core/dispatch"
	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/logger"
)

// Config holds the solver endpoint.
type Config struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Client submits the global assignment problem to the remote solver.
// Vehicles and jobs are numbered by their position in the request arrays and
// labeled with their domain IDs, so responses resolve by index or by label.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.New("vroom"),
	}
}

type solveVehicle struct {
	ID          int       `json:"id"`
	Description string    `json:"description"`
	Start       []float64 `json:"start"`
	Capacity    []int     `json:"capacity"`
}

type solveJob struct {
	ID          int       `json:"id"`
	Description string    `json:"description"`
	Location    []float64 `json:"location"`
	Delivery    []int     `json:"delivery"`
}

type solveRequest struct {
	Vehicles []solveVehicle `json:"vehicles"`
	Jobs     []solveJob     `json:"jobs"`
}

type solveStep struct {
	Type        string `json:"type"`
	ID          *int   `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
}

type solveRoute struct {
	Vehicle     *int        `json:"vehicle,omitempty"`
	Description string      `json:"description,omitempty"`
	Steps       []solveStep `json:"steps"`
}

type solveResponse struct {
	Code   int          `json:"code"`
	Error  string       `json:"error,omitempty"`
	Routes []solveRoute `json:"routes"`
}

// Solve submits all vehicles and targets and maps the response back onto the
// request ordering.
func (c *Client) Solve(ctx context.Context, vehicles []model.Vehicle, targets []model.Target) ([]dispatch.OptimizedRoute, error) {
	if len(vehicles) == 0 || len(targets) == 0 {
		return nil, nil
	}

	req := solveRequest{
		Vehicles: make([]solveVehicle, 0, len(vehicles)),
		Jobs:     make([]solveJob, 0, len(targets)),
	}
	for i, v := range vehicles {
		req.Vehicles = append(req.Vehicles, solveVehicle{
			ID:          i,
			Description: v.ID,
			Start:       []float64{v.Location.Lon, v.Location.Lat},
			Capacity:    []int{v.AvailableSeats()},
		})
	}
	for i, t := range targets {
		req.Jobs = append(req.Jobs, solveJob{
			ID:          i,
			Description: t.ID,
			Location:    []float64{t.Location.Lon, t.Location.Lat},
			Delivery:    []int{1},
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("optimizer: marshal request: %w", err)
	}
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("optimizer: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("optimizer: solve: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("optimizer: solve: unexpected status %d", resp.StatusCode)
	}

	var body solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("optimizer: decode response: %w", err)
	}
	if body.Code != 0 {
		return nil, fmt.Errorf("optimizer: solver code %d: %s", body.Code, body.Error)
	}

	routes := make([]dispatch.OptimizedRoute, 0, len(body.Routes))
	for _, r := range body.Routes {
		or := dispatch.OptimizedRoute{
			VehicleIndex: r.Vehicle,
			VehicleLabel: r.Description,
		}
		for _, s := range r.Steps {
			if s.Type != "job" {
				continue
			}
			or.Steps = append(or.Steps, dispatch.OptimizedStep{
				ShipmentIndex: s.ID,
				ShipmentLabel: s.Description,
			})
		}
		routes = append(routes, or)
	}
	return routes, nil
}
