package model

import (
	"time"

	"github.com/civigrid/evacd/core/geo"
)

// Reason codes for plans that carry no routes.
const (
	ReasonNoActiveHazards      = "no_active_hazards"
	ReasonNoEligibleTargets    = "no_eligible_targets"
	ReasonNoCapacity           = "no_capacity"
	ReasonNoCapacityInSelected = "no_capacity_in_selected"
)

// Solver modes reported in plan metadata.
const (
	ModeOptimizer = "optimizer"
	ModeLocal     = "local"
)

// Stop is a single visit in a vehicle's route. Sequence 0 is the vehicle's
// start position and carries no target.
type Stop struct {
	RouteID   string    `json:"route_id"`
	VehicleID string    `json:"vehicle_id"`
	TargetID  string    `json:"target_id,omitempty"`
	Sequence  int       `json:"sequence"`
	Location  geo.Point `json:"location"`
	City      string    `json:"city,omitempty"`
}

// Route is one vehicle's drivable evacuation path.
type Route struct {
	ID          string      `json:"id"`
	VehicleID   string      `json:"vehicle_id"`
	Plate       string      `json:"plate,omitempty"`
	City        string      `json:"city,omitempty"`
	SeatsUsed   int         `json:"seats_used"`
	Path        []geo.Point `json:"path"`
	DistanceKm  float64     `json:"distance_km"`
	DurationMin *float64    `json:"duration_min,omitempty"` // absent when routing degraded to straight lines
}

// Metadata summarises a planning run.
type Metadata struct {
	RunID           string        `json:"run_id"`
	Mode            string        `json:"mode,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	Vehicles        int           `json:"vehicles"`
	ActiveHazards   int           `json:"active_hazards"`
	EligibleTargets int           `json:"eligible_targets"`
	Assigned        int           `json:"assigned"`
	Unassigned      int           `json:"unassigned"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration_ns"`
}

// Plan is the result of one dispatch planning run. It is assembled and
// returned within a single invocation and never persisted.
type Plan struct {
	Routes []Route  `json:"routes"`
	Stops  []Stop   `json:"stops"`
	Meta   Metadata `json:"meta"`
}
