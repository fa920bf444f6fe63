package dispatch

import (
	"context"

	"github.com/civigrid/evacd/core/cost"
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/core/model"
)

// Request narrows a planning run to a subset of the fleet. An empty
// VehicleIDs list means the whole fleet.
type Request struct {
	VehicleIDs []string `json:"vehicle_ids,omitempty"`
}

// HazardSource returns the hazard zones to consider for a run.
type HazardSource interface {
	FetchHazards(ctx context.Context) ([]model.HazardZone, error)
}

// TargetSource returns evacuation targets. A planner may consume several
// sources; each fetch is isolated.
type TargetSource interface {
	FetchTargets(ctx context.Context) ([]model.Target, error)
}

// VehicleSource returns the current fleet state.
type VehicleSource interface {
	FetchVehicles(ctx context.Context) ([]model.Vehicle, error)
}

// MatrixProvider returns travel times between origins and destinations in a
// single batched call. Failures surface as errors; callers substitute
// geodesic costs.
type MatrixProvider interface {
	TravelTimes(ctx context.Context, origins, dests []geo.Point) (*cost.Matrix, error)
}

// RoutePath is a drivable path through an ordered list of stops.
type RoutePath struct {
	Geometry    []geo.Point
	DistanceKm  float64
	DurationMin float64
}

// PathProvider returns a drivable path visiting the stops in order.
type PathProvider interface {
	Path(ctx context.Context, stops []geo.Point) (*RoutePath, error)
}

// OptimizedStep references one shipment in a remote solver's visit
// sequence. The solver may reference the shipment by index into the request
// array, by the caller-supplied label, or not at all (positional order).
type OptimizedStep struct {
	ShipmentIndex *int
	ShipmentLabel string
}

// OptimizedRoute is one vehicle's visit sequence as returned by a remote
// solver, with the same loose referencing rules as OptimizedStep.
type OptimizedRoute struct {
	VehicleIndex *int
	VehicleLabel string
	Steps        []OptimizedStep
}

// Optimizer solves the capacity-constrained assignment remotely over the
// global, unpartitioned sets. An empty route list means the optimizer had
// nothing to offer and the caller should solve locally.
type Optimizer interface {
	Solve(ctx context.Context, vehicles []model.Vehicle, targets []model.Target) ([]OptimizedRoute, error)
}

// Notifier publishes the finished plan downstream.
type Notifier interface {
	NotifyPlan(ctx context.Context, plan model.Plan) error
}

// Run stages published on the event bus.
const (
	StageGathering    = "gathering_inputs"
	StageFiltering    = "filtering"
	StagePartitioning = "partitioning"
	StageSolving      = "solving"
	StageReconciling  = "reconciling"
	StageRouting      = "building_routes"
	StageDone         = "done"
)

// Event reports a run-stage transition or degradation on the event bus.
type Event struct {
	RunID  string
	Stage  string
	Detail string
}
