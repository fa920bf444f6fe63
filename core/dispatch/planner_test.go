package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civigrid/evacd/core/area"
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/core/model"
)

type nopLog struct{}

func (nopLog) Debugf(string, ...any)         {}
func (nopLog) Debugw(string, map[string]any) {}
func (nopLog) Infof(string, ...any)          {}
func (nopLog) Warnf(string, ...any)          {}
func (nopLog) Errorf(string, ...any)         {}

type stubHazards struct {
	zones []model.HazardZone
	err   error
}

func (s stubHazards) FetchHazards(context.Context) ([]model.HazardZone, error) {
	return s.zones, s.err
}

type stubTargets struct {
	targets []model.Target
	err     error
}

func (s stubTargets) FetchTargets(context.Context) ([]model.Target, error) {
	return s.targets, s.err
}

type stubVehicles struct {
	vehicles []model.Vehicle
	err      error
}

func (s stubVehicles) FetchVehicles(context.Context) ([]model.Vehicle, error) {
	return s.vehicles, s.err
}

type stubOptimizer struct {
	routes []OptimizedRoute
	err    error
}

func (s stubOptimizer) Solve(context.Context, []model.Vehicle, []model.Target) ([]OptimizedRoute, error) {
	return s.routes, s.err
}

func squareZone(minLon, minLat, maxLon, maxLat float64) model.HazardZone {
	return model.HazardZone{
		ID:   "hz",
		Name: "test zone",
		Geometry: geo.Geometry{
			Type: "Polygon",
			Polygons: []geo.Polygon{{
				geo.Ring{
					{Lon: minLon, Lat: minLat},
					{Lon: maxLon, Lat: minLat},
					{Lon: maxLon, Lat: maxLat},
					{Lon: minLon, Lat: maxLat},
					{Lon: minLon, Lat: minLat},
				},
			}},
		},
	}
}

func wideArea() *area.Partitioner {
	return area.NewPartitioner([]area.ServiceArea{
		{Name: "athens", Center: geo.Point{Lon: 1, Lat: 1}, RadiusKm: 5000},
	})
}

func basicDeps() Deps {
	return Deps{
		Hazards: stubHazards{zones: []model.HazardZone{squareZone(0, 0, 2, 2)}},
		Targets: []TargetSource{stubTargets{targets: []model.Target{
			{ID: "t1", Location: geo.Point{Lon: 1, Lat: 1}},
			{ID: "t2", Location: geo.Point{Lon: 1.2, Lat: 1.2}},
			{ID: "t3", Location: geo.Point{Lon: 1.9, Lat: 1.9}},
		}}},
		Vehicles: stubVehicles{vehicles: []model.Vehicle{
			{ID: "v1", Location: geo.Point{Lon: 0.9, Lat: 0.9}, TotalSeats: 2},
		}},
		Areas:  wideArea(),
		Logger: nopLog{},
	}
}

func TestNewPlanner_RequiredDeps(t *testing.T) {
	_, err := NewPlanner(Deps{Logger: nopLog{}})
	require.Error(t, err)

	deps := basicDeps()
	deps.Areas = nil
	_, err = NewPlanner(deps)
	require.Error(t, err)

	_, err = NewPlanner(basicDeps())
	require.NoError(t, err)
}

func TestPlan_LocalMode(t *testing.T) {
	p, err := NewPlanner(basicDeps())
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)

	require.Equal(t, model.ModeLocal, plan.Meta.Mode)
	require.Empty(t, plan.Meta.Reason)
	require.Equal(t, 1, plan.Meta.ActiveHazards)
	require.Equal(t, 3, plan.Meta.EligibleTargets)
	require.Equal(t, 2, plan.Meta.Assigned)
	require.Equal(t, 1, plan.Meta.Unassigned)
	require.Len(t, plan.Routes, 1)
	require.Len(t, plan.Stops, 3)
	require.Equal(t, "v1", plan.Routes[0].VehicleID)
	require.Equal(t, 0, plan.Stops[0].Sequence)
	// Greedy picks the two closest targets; the farthest is reported, not lost.
	require.Equal(t, "t1", plan.Stops[1].TargetID)
	require.Equal(t, "t2", plan.Stops[2].TargetID)
	require.NotEmpty(t, plan.Meta.RunID)
	require.GreaterOrEqual(t, plan.Meta.Duration, time.Duration(0))
}

func TestPlan_NoActiveHazards(t *testing.T) {
	deps := basicDeps()
	past := time.Now().Add(-2 * time.Hour)
	end := time.Now().Add(-time.Hour)
	zone := squareZone(0, 0, 2, 2)
	zone.Start, zone.End = &past, &end
	deps.Hazards = stubHazards{zones: []model.HazardZone{zone}}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, model.ReasonNoActiveHazards, plan.Meta.Reason)
	require.Empty(t, plan.Routes)
	require.NotNil(t, plan.Routes)
	require.NotNil(t, plan.Stops)
}

func TestPlan_NoEligibleTargets(t *testing.T) {
	deps := basicDeps()
	deps.Targets = []TargetSource{stubTargets{targets: []model.Target{
		{ID: "outside", Location: geo.Point{Lon: 50, Lat: 50}},
	}}}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, model.ReasonNoEligibleTargets, plan.Meta.Reason)
}

func TestPlan_NoCapacity(t *testing.T) {
	deps := basicDeps()
	deps.Vehicles = stubVehicles{vehicles: []model.Vehicle{
		{ID: "full", Location: geo.Point{Lon: 1, Lat: 1}, TotalSeats: 3, OccupiedSeats: 3},
	}}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, model.ReasonNoCapacity, plan.Meta.Reason)
}

func TestPlan_NoCapacityInSelected(t *testing.T) {
	p, err := NewPlanner(basicDeps())
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{VehicleIDs: []string{"no-such-vehicle"}})
	require.NoError(t, err)
	require.Equal(t, model.ReasonNoCapacityInSelected, plan.Meta.Reason)
}

func TestPlan_SourceFailureIsolated(t *testing.T) {
	deps := basicDeps()
	deps.Targets = append(deps.Targets, stubTargets{err: errors.New("context broker down")})

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, 3, plan.Meta.EligibleTargets)
	require.Equal(t, model.ModeLocal, plan.Meta.Mode)
}

func TestPlan_HazardFailureMeansNoHazards(t *testing.T) {
	deps := basicDeps()
	deps.Hazards = stubHazards{err: errors.New("timeout")}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, model.ReasonNoActiveHazards, plan.Meta.Reason)
}

func TestPlan_OptimizerMode(t *testing.T) {
	deps := basicDeps()
	deps.Optimizer = stubOptimizer{routes: []OptimizedRoute{
		{VehicleLabel: "v1", Steps: []OptimizedStep{
			{ShipmentLabel: "t3"},
		}},
	}}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, model.ModeOptimizer, plan.Meta.Mode)
	// The optimizer used one seat; reconciliation fills the other and
	// reports the remaining target.
	require.Equal(t, 2, plan.Meta.Assigned)
	require.Equal(t, 1, plan.Meta.Unassigned)
}

func TestPlan_OptimizerFailureFallsBackLocal(t *testing.T) {
	deps := basicDeps()
	deps.Optimizer = stubOptimizer{err: errors.New("solver unreachable")}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, model.ModeLocal, plan.Meta.Mode)
	require.Equal(t, 2, plan.Meta.Assigned)
}

func TestPlan_EmptyOptimizerResponseFallsBackLocal(t *testing.T) {
	deps := basicDeps()
	deps.Optimizer = stubOptimizer{}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, model.ModeLocal, plan.Meta.Mode)
}

func TestPlan_PartitionsIsolateAreas(t *testing.T) {
	deps := basicDeps()
	deps.Areas = area.NewPartitioner([]area.ServiceArea{
		{Name: "west", Center: geo.Point{Lon: 1, Lat: 1}, RadiusKm: 100},
		{Name: "east", Center: geo.Point{Lon: 40, Lat: 1}, RadiusKm: 100},
	})
	deps.Hazards = stubHazards{zones: []model.HazardZone{
		squareZone(0, 0, 2, 2),
		func() model.HazardZone {
			z := squareZone(39, 0, 41, 2)
			z.ID = "hz-east"
			return z
		}(),
	}}
	// Vehicle in the west, one target in each area. The eastern target has
	// no vehicle in its partition and must stay unassigned even though the
	// western vehicle has a spare seat.
	deps.Targets = []TargetSource{stubTargets{targets: []model.Target{
		{ID: "west-t", Location: geo.Point{Lon: 1, Lat: 1}},
		{ID: "east-t", Location: geo.Point{Lon: 40, Lat: 1}},
	}}}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, 1, plan.Meta.Assigned)
	require.Equal(t, 1, plan.Meta.Unassigned)
	require.Len(t, plan.Routes, 1)
	require.Equal(t, "west", plan.Routes[0].City)
}

func TestPlan_DedupAcrossSources(t *testing.T) {
	deps := basicDeps()
	dup := stubTargets{targets: []model.Target{
		{ID: "t1", Location: geo.Point{Lon: 1, Lat: 1}},
	}}
	deps.Targets = append(deps.Targets, dup)

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, 3, plan.Meta.EligibleTargets)
}

func TestPlan_VehicleFilterApplied(t *testing.T) {
	deps := basicDeps()
	deps.Vehicles = stubVehicles{vehicles: []model.Vehicle{
		{ID: "v1", Location: geo.Point{Lon: 0.9, Lat: 0.9}, TotalSeats: 2},
		{ID: "v2", Location: geo.Point{Lon: 1.1, Lat: 1.1}, TotalSeats: 5},
	}}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{VehicleIDs: []string{"v1"}})
	require.NoError(t, err)
	require.Equal(t, 1, plan.Meta.Vehicles)
	require.Len(t, plan.Routes, 1)
	require.Equal(t, "v1", plan.Routes[0].VehicleID)
}

func TestPlan_SkipsInvalidVehicles(t *testing.T) {
	deps := basicDeps()
	deps.Vehicles = stubVehicles{vehicles: []model.Vehicle{
		{ID: "bad", Location: geo.Point{Lon: 1, Lat: 1}, TotalSeats: -1},
		{ID: "v1", Location: geo.Point{Lon: 0.9, Lat: 0.9}, TotalSeats: 2},
	}}

	p, err := NewPlanner(deps)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, 1, plan.Meta.Vehicles)
}
