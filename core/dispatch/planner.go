package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civigrid/evacd/core/area"
	"github.com/civigrid/evacd/core/cost"
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/core/logger"
	"github.com/civigrid/evacd/core/metrics"
	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/internal/eventbus"
)

// Deps carries the collaborators a Planner needs. Hazards, Vehicles, at
// least one target source and the partitioner are mandatory; everything
// else degrades gracefully when absent.
type Deps struct {
	Hazards   HazardSource
	Targets   []TargetSource
	Vehicles  VehicleSource
	Matrix    MatrixProvider
	Paths     PathProvider
	Optimizer Optimizer
	Notifier  Notifier
	Areas     *area.Partitioner
	Logger    logger.Logger
	Sink      metrics.PlanSink
	Bus       *eventbus.Bus[Event]
}

// Planner coordinates one evacuation planning run: gather, filter,
// partition, solve, reconcile, build routes. Every run is a fresh,
// stateless computation over a snapshot of the collaborators.
type Planner struct {
	deps   Deps
	solver GreedySolver
	now    func() time.Time
}

// NewPlanner validates the dependencies and creates a Planner.
func NewPlanner(deps Deps) (*Planner, error) {
	if deps.Hazards == nil || deps.Vehicles == nil || len(deps.Targets) == 0 {
		return nil, fmt.Errorf("dispatch: hazard, vehicle and target sources are required")
	}
	if deps.Areas == nil {
		return nil, fmt.Errorf("dispatch: partitioner is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("dispatch: logger is required")
	}
	if deps.Sink == nil {
		deps.Sink = metrics.NopSink{}
	}
	return &Planner{deps: deps, now: time.Now}, nil
}

func (p *Planner) publish(runID, stage, detail string) {
	if p.deps.Bus != nil {
		p.deps.Bus.Publish(Event{RunID: runID, Stage: stage, Detail: detail})
	}
}

// Plan executes one dispatch planning run. Operational failures (empty
// data, unreachable providers) produce a structured plan, never an error;
// only internal invariant violations fail the run.
func (p *Planner) Plan(ctx context.Context, req Request) (model.Plan, error) {
	started := p.now()
	runID := uuid.NewString()
	plan := model.Plan{
		Routes: []model.Route{},
		Stops:  []model.Stop{},
		Meta:   model.Metadata{RunID: runID, StartedAt: started},
	}

	p.publish(runID, StageGathering, "")
	hazards, targets, vehicles := p.gather(ctx)

	now := p.now()
	var active []model.HazardZone
	for _, h := range hazards {
		if h.ActiveAt(now) {
			active = append(active, h)
		}
	}
	plan.Meta.ActiveHazards = len(active)
	if len(active) == 0 {
		return p.finish(ctx, plan, "", model.ReasonNoActiveHazards), nil
	}

	p.publish(runID, StageFiltering, "")
	eligible := eligibleTargetsIn(targets, active)
	plan.Meta.EligibleTargets = len(eligible)
	eligibleTargets.Set(float64(len(eligible)))
	if len(eligible) == 0 {
		return p.finish(ctx, plan, "", model.ReasonNoEligibleTargets), nil
	}

	fleet, filtered := selectFleet(vehicles, req.VehicleIDs, p.deps.Logger)
	plan.Meta.Vehicles = len(fleet)
	if len(fleet) == 0 {
		reason := model.ReasonNoCapacity
		if filtered {
			reason = model.ReasonNoCapacityInSelected
		}
		return p.finish(ctx, plan, "", reason), nil
	}

	p.publish(runID, StagePartitioning, "")
	for i := range fleet {
		fleet[i].City = p.deps.Areas.Locate(fleet[i].Location)
	}
	for i := range eligible {
		eligible[i].City = p.deps.Areas.Locate(eligible[i].Location)
	}

	asn, unplaced, mode := p.solve(ctx, runID, fleet, eligible)
	if err := asn.CheckCapacity(); err != nil {
		return model.Plan{}, fmt.Errorf("dispatch: capacity invariant violated: %w", err)
	}
	plan.Meta.Mode = mode
	plan.Meta.Assigned = asn.Assigned()
	plan.Meta.Unassigned = len(unplaced)
	unassignedGauge.Set(float64(len(unplaced)))

	p.publish(runID, StageRouting, "")
	plan.Routes, plan.Stops = p.buildRoutes(ctx, fleet, asn)

	return p.finish(ctx, plan, mode, ""), nil
}

// gather fetches hazards, targets and vehicles concurrently. Each fetch is
// isolated: a failing source contributes zero records and is logged, the
// run proceeds with the rest.
func (p *Planner) gather(ctx context.Context) ([]model.HazardZone, []model.Target, []model.Vehicle) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		hazards  []model.HazardZone
		targets  []model.Target
		vehicles []model.Vehicle
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		hs, err := p.deps.Hazards.FetchHazards(ctx)
		if err != nil {
			sourceFailures.WithLabelValues("hazards").Inc()
			p.deps.Logger.Errorf("hazard fetch failed: %v", err)
			return
		}
		mu.Lock()
		hazards = hs
		mu.Unlock()
	}()

	for i, src := range p.deps.Targets {
		wg.Add(1)
		go func(i int, src TargetSource) {
			defer wg.Done()
			ts, err := src.FetchTargets(ctx)
			if err != nil {
				sourceFailures.WithLabelValues("targets").Inc()
				p.deps.Logger.Errorf("target fetch %d failed: %v", i, err)
				return
			}
			mu.Lock()
			targets = append(targets, ts...)
			mu.Unlock()
		}(i, src)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		vs, err := p.deps.Vehicles.FetchVehicles(ctx)
		if err != nil {
			sourceFailures.WithLabelValues("vehicles").Inc()
			p.deps.Logger.Errorf("vehicle fetch failed: %v", err)
			return
		}
		mu.Lock()
		vehicles = vs
		mu.Unlock()
	}()

	wg.Wait()
	return hazards, targets, vehicles
}

// solve picks the remote optimizer when it yields routes, otherwise runs
// the local solver per partition. Exactly one path is taken per run.
func (p *Planner) solve(ctx context.Context, runID string, fleet []model.Vehicle, eligible []model.Target) (*Assignment, []model.Target, string) {
	p.publish(runID, StageSolving, "")
	if p.deps.Optimizer != nil {
		routes, err := p.deps.Optimizer.Solve(ctx, fleet, eligible)
		if err != nil {
			p.deps.Logger.Warnf("remote optimizer failed, solving locally: %v", err)
			p.publish(runID, StageSolving, "optimizer_degraded")
		} else if len(routes) > 0 {
			asn, unresolved := ResolveRoutes(routes, fleet, eligible)
			if unresolved > 0 {
				p.deps.Logger.Warnf("optimizer left %d steps unresolved", unresolved)
			}
			p.publish(runID, StageReconciling, "")
			unplaced := Reconcile(asn, fleet, eligible)
			return asn, unplaced, model.ModeOptimizer
		}
	}
	asn := p.solveLocal(ctx, fleet, eligible)
	var unplaced []model.Target
	for _, t := range eligible {
		if !asn.Has(t.ID) {
			unplaced = append(unplaced, t)
		}
	}
	return asn, unplaced, model.ModeLocal
}

// solveLocal runs the greedy solver independently per service area.
// Partitions are disjoint by construction, so they run concurrently.
// Unpartitioned vehicles and targets sit out the run.
func (p *Planner) solveLocal(ctx context.Context, fleet []model.Vehicle, eligible []model.Target) *Assignment {
	byCityV := make(map[string][]model.Vehicle)
	for _, v := range fleet {
		if v.City != "" {
			byCityV[v.City] = append(byCityV[v.City], v)
		}
	}
	byCityT := make(map[string][]model.Target)
	for _, t := range eligible {
		if t.City != "" {
			byCityT[t.City] = append(byCityT[t.City], t)
		}
	}

	global := NewAssignment(fleet)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for city, vs := range byCityV {
		ts := byCityT[city]
		if len(ts) == 0 {
			continue
		}
		wg.Add(1)
		go func(city string, vs []model.Vehicle, ts []model.Target) {
			defer wg.Done()
			m := p.travelTimes(ctx, vs, ts)
			asn := p.solver.Assign(vs, ts, m)
			mu.Lock()
			global.Merge(asn)
			mu.Unlock()
		}(city, vs, ts)
	}
	wg.Wait()
	return global
}

// travelTimes asks the matrix provider for batched travel times. On any
// failure the solver falls back to geodesic distance via a nil matrix.
func (p *Planner) travelTimes(ctx context.Context, vs []model.Vehicle, ts []model.Target) *cost.Matrix {
	if p.deps.Matrix == nil {
		return nil
	}
	origins := make([]geo.Point, len(vs))
	for i, v := range vs {
		origins[i] = v.Location
	}
	dests := make([]geo.Point, len(ts))
	for i, t := range ts {
		dests[i] = t.Location
	}
	m, err := p.deps.Matrix.TravelTimes(ctx, origins, dests)
	if err != nil {
		matrixFailures.Inc()
		p.deps.Logger.Warnf("travel-time matrix failed, using geodesic distance: %v", err)
		return nil
	}
	return m
}

// buildRoutes constructs routes for vehicles with picks. Each vehicle's
// route only touches its own data, so routes build concurrently.
func (p *Planner) buildRoutes(ctx context.Context, fleet []model.Vehicle, asn *Assignment) ([]model.Route, []model.Stop) {
	builder := NewRouteBuilder(p.deps.Paths, p.deps.Logger)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		routes []model.Route
		stops  []model.Stop
	)
	for _, v := range fleet {
		picks := asn.Picks(v.ID)
		if len(picks) == 0 {
			continue
		}
		wg.Add(1)
		go func(v model.Vehicle, picks []model.Target) {
			defer wg.Done()
			r, ss := builder.Build(ctx, v, picks)
			mu.Lock()
			routes = append(routes, r)
			stops = append(stops, ss...)
			mu.Unlock()
		}(v, picks)
	}
	wg.Wait()

	sort.Slice(routes, func(i, j int) bool { return routes[i].VehicleID < routes[j].VehicleID })
	sort.Slice(stops, func(i, j int) bool {
		if stops[i].VehicleID != stops[j].VehicleID {
			return stops[i].VehicleID < stops[j].VehicleID
		}
		return stops[i].Sequence < stops[j].Sequence
	})
	if routes == nil {
		routes = []model.Route{}
	}
	if stops == nil {
		stops = []model.Stop{}
	}
	return routes, stops
}

// finish stamps the metadata, records metrics, notifies downstream and
// publishes the terminal stage.
func (p *Planner) finish(ctx context.Context, plan model.Plan, mode, reason string) model.Plan {
	plan.Meta.Mode = firstNonEmpty(plan.Meta.Mode, mode)
	plan.Meta.Reason = reason
	plan.Meta.Duration = p.now().Sub(plan.Meta.StartedAt)
	if mode != "" {
		planRuns.WithLabelValues(mode).Inc()
	} else {
		planRuns.WithLabelValues("degenerate").Inc()
	}

	ev := metrics.PlanEvent{
		RunID:      plan.Meta.RunID,
		Mode:       plan.Meta.Mode,
		Reason:     reason,
		Vehicles:   plan.Meta.Vehicles,
		Hazards:    plan.Meta.ActiveHazards,
		Eligible:   plan.Meta.EligibleTargets,
		Assigned:   plan.Meta.Assigned,
		Unassigned: plan.Meta.Unassigned,
		Duration:   plan.Meta.Duration,
		Time:       plan.Meta.StartedAt,
	}
	if err := p.deps.Sink.RecordPlan(ev); err != nil {
		p.deps.Logger.Errorf("metrics error: %v", err)
	}
	if len(plan.Routes) > 0 {
		recs := make([]metrics.RouteEvent, 0, len(plan.Routes))
		for _, r := range plan.Routes {
			recs = append(recs, metrics.RouteEvent{
				RunID:      plan.Meta.RunID,
				VehicleID:  r.VehicleID,
				City:       r.City,
				Stops:      r.SeatsUsed + 1,
				DistanceKm: r.DistanceKm,
				Degraded:   r.DurationMin == nil,
				Time:       plan.Meta.StartedAt,
			})
		}
		if err := p.deps.Sink.RecordRoutes(recs); err != nil {
			p.deps.Logger.Errorf("metrics error: %v", err)
		}
	}

	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.NotifyPlan(ctx, plan); err != nil {
			p.deps.Logger.Warnf("plan notification failed: %v", err)
		}
	}
	p.publish(plan.Meta.RunID, StageDone, reason)
	return plan
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// eligibleTargetsIn returns targets located inside at least one active
// hazard zone, deduplicated by ID across sources.
func eligibleTargetsIn(targets []model.Target, active []model.HazardZone) []model.Target {
	seen := make(map[string]bool, len(targets))
	var eligible []model.Target
	for _, t := range targets {
		if seen[t.ID] {
			continue
		}
		for _, h := range active {
			if h.Covers(t.Location) {
				eligible = append(eligible, t)
				seen[t.ID] = true
				break
			}
		}
	}
	return eligible
}

// selectFleet validates vehicles, applies the optional ID filter and drops
// vehicles without free seats. Returns whether a filter was applied.
func selectFleet(vehicles []model.Vehicle, ids []string, log logger.Logger) ([]model.Vehicle, bool) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var fleet []model.Vehicle
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			log.Warnf("skipping vehicle: %v", err)
			continue
		}
		if len(wanted) > 0 && !wanted[v.ID] {
			continue
		}
		if v.AvailableSeats() == 0 {
			continue
		}
		fleet = append(fleet, v)
	}
	return fleet, len(wanted) > 0
}
