package dispatch

import "github.com/civigrid/evacd/core/model"

// Remote solvers are loose about how they reference request entities: some
// echo indexes into the request arrays, some echo caller-supplied labels,
// some rely on positional order. Resolution tries each documented strategy
// in turn and never guesses beyond them.

// resolveVehicle maps a route entry back to a vehicle. routePos is the
// entry's position in the response, used as the positional fallback only
// when the entry carries no index and no label: an explicit reference that
// matches nothing must not silently become a different vehicle.
func resolveVehicle(r OptimizedRoute, routePos int, vehicles []model.Vehicle) (model.Vehicle, bool) {
	if r.VehicleIndex != nil && *r.VehicleIndex >= 0 && *r.VehicleIndex < len(vehicles) {
		return vehicles[*r.VehicleIndex], true
	}
	if r.VehicleLabel != "" {
		for _, v := range vehicles {
			if v.ID == r.VehicleLabel || v.Plate == r.VehicleLabel {
				return v, true
			}
		}
	}
	if r.VehicleIndex == nil && r.VehicleLabel == "" && routePos >= 0 && routePos < len(vehicles) {
		return vehicles[routePos], true
	}
	return model.Vehicle{}, false
}

// resolveTarget maps a step back to a target, stepPos being the step's
// position within its route.
func resolveTarget(s OptimizedStep, stepPos int, targets []model.Target) (model.Target, bool) {
	if s.ShipmentIndex != nil && *s.ShipmentIndex >= 0 && *s.ShipmentIndex < len(targets) {
		return targets[*s.ShipmentIndex], true
	}
	if s.ShipmentLabel != "" {
		for _, t := range targets {
			if t.ID == s.ShipmentLabel {
				return t, true
			}
		}
	}
	if s.ShipmentIndex == nil && s.ShipmentLabel == "" && stepPos >= 0 && stepPos < len(targets) {
		return targets[stepPos], true
	}
	return model.Target{}, false
}

// ResolveRoutes converts a remote solver's routes into an Assignment over
// the request's vehicle and target arrays. Entries that resolve to no
// vehicle are skipped entirely; steps that resolve to no target, or whose
// vehicle is already full, are left unassigned for reconciliation to pick
// up. Returns the number of unresolved steps.
func ResolveRoutes(routes []OptimizedRoute, vehicles []model.Vehicle, targets []model.Target) (*Assignment, int) {
	asn := NewAssignment(vehicles)
	unresolved := 0
	for pos, r := range routes {
		v, ok := resolveVehicle(r, pos, vehicles)
		if !ok {
			unresolved += len(r.Steps)
			continue
		}
		for stepPos, s := range r.Steps {
			t, ok := resolveTarget(s, stepPos, targets)
			if !ok {
				unresolved++
				continue
			}
			if !asn.Take(v.ID, t) {
				unresolved++
			}
		}
	}
	return asn, unresolved
}
