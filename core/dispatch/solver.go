package dispatch

import (
	"github.com/civigrid/evacd/core/cost"
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/core/model"
)

// GreedySolver assigns targets to vehicles by repeatedly taking the
// globally cheapest pair among vehicles with spare seats and unassigned
// targets. O(V*T) per iteration; partitioning keeps both sides small.
type GreedySolver struct{}

// Assign computes a capacity-constrained assignment. Costs come from the
// matrix when present (vehicles as rows, targets as columns, in slice
// order), otherwise from pairwise geodesic distance. Ties keep the
// first pair found in vehicle-major scan order.
func (GreedySolver) Assign(vehicles []model.Vehicle, targets []model.Target, m *cost.Matrix) *Assignment {
	asn := NewAssignment(vehicles)
	remaining := make([]int, 0, len(targets))
	for i := range targets {
		remaining = append(remaining, i)
	}

	pairCost := func(vi, ti int) float64 {
		if m != nil {
			return m.At(vi, ti)
		}
		return geo.Haversine(vehicles[vi].Location, targets[ti].Location)
	}

	for len(remaining) > 0 {
		bestV, bestPos := -1, -1
		bestCost := 0.0
		for vi, v := range vehicles {
			if asn.Seats(v.ID) <= 0 {
				continue
			}
			for pos, ti := range remaining {
				c := pairCost(vi, ti)
				if bestV == -1 || c < bestCost {
					bestV, bestPos, bestCost = vi, pos, c
				}
			}
		}
		if bestV == -1 {
			break // no vehicle has capacity left
		}
		ti := remaining[bestPos]
		asn.Take(vehicles[bestV].ID, targets[ti])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return asn
}
