package dispatch

import (
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/core/model"
)

// Reconcile attaches every eligible target missing from the assignment to
// the vehicle with minimum geodesic distance among those with spare seats.
// Remote optimizers can silently drop shipments; an evacuee must never be
// lost without being reported. Returns the targets no vehicle could take.
//
// Runs strictly after all remote assignments are finalized, so seat
// bookkeeping is unambiguous.
func Reconcile(asn *Assignment, vehicles []model.Vehicle, targets []model.Target) []model.Target {
	var unplaced []model.Target
	for _, t := range targets {
		if asn.Has(t.ID) {
			continue
		}
		best := -1
		bestDist := 0.0
		for i, v := range vehicles {
			if asn.Seats(v.ID) <= 0 {
				continue
			}
			d := geo.Haversine(v.Location, t.Location)
			if best == -1 || d < bestDist {
				best, bestDist = i, d
			}
		}
		if best == -1 {
			unplaced = append(unplaced, t)
			continue
		}
		asn.Take(vehicles[best].ID, t)
	}
	return unplaced
}
