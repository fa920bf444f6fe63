package dispatch

import (
	"fmt"

	"github.com/civigrid/evacd/core/model"
)

// Assignment maps vehicles to their ordered picks within one planning run.
// Seat counters start from each vehicle's available seats and are
// decremented per pick. Built and discarded within a single run.
type Assignment struct {
	picks    map[string][]model.Target
	seats    map[string]int
	initial  map[string]int
	assigned map[string]string // target ID -> vehicle ID
	order    []string          // vehicle iteration order
}

// NewAssignment prepares empty pick lists for the given vehicles.
func NewAssignment(vehicles []model.Vehicle) *Assignment {
	a := &Assignment{
		picks:    make(map[string][]model.Target, len(vehicles)),
		seats:    make(map[string]int, len(vehicles)),
		initial:  make(map[string]int, len(vehicles)),
		assigned: make(map[string]string),
	}
	for _, v := range vehicles {
		if _, ok := a.seats[v.ID]; ok {
			continue
		}
		a.seats[v.ID] = v.AvailableSeats()
		a.initial[v.ID] = v.AvailableSeats()
		a.order = append(a.order, v.ID)
	}
	return a
}

// Seats returns the remaining free seats for the vehicle.
func (a *Assignment) Seats(vehicleID string) int { return a.seats[vehicleID] }

// Has reports whether the target is already assigned to some vehicle.
func (a *Assignment) Has(targetID string) bool {
	_, ok := a.assigned[targetID]
	return ok
}

// Take appends the target to the vehicle's picks and decrements its seat
// counter. It returns false when the vehicle has no seats left or the
// target is already assigned.
func (a *Assignment) Take(vehicleID string, t model.Target) bool {
	if a.seats[vehicleID] <= 0 || a.Has(t.ID) {
		return false
	}
	a.picks[vehicleID] = append(a.picks[vehicleID], t)
	a.seats[vehicleID]--
	a.assigned[t.ID] = vehicleID
	return true
}

// Picks returns the ordered pick list for the vehicle.
func (a *Assignment) Picks(vehicleID string) []model.Target { return a.picks[vehicleID] }

// Vehicles returns vehicle IDs in insertion order.
func (a *Assignment) Vehicles() []string { return a.order }

// Assigned returns the total number of assigned targets.
func (a *Assignment) Assigned() int { return len(a.assigned) }

// Merge folds the other assignment into this one. Vehicle and target sets
// of per-partition assignments are disjoint by construction.
func (a *Assignment) Merge(other *Assignment) {
	if other == nil {
		return
	}
	for _, id := range other.order {
		if _, ok := a.seats[id]; !ok {
			a.order = append(a.order, id)
			a.initial[id] = other.initial[id]
		}
		a.seats[id] = other.seats[id]
		a.picks[id] = append(a.picks[id], other.picks[id]...)
	}
	for tid, vid := range other.assigned {
		a.assigned[tid] = vid
	}
}

// CheckCapacity verifies that no vehicle holds more picks than its initial
// seat count. A violation is a programming error and fails the run.
func (a *Assignment) CheckCapacity() error {
	for id, picks := range a.picks {
		if len(picks) > a.initial[id] {
			return fmt.Errorf("vehicle %s assigned %d targets for %d seats", id, len(picks), a.initial[id])
		}
	}
	return nil
}
