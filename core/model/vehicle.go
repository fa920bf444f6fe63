package model

import (
	"fmt"

	"github.com/civigrid/evacd/core/geo"
)

// Vehicle represents a civil-service vehicle available for evacuation runs.
type Vehicle struct {
	ID            string
	Type          string // e.g. ambulance, fire_truck, police_car
	Plate         string
	Location      geo.Point
	TotalSeats    int
	OccupiedSeats int
	City          string // service area assigned for the current run, may be empty
}

// AvailableSeats returns the number of free seats, never negative.
func (v Vehicle) AvailableSeats() int {
	free := v.TotalSeats - v.OccupiedSeats
	if free < 0 {
		return 0
	}
	return free
}

// Validate checks that the seat counters are sound.
func (v Vehicle) Validate() error {
	if v.TotalSeats < 0 {
		return fmt.Errorf("vehicle %s: total seats must not be negative", v.ID)
	}
	if v.OccupiedSeats < 0 {
		return fmt.Errorf("vehicle %s: occupied seats must not be negative", v.ID)
	}
	return nil
}
