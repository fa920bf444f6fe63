package model

import (
	"testing"
	"time"
)

func TestHazardZoneActiveAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	unbounded := HazardZone{}
	if !unbounded.ActiveAt(now) {
		t.Fatal("zone without a window should always be active")
	}

	open := HazardZone{Start: &past}
	if !open.ActiveAt(now) {
		t.Fatal("open-ended zone started in the past should be active")
	}

	ended := HazardZone{End: &past}
	if ended.ActiveAt(now) {
		t.Fatal("zone with end in the past should be inactive")
	}

	upcoming := HazardZone{Start: &future}
	if upcoming.ActiveAt(now) {
		t.Fatal("zone starting in the future should be inactive")
	}

	window := HazardZone{Start: &past, End: &future}
	if !window.ActiveAt(now) {
		t.Fatal("zone with window around now should be active")
	}
}

func TestVehicleAvailableSeats(t *testing.T) {
	v := Vehicle{ID: "v1", TotalSeats: 4, OccupiedSeats: 1}
	if got := v.AvailableSeats(); got != 3 {
		t.Fatalf("expected 3 seats, got %d", got)
	}
	over := Vehicle{ID: "v2", TotalSeats: 2, OccupiedSeats: 5}
	if got := over.AvailableSeats(); got != 0 {
		t.Fatalf("expected 0 seats for overbooked vehicle, got %d", got)
	}
	bad := Vehicle{ID: "v3", TotalSeats: -1}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for negative seats")
	}
}
