// Package metrics defines the sink interface used to record planning
// outcomes. Implementations live in infra/metrics and can be combined with
// a multi sink.
package metrics

import "time"

// PlanEvent summarises a completed planning run.
type PlanEvent struct {
	RunID      string
	Mode       string
	Reason     string
	Vehicles   int
	Hazards    int
	Eligible   int
	Assigned   int
	Unassigned int
	Duration   time.Duration
	Time       time.Time
}

// RouteEvent describes one built route.
type RouteEvent struct {
	RunID      string
	VehicleID  string
	City       string
	Stops      int
	DistanceKm float64
	Degraded   bool // straight-line fallback was used
	Time       time.Time
}

// PlanSink records planning outcomes.
type PlanSink interface {
	RecordPlan(PlanEvent) error
	RecordRoutes([]RouteEvent) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordPlan(PlanEvent) error      { return nil }
func (NopSink) RecordRoutes([]RouteEvent) error { return nil }
