package metrics

import coremetrics "github.com/civigrid/evacd/core/metrics"

// MultiSink fanouts planning events to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.PlanSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.PlanSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordPlan(ev coremetrics.PlanEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlan(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRoutes forwards route events to all sinks.
func (m *MultiSink) RecordRoutes(evs []coremetrics.RouteEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRoutes(evs); err != nil {
			return err
		}
	}
	return nil
}
