package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	planRuns        *prometheus.CounterVec
	eligibleTargets prometheus.Gauge
	unassignedGauge prometheus.Gauge
	matrixFailures  prometheus.Counter
	routesDegraded  prometheus.Counter
	sourceFailures  *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Gauge, prometheus.Gauge, prometheus.Counter, prometheus.Counter, *prometheus.CounterVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evacd_plan_runs_total",
			Help: "Number of completed planning runs",
		},
		[]string{"mode"},
	)
	eligible := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "evacd_eligible_targets",
			Help: "Eligible targets in the last planning run",
		},
	)
	unassigned := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "evacd_unassigned_targets",
			Help: "Targets left unassigned in the last planning run",
		},
	)
	matrix := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evacd_matrix_failures_total",
			Help: "Travel-time matrix requests that fell back to geodesic distance",
		},
	)
	degraded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evacd_routes_degraded_total",
			Help: "Routes built from straight-line segments after a routing failure",
		},
	)
	sources := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evacd_source_fetch_failures_total",
			Help: "Collaborator fetches that returned an error",
		},
		[]string{"source"},
	)
	return runs, eligible, unassigned, matrix, degraded, sources
}

func init() {
	planRuns, eligibleTargets, unassignedGauge, matrixFailures, routesDegraded, sourceFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(planRuns, eligibleTargets, unassignedGauge, matrixFailures, routesDegraded, sourceFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	planRuns, eligibleTargets, unassignedGauge, matrixFailures, routesDegraded, sourceFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
