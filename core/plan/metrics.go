package plan

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	candidatesGenerated prometheus.Counter
	exclusionsTotal     *prometheus.CounterVec
	cooldownFiltered    prometheus.Counter
	solveDuration       prometheus.Histogram
	assignmentsSelected prometheus.Counter
	planNetScore        prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, prometheus.Histogram, prometheus.Counter, prometheus.Gauge) {
	cand := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plan_candidates_generated_total",
			Help: "Number of candidate triples generated",
		},
	)
	excl := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_exclusions_total",
			Help: "Number of input entities excluded from planning",
		},
		[]string{"reason"},
	)
	cool := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plan_cooldown_filtered_total",
			Help: "Number of candidate triples removed by the cooldown filter",
		},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plan_solve_duration_seconds",
			Help:    "Wall-clock duration of the assignment solve",
			Buckets: prometheus.DefBuckets,
		},
	)
	sel := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plan_assignments_selected_total",
			Help: "Number of assignments selected across runs",
		},
	)
	net := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plan_net_score",
			Help: "Net objective score of the latest run",
		},
	)
	return cand, excl, cool, dur, sel, net
}

func init() {
	candidatesGenerated, exclusionsTotal, cooldownFiltered, solveDuration, assignmentsSelected, planNetScore = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers planning metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(candidatesGenerated, exclusionsTotal, cooldownFiltered, solveDuration, assignmentsSelected, planNetScore)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	candidatesGenerated, exclusionsTotal, cooldownFiltered, solveDuration, assignmentsSelected, planNetScore = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
