package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/loanerfleet/loanerfleet/core/metrics"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	assignments *prometheus.CounterVec
	netScore    *prometheus.GaugeVec
	solveTime   *prometheus.HistogramVec
}

// NewPromSink registers planning metrics on the default Prometheus
// registerer. The Prometheus server should be started separately.
func NewPromSink() (coremetrics.PlanSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.PlanSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_plan_runs_total",
		Help: "Total number of planning runs",
	}, []string{"office", "optimal", "degraded"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_assignments_total",
		Help: "Total number of assignments selected",
	}, []string{"fleet", "pinned"})
	netScore := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loan_plan_net_score",
		Help: "Net objective score of the latest run per office",
	}, []string{"office"})
	solveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loan_plan_solve_seconds",
		Help:    "Solve duration of planning runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"office"})

	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(assignments); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			assignments = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(netScore); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			netScore = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(solveTime); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			solveTime = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{runs: runs, assignments: assignments, netScore: netScore, solveTime: solveTime}, nil
}

// RecordPlan increments the run counter and updates the score gauge.
func (s *PromSink) RecordPlan(rec coremetrics.PlanRecord) error {
	s.runs.WithLabelValues(rec.Office, strconv.FormatBool(rec.Optimal), strconv.FormatBool(rec.Degraded)).Inc()
	s.netScore.WithLabelValues(rec.Office).Set(rec.NetScore)
	s.solveTime.WithLabelValues(rec.Office).Observe(rec.SolveTime.Seconds())
	return nil
}

// RecordAssignments increments the per-fleet assignment counters.
func (s *PromSink) RecordAssignments(recs []coremetrics.AssignmentRecord) error {
	for _, r := range recs {
		s.assignments.WithLabelValues(r.Fleet, strconv.FormatBool(r.Pinned)).Inc()
	}
	return nil
}
