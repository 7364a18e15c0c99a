package metrics

import "time"

// PlanRecord summarizes one planning run.
type PlanRecord struct {
	RunID       string
	Office      string
	WeekStart   time.Time
	Candidates  int
	Assignments int
	NetScore    float64
	Optimal     bool
	Degraded    bool
	SolveTime   time.Duration
	Time        time.Time
}

// PlanSink records planning runs for observability purposes.
type PlanSink interface {
	RecordPlan(rec PlanRecord) error
}

// AssignmentRecord is one selected assignment within a run.
type AssignmentRecord struct {
	RunID         string
	VIN           string
	PartnerID     string
	Make          string
	Fleet         string
	Start         time.Time
	Score         float64
	EstimatedCost float64
	Pinned        bool
}

// AssignmentRecorder records the selected assignments of a run.
type AssignmentRecorder interface {
	RecordAssignments(recs []AssignmentRecord) error
}

// ExclusionRecord counts excluded input entities by reason.
type ExclusionRecord struct {
	RunID  string
	Reason string
	Count  int
}

// ExclusionRecorder records exclusion counts of a run.
type ExclusionRecorder interface {
	RecordExclusions(recs []ExclusionRecord) error
}

// NopSink implements PlanSink and the optional recorders with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlan(PlanRecord) error                { return nil }
func (NopSink) RecordAssignments([]AssignmentRecord) error { return nil }
func (NopSink) RecordExclusions([]ExclusionRecord) error   { return nil }

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []PlanSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...PlanSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordPlan(rec PlanRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlan(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordAssignments forwards assignment records to sinks that support them.
func (m *MultiSink) RecordAssignments(recs []AssignmentRecord) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AssignmentRecorder); ok {
			if err := rec.RecordAssignments(recs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordExclusions forwards exclusion counts to sinks that support them.
func (m *MultiSink) RecordExclusions(recs []ExclusionRecord) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ExclusionRecorder); ok {
			if err := rec.RecordExclusions(recs); err != nil {
				return err
			}
		}
	}
	return nil
}
