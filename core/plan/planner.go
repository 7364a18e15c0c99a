package plan

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/loanerfleet/loanerfleet/core/logger"
	"github.com/loanerfleet/loanerfleet/core/metrics"
	"github.com/loanerfleet/loanerfleet/core/model"
	"github.com/loanerfleet/loanerfleet/core/solver"
)

// Dataset is the immutable input snapshot for one planning run.
type Dataset struct {
	Vehicles     []model.Vehicle
	Partners     []model.Partner
	Rules        []model.Rule
	Usage        []model.UsageRecord
	History      []model.LoanRecord
	CapacityDays []model.CapacityDay
	Budgets      []model.Budget
	Pinned       []model.PinnedAssignment
}

// Result is the full outcome of one planning run.
type Result struct {
	RunID       string             `json:"run_id"`
	Office      string             `json:"office"`
	WeekStart   time.Time          `json:"week_start"`
	Candidates  int                `json:"candidates"`
	Assignments []model.Assignment `json:"assignments"`
	Report      Report             `json:"report"`
	SolveTime   time.Duration      `json:"solve_time"`
	Workers     int                `json:"workers"`
	Iterations  int                `json:"iterations"`
}

// Planner runs the weekly assignment pipeline: candidate generation,
// cooldown filtering, capacity calendar, score shaping, model build, solve
// and audit. A Planner is safe for sequential reuse across weeks; each Plan
// call is self-contained.
type Planner struct {
	cfg  Config
	slv  solver.Solver
	sink metrics.PlanSink
	log  logger.Logger
}

// NewPlanner validates the configuration and assembles a planner.
func NewPlanner(cfg Config, slv solver.Solver, sink metrics.PlanSink, log logger.Logger) (*Planner, error) {
	if slv == nil || log == nil {
		return nil, fmt.Errorf("plan: nil parameter provided to NewPlanner")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Planner{cfg: cfg, slv: slv, sink: sink, log: log}, nil
}

// Plan computes the assignment set for the configured week. Per-entity data
// problems become exclusions in the report; only an unsatisfiable model or
// a broken configuration fails the run.
func (p *Planner) Plan(ds Dataset) (*Result, error) {
	cfg := p.cfg
	runID := uuid.NewString()
	p.log.Infof("planning week %s for office %s (run %s)", model.DayKey(cfg.WeekStart), cfg.Office, runID)

	rc := model.NewReferenceConfig(cfg.CostPerMake, cfg.DefaultCost)

	triples, exclusions := generateCandidates(ds.Vehicles, ds.Partners, rc, cfg)
	triples, pinnedExcl := mergePinned(triples, ds.Pinned, ds.Vehicles, ds.Partners, rc, cfg)
	exclusions = append(exclusions, pinnedExcl...)
	candidatesGenerated.Add(float64(len(triples)))
	p.log.Debugw("candidates generated", map[string]any{
		"count":      len(triples),
		"exclusions": len(exclusions),
		"pinned":     len(ds.Pinned),
	})

	triples, cooldownDropped := filterCooldown(triples, ds.History, cfg)
	cooldownFiltered.Add(float64(cooldownDropped))

	cal := buildCalendar(ds.CapacityDays, cfg)
	triples = shapeScores(triples, cfg)

	out := buildModel(triples, ds.Usage, ds.Rules, ds.Budgets, cal, rc, cfg)
	p.log.Debugw("model built", map[string]any{
		"vars":             out.Model.NumVars(),
		"exclusive_groups": len(out.Model.Exclusive),
		"slot_caps":        len(out.Model.SlotCaps),
		"step_costs":       len(out.Model.StepCosts),
		"zero_cap_dropped": out.ZeroCapDropped,
	})

	opts := solver.Options{
		Seed:       cfg.Seed,
		TimeLimit:  time.Duration(cfg.SolveTimeLimitSeconds) * time.Second,
		Workers:    cfg.Workers,
		Iterations: cfg.SearchIterations,
	}
	start := time.Now()
	sol, err := p.slv.Solve(out.Model, opts)
	solveTime := time.Since(start)
	solveDuration.Observe(solveTime.Seconds())
	if err != nil {
		if errors.Is(err, solver.ErrInfeasible) {
			return nil, &InfeasibleModelError{Cause: err}
		}
		return nil, fmt.Errorf("plan: solve failed: %w", err)
	}
	if sol.TimedOut {
		p.log.Warnf("solve hit the %s time limit; result is best-found, not proven optimal", opts.TimeLimit)
	}

	report := buildReport(out, sol, cal, cfg)
	report.Exclusions = exclusions
	report.CooldownDropped = cooldownDropped
	if len(exclusions) > 0 {
		report.ExclusionCounts = make(map[string]int)
		for _, e := range exclusions {
			report.ExclusionCounts[e.Reason]++
			exclusionsTotal.WithLabelValues(e.Reason).Inc()
		}
	}

	res := &Result{
		RunID:       runID,
		Office:      cfg.Office,
		WeekStart:   model.Day(cfg.WeekStart),
		Candidates:  out.Model.NumVars(),
		Assignments: selectedAssignments(out.Triples, sol.Selected),
		Report:      report,
		SolveTime:   solveTime,
		Workers:     opts.Workers,
		Iterations:  sol.Iterations,
	}
	assignmentsSelected.Add(float64(len(res.Assignments)))
	planNetScore.Set(report.Breakdown.NetScore)
	p.record(res)

	p.log.Infof("run %s selected %d assignments, net score %.1f (optimal=%t, degraded=%t)",
		runID, len(res.Assignments), report.Breakdown.NetScore, report.Breakdown.Optimal, report.Breakdown.Degraded)
	return res, nil
}

// selectedAssignments projects the chosen triples into the output entity,
// ordered by start day, then score, then VIN for a stable report.
func selectedAssignments(triples []model.Triple, selected []bool) []model.Assignment {
	var out []model.Assignment
	for i, t := range triples {
		if !selected[i] {
			continue
		}
		out = append(out, model.Assignment{
			VIN:           t.VIN,
			PartnerID:     t.PartnerID,
			Start:         t.Start,
			Make:          t.Make,
			Fleet:         t.Fleet,
			Score:         t.ShapedScore,
			EstimatedCost: t.EstimatedCost,
			Pinned:        t.Pinned,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].VIN < out[j].VIN
	})
	return out
}

// record forwards the run to the configured sink. Sink failures are logged,
// never fatal: the plan already exists.
func (p *Planner) record(res *Result) {
	rec := metrics.PlanRecord{
		RunID:       res.RunID,
		Office:      res.Office,
		WeekStart:   res.WeekStart,
		Candidates:  res.Candidates,
		Assignments: len(res.Assignments),
		NetScore:    res.Report.Breakdown.NetScore,
		Optimal:     res.Report.Breakdown.Optimal,
		Degraded:    res.Report.Breakdown.Degraded,
		SolveTime:   res.SolveTime,
		Time:        time.Now(),
	}
	if err := p.sink.RecordPlan(rec); err != nil {
		p.log.Errorf("record plan: %v", err)
	}
	if ar, ok := p.sink.(metrics.AssignmentRecorder); ok {
		recs := make([]metrics.AssignmentRecord, len(res.Assignments))
		for i, a := range res.Assignments {
			recs[i] = metrics.AssignmentRecord{
				RunID:         res.RunID,
				VIN:           a.VIN,
				PartnerID:     a.PartnerID,
				Make:          a.Make,
				Fleet:         a.Fleet,
				Start:         a.Start,
				Score:         a.Score,
				EstimatedCost: a.EstimatedCost,
				Pinned:        a.Pinned,
			}
		}
		if err := ar.RecordAssignments(recs); err != nil {
			p.log.Errorf("record assignments: %v", err)
		}
	}
	if er, ok := p.sink.(metrics.ExclusionRecorder); ok && len(res.Report.ExclusionCounts) > 0 {
		var recs []metrics.ExclusionRecord
		for _, reason := range sortedKeys(res.Report.ExclusionCounts) {
			recs = append(recs, metrics.ExclusionRecord{RunID: res.RunID, Reason: reason, Count: res.Report.ExclusionCounts[reason]})
		}
		if err := er.RecordExclusions(recs); err != nil {
			p.log.Errorf("record exclusions: %v", err)
		}
	}
}
