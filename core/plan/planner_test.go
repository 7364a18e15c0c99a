package plan

import (
	"errors"
	"testing"

	"github.com/loanerfleet/loanerfleet/core/metrics"
	"github.com/loanerfleet/loanerfleet/core/model"
	"github.com/loanerfleet/loanerfleet/core/solver"
)

type testLogger struct{}

func (testLogger) Debugf(string, ...any)         {}
func (testLogger) Debugw(string, map[string]any) {}
func (testLogger) Infof(string, ...any)          {}
func (testLogger) Warnf(string, ...any)          {}
func (testLogger) Errorf(string, ...any)         {}

type captureSink struct {
	plans       []metrics.PlanRecord
	assignments []metrics.AssignmentRecord
}

func (c *captureSink) RecordPlan(rec metrics.PlanRecord) error {
	c.plans = append(c.plans, rec)
	return nil
}

func (c *captureSink) RecordAssignments(recs []metrics.AssignmentRecord) error {
	c.assignments = append(c.assignments, recs...)
	return nil
}

// weekBound confines every vehicle to a Monday start: a seven-day loan
// starting later would overrun the availability window.
func weekBound(v model.Vehicle) model.Vehicle {
	v.AvailableFrom = date(2025, 9, 22)
	v.AvailableUntil = date(2025, 9, 28)
	return v
}

func TestPlan_CapacityPicksTopScores(t *testing.T) {
	cfg := testConfig()
	ds := Dataset{
		Vehicles: []model.Vehicle{
			weekBound(model.Vehicle{VIN: "V1", Make: "Toyota", Model: "Camry", Office: "LA"}),
			weekBound(model.Vehicle{VIN: "V2", Make: "Honda", Model: "Civic", Office: "LA"}),
			weekBound(model.Vehicle{VIN: "V3", Make: "Subaru", Model: "Outback", Office: "LA"}),
		},
		Partners: []model.Partner{
			approvedPartner("P1", "LA", map[string]model.Rank{"Toyota": model.RankA}),
			approvedPartner("P2", "LA", map[string]model.Rank{"Honda": model.RankA}),
			approvedPartner("P3", "LA", map[string]model.Rank{"Subaru": model.RankB}),
		},
		CapacityDays: []model.CapacityDay{
			{Office: "LA", Date: date(2025, 9, 22), Slots: 2},
		},
	}
	sink := &captureSink{}
	p, err := NewPlanner(cfg, solver.NewAnneal(), sink, testLogger{})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	res, err := p.Plan(ds)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if len(res.Assignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(res.Assignments))
	}
	for _, a := range res.Assignments {
		if a.PartnerID == "P3" {
			t.Fatal("the B-rank candidate must lose the capacity race")
		}
	}
	if !res.Report.Breakdown.Optimal {
		t.Fatalf("expected proven optimal, bound gap remains")
	}
	if len(sink.plans) != 1 || len(sink.assignments) != 2 {
		t.Fatalf("sink records: %d plans, %d assignments", len(sink.plans), len(sink.assignments))
	}
}

func TestPlan_VINAssignedOnce(t *testing.T) {
	cfg := testConfig()
	ds := Dataset{
		Vehicles: []model.Vehicle{
			{VIN: "V1", Make: "Toyota", Model: "Camry", Office: "LA"},
		},
		Partners: []model.Partner{
			approvedPartner("P1", "LA", map[string]model.Rank{"Toyota": model.RankA}),
			approvedPartner("P2", "LA", map[string]model.Rank{"Toyota": model.RankA}),
			approvedPartner("P3", "LA", map[string]model.Rank{"Toyota": model.RankAPlus}),
		},
	}
	p, err := NewPlanner(cfg, solver.NewAnneal(), nil, testLogger{})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	res, err := p.Plan(ds)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(res.Assignments) != 1 {
		t.Fatalf("one vehicle must yield at most one loan, got %d", len(res.Assignments))
	}
	// The A+ partner carries the highest base score.
	if res.Assignments[0].PartnerID != "P3" {
		t.Fatalf("winner = %s, want P3", res.Assignments[0].PartnerID)
	}
}

func TestPlan_Deterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 11
	ds := Dataset{
		Vehicles: []model.Vehicle{
			{VIN: "V1", Make: "Toyota", Model: "Camry", Office: "LA"},
			{VIN: "V2", Make: "Toyota", Model: "RAV4", Office: "LA"},
			{VIN: "V3", Make: "Honda", Model: "Civic", Office: "LA"},
		},
		Partners: []model.Partner{
			approvedPartner("P1", "LA", map[string]model.Rank{"Toyota": model.RankA, "Honda": model.RankA}),
			approvedPartner("P2", "LA", map[string]model.Rank{"Toyota": model.RankA, "Honda": model.RankB}),
		},
	}

	p, err := NewPlanner(cfg, solver.NewAnneal(), nil, testLogger{})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	first, err := p.Plan(ds)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := p.Plan(ds)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if len(again.Assignments) != len(first.Assignments) {
			t.Fatalf("assignment count varies: %d vs %d", len(again.Assignments), len(first.Assignments))
		}
		for i := range first.Assignments {
			a, b := first.Assignments[i], again.Assignments[i]
			if a.VIN != b.VIN || a.PartnerID != b.PartnerID || !a.Start.Equal(b.Start) {
				t.Fatalf("assignment %d varies: %+v vs %+v", i, a, b)
			}
		}
	}
}

func TestPlan_PinnedConflictIsInfeasible(t *testing.T) {
	cfg := testConfig()
	ds := Dataset{
		Vehicles: []model.Vehicle{
			{VIN: "V1", Make: "Toyota", Model: "Camry", Office: "LA"},
		},
		Partners: []model.Partner{
			approvedPartner("P1", "LA", map[string]model.Rank{"Toyota": model.RankA}),
			approvedPartner("P2", "LA", map[string]model.Rank{"Toyota": model.RankA}),
		},
		Pinned: []model.PinnedAssignment{
			{VIN: "V1", PartnerID: "P1", Start: date(2025, 9, 22)},
			{VIN: "V1", PartnerID: "P2", Start: date(2025, 9, 23)},
		},
	}
	p, err := NewPlanner(cfg, solver.NewAnneal(), nil, testLogger{})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	_, err = p.Plan(ds)
	var infeasible *InfeasibleModelError
	if !errors.As(err, &infeasible) {
		t.Fatalf("err = %v, want InfeasibleModelError", err)
	}
	if !errors.Is(err, solver.ErrInfeasible) {
		t.Fatal("infeasible error must unwrap to the solver sentinel")
	}
}

func TestPlan_ExclusionsReported(t *testing.T) {
	cfg := testConfig()
	ds := Dataset{
		Vehicles: []model.Vehicle{
			{VIN: "V1", Office: "LA"}, // missing make
			{VIN: "V2", Make: "Toyota", Model: "Camry", Office: "LA"},
		},
		Partners: []model.Partner{
			{ID: "P1", Office: "LA"}, // missing rank table
			approvedPartner("P2", "LA", map[string]model.Rank{"Toyota": model.RankA}),
		},
	}
	p, err := NewPlanner(cfg, solver.NewAnneal(), nil, testLogger{})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	res, err := p.Plan(ds)
	if err != nil {
		t.Fatalf("per-entity data problems must not fail the run: %v", err)
	}
	if res.Report.ExclusionCounts[ReasonMissingMake] != 1 || res.Report.ExclusionCounts[ReasonMissingRanks] != 1 {
		t.Fatalf("exclusion counts = %+v", res.Report.ExclusionCounts)
	}
	if len(res.Assignments) == 0 {
		t.Fatal("healthy entities must still be planned")
	}
}

func TestPlan_CrossOfficeKeepsFleetScope(t *testing.T) {
	cfg := testConfig()
	cfg.CrossOffice = true
	ds := Dataset{
		Vehicles: []model.Vehicle{
			{VIN: "L1", Make: "Toyota", Model: "Camry", Office: "LA"},
			{VIN: "S1", Make: "Toyota", Model: "RAV4", Office: "SF"},
			{VIN: "S2", Make: "Honda", Model: "Civic", Office: "SF"},
		},
		Partners: []model.Partner{
			approvedPartner("P1", "LA", map[string]model.Rank{"Toyota": model.RankB, "Honda": model.RankB}),
			approvedPartner("P2", "SF", map[string]model.Rank{"Toyota": model.RankAPlus, "Honda": model.RankA}),
		},
	}
	p, err := NewPlanner(cfg, solver.NewAnneal(), nil, testLogger{})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	res, err := p.Plan(ds)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// Cross-office opens the run to out-of-office partners, never to
	// vehicles homed elsewhere: they belong to their own office's week.
	if len(res.Assignments) != 1 {
		t.Fatalf("assignments = %d, want 1", len(res.Assignments))
	}
	if a := res.Assignments[0]; a.VIN != "L1" || a.PartnerID != "P2" {
		t.Fatalf("assignment = %+v, want L1 to the A+ partner", a)
	}
}

// maxPerPartner returns the largest assignment count any partner received.
func maxPerPartner(res *Result) int {
	counts := make(map[string]int)
	max := 0
	for _, a := range res.Assignments {
		counts[a.PartnerID]++
		if counts[a.PartnerID] > max {
			max = counts[a.PartnerID]
		}
	}
	return max
}

func TestPlan_FairnessPenaltyMonotonic(t *testing.T) {
	ds := Dataset{
		Vehicles: []model.Vehicle{
			{VIN: "V1", Make: "Toyota", Model: "Camry", Office: "LA"},
			{VIN: "V2", Make: "Toyota", Model: "RAV4", Office: "LA"},
			{VIN: "V3", Make: "Toyota", Model: "Corolla", Office: "LA"},
		},
		Partners: []model.Partner{
			approvedPartner("P1", "LA", map[string]model.Rank{"Toyota": model.RankAPlus}),
			approvedPartner("P2", "LA", map[string]model.Rank{"Toyota": model.RankC}),
		},
	}
	solve := func(lambdaFair float64) int {
		cfg := testConfig()
		cfg.LambdaFair = lambdaFair
		p, err := NewPlanner(cfg, solver.NewAnneal(), nil, testLogger{})
		if err != nil {
			t.Fatalf("new planner: %v", err)
		}
		res, err := p.Plan(ds)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		return maxPerPartner(res)
	}
	prev := solve(1)
	for _, lambda := range []float64{120, 600, 2000} {
		cur := solve(lambda)
		if cur > prev {
			t.Fatalf("raising lambda_fair to %v increased the max per-partner count: %d > %d", lambda, cur, prev)
		}
		prev = cur
	}
}

func TestPlan_GeoWeightMonotonic(t *testing.T) {
	ds := Dataset{
		Vehicles: []model.Vehicle{
			{VIN: "V1", Make: "Toyota", Model: "Camry", Office: "LA"},
			{VIN: "V2", Make: "Toyota", Model: "RAV4", Office: "LA"},
		},
		Partners: []model.Partner{
			approvedPartner("PL", "LA", map[string]model.Rank{"Toyota": model.RankB}),
			approvedPartner("PS", "SF", map[string]model.Rank{"Toyota": model.RankA}),
		},
	}
	solve := func(weightGeo float64) (sameOffice, total int) {
		cfg := testConfig()
		cfg.CrossOffice = true
		cfg.WeightGeo = weightGeo
		p, err := NewPlanner(cfg, solver.NewAnneal(), nil, testLogger{})
		if err != nil {
			t.Fatalf("new planner: %v", err)
		}
		res, err := p.Plan(ds)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		for _, a := range res.Assignments {
			if a.PartnerID == "PL" {
				sameOffice++
			}
		}
		return sameOffice, len(res.Assignments)
	}
	lowSame, lowTotal := solve(100)
	highSame, highTotal := solve(400)
	if highTotal != lowTotal {
		t.Fatalf("raising weight_geo changed the assignment count: %d vs %d", highTotal, lowTotal)
	}
	if highSame < lowSame {
		t.Fatalf("raising weight_geo decreased the same-office share: %d < %d of %d", highSame, lowSame, lowTotal)
	}
	// With the stronger geo pull the same-office partner must win both.
	if highSame != 2 {
		t.Fatalf("same-office assignments at weight_geo=400: %d, want 2", highSame)
	}
}

func TestNewPlanner_Validation(t *testing.T) {
	if _, err := NewPlanner(testConfig(), nil, nil, testLogger{}); err == nil {
		t.Fatal("nil solver must be rejected")
	}

	bad := testConfig()
	bad.Office = ""
	_, err := NewPlanner(bad, solver.NewAnneal(), nil, testLogger{})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "office" {
		t.Fatalf("err = %v, want office ConfigurationError", err)
	}

	conflict := testConfig()
	conflict.HardFleets = []string{"GM"}
	conflict.SoftFleets = []string{"GM"}
	if _, err := NewPlanner(conflict, solver.NewAnneal(), nil, testLogger{}); err == nil {
		t.Fatal("hard/soft fleet overlap must be rejected")
	}
}
