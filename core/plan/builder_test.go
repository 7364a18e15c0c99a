package plan

import (
	"math"
	"testing"
	"time"

	"github.com/loanerfleet/loanerfleet/core/model"
	"github.com/loanerfleet/loanerfleet/core/solver"
)

func bt(vin, partner string, start time.Time, score float64) model.Triple {
	return model.Triple{
		VIN: vin, PartnerID: partner, Start: start,
		Make: "Toyota", Model: "Camry", Fleet: "Toyota", Office: "LA",
		Rank: model.RankA, ShapedScore: score, EstimatedCost: 1500,
	}
}

func TestBuildModel_ExclusiveByVIN(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	triples := []model.Triple{
		bt("V1", "P1", date(2025, 9, 22), 900),
		bt("V1", "P2", date(2025, 9, 23), 880),
		bt("V2", "P1", date(2025, 9, 22), 870),
	}
	out := buildModel(triples, nil, nil, nil, cal, testRefConfig(), cfg)
	if len(out.Model.Exclusive) != 1 {
		t.Fatalf("exclusive groups = %d, want 1 (only V1 has two candidates)", len(out.Model.Exclusive))
	}
	if len(out.Model.Exclusive[0]) != 2 {
		t.Fatalf("V1 group size = %d", len(out.Model.Exclusive[0]))
	}
}

func TestBuildModel_SlotCapsPerDay(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	triples := []model.Triple{
		bt("V1", "P1", date(2025, 9, 22), 900),
		bt("V2", "P2", date(2025, 9, 22), 880),
		bt("V3", "P3", date(2025, 9, 23), 870),
	}
	out := buildModel(triples, nil, nil, nil, cal, testRefConfig(), cfg)
	if len(out.Model.SlotCaps) != 2 {
		t.Fatalf("slot caps = %d, want 2", len(out.Model.SlotCaps))
	}
	for _, sc := range out.Model.SlotCaps {
		if sc.Limit != 3 {
			t.Fatalf("weekday limit = %d, want 3", sc.Limit)
		}
	}
}

func TestBuildModel_CapHeadroomStep(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	triples := []model.Triple{
		bt("V1", "P1", date(2025, 9, 22), 900),
		bt("V2", "P1", date(2025, 9, 23), 880),
		bt("V3", "P1", date(2025, 9, 24), 870),
	}
	rules := []model.Rule{{Make: "Toyota", Rank: model.RankA, AnnualCap: 50}}
	usage := []model.UsageRecord{{PartnerID: "P1", Make: "Toyota", Used12m: 48}}

	out := buildModel(triples, usage, rules, nil, cal, testRefConfig(), cfg)

	var capStep *solver.StepCost
	for i := range out.Model.StepCosts {
		sc := &out.Model.StepCosts[i]
		if len(sc.Steps) == 1 && sc.Steps[0].Rate == cfg.LambdaCap {
			capStep = sc
		}
	}
	if capStep == nil {
		t.Fatal("tier-cap step cost missing")
	}
	// Headroom 50-48=2: only the third loan in the group is charged.
	if capStep.Steps[0].After != 2 {
		t.Fatalf("step after = %d, want 2", capStep.Steps[0].After)
	}
	if len(out.CapGroups) != 1 || out.CapGroups[0].Used != 48 || out.CapGroups[0].Cap != 50 {
		t.Fatalf("cap group = %+v", out.CapGroups)
	}
}

func TestBuildModel_NoStepWhenHeadroomCovers(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	triples := []model.Triple{bt("V1", "P1", date(2025, 9, 22), 900)}
	rules := []model.Rule{{Make: "Toyota", Rank: model.RankA, AnnualCap: 50}}

	out := buildModel(triples, nil, rules, nil, cal, testRefConfig(), cfg)
	for _, sc := range out.Model.StepCosts {
		if len(sc.Steps) == 1 && sc.Steps[0].Rate == cfg.LambdaCap {
			t.Fatal("step cost emitted although the cap cannot be exceeded")
		}
	}
}

func TestBuildModel_ZeroCapExclusion(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	rules := []model.Rule{{Make: "Toyota", Rank: model.RankA, AnnualCap: 0}}
	triples := []model.Triple{bt("V1", "P1", date(2025, 9, 22), 900)}

	out := buildModel(triples, nil, rules, nil, cal, testRefConfig(), cfg)
	if out.Model.NumVars() != 0 || out.ZeroCapDropped != 1 {
		t.Fatalf("zero-cap pair kept: vars=%d dropped=%d", out.Model.NumVars(), out.ZeroCapDropped)
	}

	cfg.ZeroCapOverride = true
	out = buildModel(triples, nil, rules, nil, cal, testRefConfig(), cfg)
	if out.Model.NumVars() != 1 || out.ZeroCapDropped != 0 {
		t.Fatal("override must keep zero-cap pairs")
	}

	cfg.ZeroCapOverride = false
	pinned := triples
	pinned[0].Pinned = true
	out = buildModel(pinned, nil, rules, nil, cal, testRefConfig(), cfg)
	if out.Model.NumVars() != 1 {
		t.Fatal("pinned decision must survive a zero cap")
	}
}

func TestBuildModel_FairnessStepped(t *testing.T) {
	cfg := testConfig() // stepped: 120 after 1, 400 after 2
	cal := buildCalendar(nil, cfg)
	triples := []model.Triple{
		bt("V1", "P1", date(2025, 9, 22), 900),
		bt("V2", "P1", date(2025, 9, 23), 880),
		bt("V3", "P1", date(2025, 9, 24), 870),
	}
	out := buildModel(triples, nil, nil, nil, cal, testRefConfig(), cfg)

	var fair *solver.StepCost
	for i := range out.Model.StepCosts {
		if len(out.Model.StepCosts[i].Steps) == 2 {
			fair = &out.Model.StepCosts[i]
		}
	}
	if fair == nil {
		t.Fatal("fairness step cost missing")
	}
	if fair.Cost(1) != 0 || fair.Cost(2) != 120 || fair.Cost(3) != 640 {
		t.Fatalf("fairness costs = %v %v %v", fair.Cost(1), fair.Cost(2), fair.Cost(3))
	}
}

func TestBuildModel_FairnessLinear(t *testing.T) {
	cfg := testConfig()
	cfg.FairnessMode = FairnessLinear
	cfg.FairnessTarget = 2
	cfg.LambdaFair = 100
	cal := buildCalendar(nil, cfg)
	triples := []model.Triple{
		bt("V1", "P1", date(2025, 9, 22), 900),
		bt("V2", "P1", date(2025, 9, 23), 880),
		bt("V3", "P1", date(2025, 9, 24), 870),
	}
	out := buildModel(triples, nil, nil, nil, cal, testRefConfig(), cfg)

	var fair *solver.StepCost
	for i := range out.Model.StepCosts {
		if len(out.Model.StepCosts[i].Steps) == 1 && out.Model.StepCosts[i].Steps[0].Rate == 100 {
			fair = &out.Model.StepCosts[i]
		}
	}
	if fair == nil {
		t.Fatal("linear fairness step cost missing")
	}
	if fair.Cost(2) != 0 || fair.Cost(3) != 100 {
		t.Fatalf("linear fairness costs = %v %v", fair.Cost(2), fair.Cost(3))
	}
}

func TestBuildModel_SoftBudget(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	used := 0.0
	budgets := []model.Budget{{Office: "LA", Fleet: "Toyota", Quarter: 3, Year: 2025, Amount: 2000, Used: &used}}
	triples := []model.Triple{
		bt("V1", "P1", date(2025, 9, 22), 900),
		bt("V2", "P2", date(2025, 9, 23), 880),
	}
	out := buildModel(triples, nil, nil, budgets, cal, testRefConfig(), cfg)

	if len(out.Model.SpendCosts) != 1 || len(out.Model.LinearCaps) != 0 {
		t.Fatalf("expected one soft budget term: %+v", out.Model)
	}
	sp := out.Model.SpendCosts[0]
	if sp.Free != 2000 || sp.Rate != 0.25 {
		t.Fatalf("spend term = %+v", sp)
	}
	// Both loans: $3000 spend, $1000 over, 250 points.
	if math.Abs(sp.Cost(3000)-250) > 1e-9 {
		t.Fatalf("overage cost = %v, want 250", sp.Cost(3000))
	}
}

func TestBuildModel_HardBudget(t *testing.T) {
	cfg := testConfig()
	cfg.HardFleets = []string{"Toyota"}
	cal := buildCalendar(nil, cfg)
	budgets := []model.Budget{{Office: "LA", Fleet: "Toyota", Quarter: 3, Year: 2025, Amount: 2000}}
	triples := []model.Triple{
		bt("V1", "P1", date(2025, 9, 22), 900),
		bt("V2", "P2", date(2025, 9, 23), 880),
	}
	out := buildModel(triples, nil, nil, budgets, cal, testRefConfig(), cfg)

	if len(out.Model.LinearCaps) != 1 || len(out.Model.SpendCosts) != 0 {
		t.Fatalf("expected one hard budget constraint: %+v", out.Model)
	}
	if out.Model.LinearCaps[0].Limit != 2000 {
		t.Fatalf("limit = %v", out.Model.LinearCaps[0].Limit)
	}
}

func TestBuildModel_OverdrawnBudgetFreezesSpend(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	used := 2500.0
	budgets := []model.Budget{{Office: "LA", Fleet: "Toyota", Quarter: 3, Year: 2025, Amount: 2000, Used: &used}}
	triples := []model.Triple{bt("V1", "P1", date(2025, 9, 22), 900)}

	out := buildModel(triples, nil, nil, budgets, cal, testRefConfig(), cfg)
	if len(out.Model.SpendCosts) != 1 || out.Model.SpendCosts[0].Free != 0 {
		t.Fatalf("overdrawn bucket must charge from the first dollar: %+v", out.Model.SpendCosts)
	}
}

func TestBuildModel_MissingBudget(t *testing.T) {
	cfg := testConfig()
	cal := buildCalendar(nil, cfg)
	triples := []model.Triple{bt("V1", "P1", date(2025, 9, 22), 900)}

	out := buildModel(triples, nil, nil, nil, cal, testRefConfig(), cfg)
	if len(out.Model.SpendCosts) != 0 && len(out.Model.LinearCaps) != 0 {
		t.Fatal("missing budget row must be unconstrained by default")
	}

	cfg.EnforceMissingBudget = true
	out = buildModel(triples, nil, nil, nil, cal, testRefConfig(), cfg)
	if len(out.Model.SpendCosts) != 1 || out.Model.SpendCosts[0].Free != 0 {
		t.Fatal("enforce_missing_budget must treat missing rows as zero")
	}
}
