package plan

import (
	"math"
	"sort"
	"strconv"

	"github.com/loanerfleet/loanerfleet/core/model"
	"github.com/loanerfleet/loanerfleet/core/solver"
)

// capGroup tracks one (partner, make) pair for the cap table. Cap is
// model.UnlimitedCap for uncapped tiers.
type capGroup struct {
	PartnerID string
	Make      string
	Used      int
	Cap       int
	Vars      []int
}

// budgetGroup tracks one (office, fleet, quarter) spend bucket.
type budgetGroup struct {
	Office    string
	Fleet     string
	Quarter   int
	Year      int
	HasBudget bool
	Amount    float64
	Used      float64
	Free      float64 // max(0, remaining); +Inf when unconstrained
	Hard      bool
	Vars      []int
	Coeffs    []float64
}

// buildOutput is the solver model plus the bookkeeping the audit reporter
// projects from.
type buildOutput struct {
	Model          solver.Model
	Triples        []model.Triple
	ZeroCapDropped int
	CapGroups      []capGroup
	BudgetGroups   []budgetGroup
}

// buildModel turns the surviving triples into one binary optimization
// model: VIN at-most-one groups, per-day slot ceilings, tier-cap and
// fairness step costs, and budget spend terms (soft penalty or hard
// constraint per bucket).
func buildModel(triples []model.Triple, usage []model.UsageRecord, rules []model.Rule, budgets []model.Budget, cal *Calendar, rc *model.ReferenceConfig, cfg Config) buildOutput {
	ruleCaps := make(map[string]int, len(rules))
	for _, r := range rules {
		ruleCaps[r.Make+"|"+string(r.Rank)] = r.AnnualCap
	}
	used12m := make(map[string]int, len(usage))
	for _, u := range usage {
		used12m[u.PartnerID+"|"+u.Make] = u.Used12m
	}

	resolveCap := func(t model.Triple) int {
		if cap, ok := ruleCaps[t.Make+"|"+string(t.Rank)]; ok {
			return cap
		}
		if cap, capped := rc.RankCap(t.Rank); capped {
			return cap
		}
		return model.UnlimitedCap
	}

	out := buildOutput{}

	// Zero-cap pairs are structural exclusions unless override mode keeps
	// them in, where they feed the cap penalty with no ceiling. Pinned
	// decisions always survive.
	for _, t := range triples {
		if resolveCap(t) == 0 && !cfg.ZeroCapOverride && !t.Pinned {
			out.ZeroCapDropped++
			continue
		}
		out.Triples = append(out.Triples, t)
	}

	n := len(out.Triples)
	m := solver.Model{Scores: make([]float64, n)}
	for i, t := range out.Triples {
		m.Scores[i] = t.ShapedScore
		if t.Pinned {
			m.Pinned = append(m.Pinned, i)
		}
	}

	// VIN uniqueness.
	byVIN := groupBy(out.Triples, func(t model.Triple) string { return t.VIN })
	for _, key := range sortedKeys(byVIN) {
		if vars := byVIN[key]; len(vars) > 1 {
			m.Exclusive = append(m.Exclusive, vars)
		}
	}

	// Daily capacity, including zero-slot blackout days.
	byDay := groupBy(out.Triples, func(t model.Triple) string { return model.DayKey(t.Start) })
	for _, key := range sortedKeys(byDay) {
		vars := byDay[key]
		m.SlotCaps = append(m.SlotCaps, solver.SlotCap{
			Vars:  vars,
			Limit: cal.Slots(out.Triples[vars[0]].Start),
		})
	}

	// Tier-cap delta overage: only overage newly introduced by this run is
	// charged, so the step starts at the remaining headroom.
	byPair := groupBy(out.Triples, func(t model.Triple) string { return t.PartnerID + "|" + t.Make })
	for _, key := range sortedKeys(byPair) {
		vars := byPair[key]
		t := out.Triples[vars[0]]
		cap := resolveCap(t)
		used := used12m[key]
		out.CapGroups = append(out.CapGroups, capGroup{
			PartnerID: t.PartnerID,
			Make:      t.Make,
			Used:      used,
			Cap:       cap,
			Vars:      vars,
		})
		if cap == model.UnlimitedCap || cfg.LambdaCap == 0 {
			continue
		}
		headroom := cap - used
		if headroom < 0 {
			headroom = 0
		}
		if headroom >= len(vars) {
			continue
		}
		m.StepCosts = append(m.StepCosts, solver.StepCost{
			Vars:  vars,
			Steps: []solver.Step{{After: headroom, Rate: cfg.LambdaCap}},
		})
	}

	// Fairness over per-partner counts.
	byPartner := groupBy(out.Triples, func(t model.Triple) string { return t.PartnerID })
	for _, key := range sortedKeys(byPartner) {
		vars := byPartner[key]
		steps := fairnessSteps(cfg)
		if len(steps) == 0 || len(vars) <= steps[0].After {
			continue
		}
		m.StepCosts = append(m.StepCosts, solver.StepCost{Vars: vars, Steps: steps})
	}

	// Budget buckets keyed by (office, fleet, quarter, year) with the
	// configured cross-quarter attribution.
	budgetRows := make(map[string]model.Budget, len(budgets))
	for _, b := range budgets {
		budgetRows[bucketKey(b.Office, b.Fleet, b.Year, b.Quarter)] = b
	}
	type bucket struct {
		office, fleet string
		year, quarter int
		vars          []int
		coeffs        []float64
	}
	buckets := make(map[string]*bucket)
	for i, t := range out.Triples {
		for _, share := range model.AttributeCost(t.Start, cfg.LoanDays, t.EstimatedCost, cfg.QuarterAttribution) {
			key := bucketKey(t.Office, t.Fleet, share.Year, share.Quarter)
			bk, ok := buckets[key]
			if !ok {
				bk = &bucket{office: t.Office, fleet: t.Fleet, year: share.Year, quarter: share.Quarter}
				buckets[key] = bk
			}
			bk.vars = append(bk.vars, i)
			bk.coeffs = append(bk.coeffs, share.Amount)
		}
	}
	for _, key := range sortedKeys(buckets) {
		bk := buckets[key]
		bg := budgetGroup{
			Office:  bk.office,
			Fleet:   bk.fleet,
			Quarter: bk.quarter,
			Year:    bk.year,
			Free:    math.Inf(1),
			Vars:    bk.vars,
			Coeffs:  bk.coeffs,
		}
		row, ok := budgetRows[key]
		if ok {
			bg.HasBudget = true
			bg.Amount = row.Amount
			if row.Used != nil {
				bg.Used = *row.Used
			}
			bg.Free = math.Max(0, row.Remaining())
		} else if cfg.EnforceMissingBudget {
			// Missing row treated as a zero budget under the explicit flag.
			bg.Free = 0
		}
		if !math.IsInf(bg.Free, 1) {
			if bg.Hard = cfg.budgetModeFor(bk.fleet) == BudgetHard; bg.Hard {
				m.LinearCaps = append(m.LinearCaps, solver.LinearCap{
					Vars:   bk.vars,
					Coeffs: bk.coeffs,
					Limit:  bg.Free,
				})
			} else if cfg.PointsPerDollar > 0 {
				m.SpendCosts = append(m.SpendCosts, solver.SpendCost{
					Vars:  bk.vars,
					Costs: bk.coeffs,
					Free:  bg.Free,
					Rate:  cfg.PointsPerDollar,
				})
			}
		}
		out.BudgetGroups = append(out.BudgetGroups, bg)
	}

	out.Model = m
	return out
}

// fairnessSteps translates the configured fairness mode into step costs.
func fairnessSteps(cfg Config) []solver.Step {
	switch cfg.FairnessMode {
	case FairnessLinear:
		if cfg.LambdaFair == 0 {
			return nil
		}
		return []solver.Step{{After: cfg.FairnessTarget, Rate: cfg.LambdaFair}}
	default:
		var steps []solver.Step
		if cfg.LambdaFair > 0 {
			steps = append(steps, solver.Step{After: 1, Rate: cfg.LambdaFair})
		}
		if cfg.LambdaStep > 0 {
			steps = append(steps, solver.Step{After: 2, Rate: cfg.LambdaStep})
		}
		return steps
	}
}

func bucketKey(office, fleet string, year, quarter int) string {
	return office + "|" + fleet + "|" + strconv.Itoa(year) + "Q" + strconv.Itoa(quarter)
}

func groupBy(triples []model.Triple, key func(model.Triple) string) map[string][]int {
	groups := make(map[string][]int)
	for i, t := range triples {
		k := key(t)
		groups[k] = append(groups[k], i)
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
