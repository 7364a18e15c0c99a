package plan

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/loanerfleet/loanerfleet/core/model"
	"github.com/loanerfleet/loanerfleet/core/solver"
)

// DailyUsage is one row of the per-day utilization table.
type DailyUsage struct {
	Date      time.Time `json:"date"`
	Slots     int       `json:"slots"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Note      string    `json:"note,omitempty"`
}

// CapRow is one row of the per-(partner, make) cap table. Cap is -1 for
// uncapped tiers.
type CapRow struct {
	PartnerID    string  `json:"partner_id"`
	Make         string  `json:"make"`
	Used         int     `json:"used"`
	Cap          int     `json:"cap"`
	New          int     `json:"new"`
	DeltaOverage int     `json:"delta_overage"`
	Penalty      float64 `json:"penalty"`
}

// FairnessReport aggregates distribution metrics over partners that
// received at least one assignment.
type FairnessReport struct {
	Gini          float64        `json:"gini"`
	HHI           float64        `json:"hhi"`
	TopKShare     float64        `json:"top_k_share"`
	K             int            `json:"k"`
	PerPartner    map[string]int `json:"per_partner"`
	MaxPerPartner int            `json:"max_per_partner"`
	Penalty       float64        `json:"penalty"`
}

// BudgetRow is one row of the per-(office, fleet, quarter) budget table.
type BudgetRow struct {
	Office       string  `json:"office"`
	Fleet        string  `json:"fleet"`
	Quarter      int     `json:"quarter"`
	Year         int     `json:"year"`
	HasBudget    bool    `json:"has_budget"`
	Amount       float64 `json:"amount"`
	Used         float64 `json:"used"`
	PlannedSpend float64 `json:"planned_spend"`
	Over         float64 `json:"over"`
	Penalty      float64 `json:"penalty"`
	Hard         bool    `json:"hard"`
}

// Breakdown is the single objective record for the run.
type Breakdown struct {
	RawScore        float64 `json:"raw_score"`
	CapPenalty      float64 `json:"cap_penalty"`
	FairnessPenalty float64 `json:"fairness_penalty"`
	BudgetPenalty   float64 `json:"budget_penalty"`
	NetScore        float64 `json:"net_score"`
	Optimal         bool    `json:"optimal"`
	Degraded        bool    `json:"degraded"` // best-found under the time budget, not proven optimal
}

// Report is the deterministic projection of the solver's output; it makes
// no decisions of its own.
type Report struct {
	Daily           []DailyUsage   `json:"daily"`
	Caps            []CapRow       `json:"caps"`
	Fairness        FairnessReport `json:"fairness"`
	Budgets         []BudgetRow    `json:"budgets"`
	Breakdown       Breakdown      `json:"breakdown"`
	Exclusions      []Exclusion    `json:"exclusions,omitempty"`
	ExclusionCounts map[string]int `json:"exclusion_counts,omitempty"`
	CooldownDropped int            `json:"cooldown_dropped"`
	ZeroCapDropped  int            `json:"zero_cap_dropped"`
}

// buildReport derives all summary tables and the objective breakdown from
// the solved decision set.
func buildReport(out buildOutput, sol solver.Solution, cal *Calendar, cfg Config) Report {
	rep := Report{ZeroCapDropped: out.ZeroCapDropped}

	// Daily utilization over the whole scheduling week.
	usedByDay := make(map[string]int)
	for i, t := range out.Triples {
		if sol.Selected[i] {
			usedByDay[model.DayKey(t.Start)]++
		}
	}
	for _, day := range cfg.week() {
		slots := cal.Slots(day)
		used := usedByDay[model.DayKey(day)]
		rep.Daily = append(rep.Daily, DailyUsage{
			Date:      day,
			Slots:     slots,
			Used:      used,
			Remaining: slots - used,
			Note:      cal.Note(day),
		})
	}

	// Cap table with delta overage.
	raw := 0.0
	for i, t := range out.Triples {
		if sol.Selected[i] {
			raw += t.ShapedScore
		}
	}
	for _, g := range out.CapGroups {
		row := CapRow{PartnerID: g.PartnerID, Make: g.Make, Used: g.Used, Cap: g.Cap}
		for _, v := range g.Vars {
			if sol.Selected[v] {
				row.New++
			}
		}
		if g.Cap != model.UnlimitedCap {
			current := maxInt(0, g.Used-g.Cap)
			future := maxInt(0, g.Used+row.New-g.Cap)
			row.DeltaOverage = future - current
			row.Penalty = cfg.LambdaCap * float64(row.DeltaOverage)
		}
		rep.Breakdown.CapPenalty += row.Penalty
		rep.Caps = append(rep.Caps, row)
	}

	// Fairness metrics over assigned partners only.
	perPartner := make(map[string]int)
	for i, t := range out.Triples {
		if sol.Selected[i] {
			perPartner[t.PartnerID]++
		}
	}
	rep.Fairness = fairnessReport(perPartner, cfg)
	rep.Breakdown.FairnessPenalty = rep.Fairness.Penalty

	// Budget table.
	for _, g := range out.BudgetGroups {
		row := BudgetRow{
			Office:    g.Office,
			Fleet:     g.Fleet,
			Quarter:   g.Quarter,
			Year:      g.Year,
			HasBudget: g.HasBudget,
			Amount:    g.Amount,
			Used:      g.Used,
			Hard:      g.Hard,
		}
		for j, v := range g.Vars {
			if sol.Selected[v] {
				row.PlannedSpend += g.Coeffs[j]
			}
		}
		if !math.IsInf(g.Free, 1) {
			row.Over = math.Max(0, row.PlannedSpend-g.Free)
			if !g.Hard {
				row.Penalty = cfg.PointsPerDollar * row.Over
			}
		}
		rep.Breakdown.BudgetPenalty += row.Penalty
		rep.Budgets = append(rep.Budgets, row)
	}

	rep.Breakdown.RawScore = raw
	rep.Breakdown.NetScore = raw - rep.Breakdown.CapPenalty - rep.Breakdown.FairnessPenalty - rep.Breakdown.BudgetPenalty
	rep.Breakdown.Optimal = sol.Optimal
	rep.Breakdown.Degraded = sol.TimedOut
	return rep
}

// fairnessReport computes Gini, HHI and top-k concentration over the
// partners that received at least one assignment, plus the fairness
// penalty actually charged by the objective.
func fairnessReport(perPartner map[string]int, cfg Config) FairnessReport {
	rep := FairnessReport{K: cfg.TopK, PerPartner: perPartner}
	if len(perPartner) == 0 {
		return rep
	}
	counts := make([]float64, 0, len(perPartner))
	steps := fairnessSteps(cfg)
	for _, n := range perPartner {
		counts = append(counts, float64(n))
		if n > rep.MaxPerPartner {
			rep.MaxPerPartner = n
		}
		rep.Penalty += solver.StepCost{Steps: steps}.Cost(n)
	}
	sort.Float64s(counts)
	total := floats.Sum(counts)

	// Gini over the sorted counts.
	weighted := 0.0
	for i, c := range counts {
		weighted += float64(i+1) * c
	}
	n := float64(len(counts))
	rep.Gini = 2*weighted/(n*total) - (n+1)/n

	// Herfindahl-Hirschman index as the sum of squared shares (0..1].
	for _, c := range counts {
		share := c / total
		rep.HHI += share * share
	}

	k := cfg.TopK
	if k > len(counts) {
		k = len(counts)
	}
	topSum := floats.Sum(counts[len(counts)-k:])
	rep.TopKShare = topSum / total
	return rep
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
