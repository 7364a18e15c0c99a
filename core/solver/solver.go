// Package solver provides a binary assignment solver behind a narrow
// Solve(model) contract: one boolean decision per candidate, hard at-most
// constraints, and piecewise-linear soft cost terms subtracted from the
// objective. Any engine capable of binary integer programming with a linear
// objective, a bounded time budget and a fixed-seed deterministic mode can
// implement Solver.
package solver

import (
	"errors"
	"fmt"
	"time"
)

// ErrInfeasible indicates the hard constraints admit no solution. It can
// only occur when pinned decisions conflict with a capacity or exclusivity
// group.
var ErrInfeasible = errors.New("solver: hard constraints admit no solution")

// SlotCap limits how many of a group of decisions may be selected.
type SlotCap struct {
	Vars  []int
	Limit int
}

// LinearCap is a hard linear constraint: sum(Coeffs[i] * x[Vars[i]]) <= Limit.
type LinearCap struct {
	Vars   []int
	Coeffs []float64
	Limit  float64
}

// Step charges Rate objective points for every selected decision beyond
// After within the group.
type Step struct {
	After int
	Rate  float64
}

// StepCost is a piecewise-linear counting penalty over a group of decisions:
// cost(n) = sum over steps of Rate * max(0, n - After). It expresses both
// tier-cap delta overage (one step at the remaining headroom) and stepped
// fairness (steps at 1 and 2).
type StepCost struct {
	Vars  []int
	Steps []Step
}

// Cost returns the penalty for n selected decisions in the group.
func (s StepCost) Cost(n int) float64 {
	total := 0.0
	for _, st := range s.Steps {
		if over := n - st.After; over > 0 {
			total += st.Rate * float64(over)
		}
	}
	return total
}

// SpendCost is a soft linear budget term: cost = Rate * max(0, spend - Free)
// where spend = sum(Costs[i] * x[Vars[i]]).
type SpendCost struct {
	Vars  []int
	Costs []float64
	Free  float64
	Rate  float64
}

// Cost returns the penalty for the given planned spend.
func (s SpendCost) Cost(spend float64) float64 {
	if over := spend - s.Free; over > 0 {
		return s.Rate * over
	}
	return 0
}

// Model is one run's optimization problem. Decision variable i corresponds
// to Scores[i]; the objective maximizes the selected score sum minus all
// step and spend costs, subject to the hard groups.
type Model struct {
	Scores     []float64
	Exclusive  [][]int // at most one selected per group
	SlotCaps   []SlotCap
	LinearCaps []LinearCap
	StepCosts  []StepCost
	SpendCosts []SpendCost
	Pinned     []int // decisions forced to 1
}

// NumVars returns the number of decision variables.
func (m Model) NumVars() int { return len(m.Scores) }

// validate checks group indexes so the search never reads out of range.
func (m Model) validate() error {
	n := m.NumVars()
	check := func(vars []int) error {
		for _, v := range vars {
			if v < 0 || v >= n {
				return fmt.Errorf("solver: variable index %d out of range [0,%d)", v, n)
			}
		}
		return nil
	}
	for _, g := range m.Exclusive {
		if err := check(g); err != nil {
			return err
		}
	}
	for _, g := range m.SlotCaps {
		if err := check(g.Vars); err != nil {
			return err
		}
	}
	for _, g := range m.LinearCaps {
		if len(g.Vars) != len(g.Coeffs) {
			return fmt.Errorf("solver: linear cap has %d vars but %d coeffs", len(g.Vars), len(g.Coeffs))
		}
		if err := check(g.Vars); err != nil {
			return err
		}
	}
	for _, g := range m.StepCosts {
		if err := check(g.Vars); err != nil {
			return err
		}
	}
	for _, g := range m.SpendCosts {
		if len(g.Vars) != len(g.Costs) {
			return fmt.Errorf("solver: spend cost has %d vars but %d costs", len(g.Vars), len(g.Costs))
		}
		if err := check(g.Vars); err != nil {
			return err
		}
	}
	return check(m.Pinned)
}

// Options tunes one solve invocation. Determinism requires fixing Seed,
// Workers and Iterations; TimeLimit only truncates the search and a
// truncated result is reported through Solution.TimedOut.
type Options struct {
	Seed       int64
	TimeLimit  time.Duration
	Workers    int
	Iterations int // per-worker iteration budget
}

func (o *Options) setDefaults() {
	if o.TimeLimit <= 0 {
		o.TimeLimit = 10 * time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Iterations <= 0 {
		o.Iterations = 20000
	}
}

// Solution is the best selection found within the budget.
type Solution struct {
	Selected   []bool
	Net        float64 // score sum minus soft costs
	Bound      float64 // LP relaxation upper bound on Net
	Optimal    bool    // Net reached the bound
	TimedOut   bool    // the wall-clock limit truncated the search
	Iterations int     // total iterations across workers
}

// Solver solves one assignment model.
type Solver interface {
	Solve(m Model, opts Options) (Solution, error)
}
