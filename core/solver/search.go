package solver

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Anneal is the built-in engine: a greedy seed followed by a seeded
// annealing search over flip and swap moves, run by cooperating workers
// with derived seeds. The LP relaxation bound certifies proven-optimal
// incumbents.
type Anneal struct{}

// NewAnneal returns the default solver engine.
func NewAnneal() *Anneal { return &Anneal{} }

type linMember struct {
	group int
	coeff float64
}

// membership is the read-only per-variable group index, shared by all
// workers.
type membership struct {
	m        *Model
	varExcl  [][]int
	varSlot  [][]int
	varLin   [][]linMember
	varStep  [][]int
	varSpend [][]linMember
	pinned   []bool
}

func buildMembership(m *Model) *membership {
	n := m.NumVars()
	mem := &membership{
		m:        m,
		varExcl:  make([][]int, n),
		varSlot:  make([][]int, n),
		varLin:   make([][]linMember, n),
		varStep:  make([][]int, n),
		varSpend: make([][]linMember, n),
		pinned:   make([]bool, n),
	}
	for g, vars := range m.Exclusive {
		for _, v := range vars {
			mem.varExcl[v] = append(mem.varExcl[v], g)
		}
	}
	for g, sc := range m.SlotCaps {
		for _, v := range sc.Vars {
			mem.varSlot[v] = append(mem.varSlot[v], g)
		}
	}
	for g, lc := range m.LinearCaps {
		for i, v := range lc.Vars {
			mem.varLin[v] = append(mem.varLin[v], linMember{group: g, coeff: lc.Coeffs[i]})
		}
	}
	for g, st := range m.StepCosts {
		for _, v := range st.Vars {
			mem.varStep[v] = append(mem.varStep[v], g)
		}
	}
	for g, sp := range m.SpendCosts {
		for i, v := range sp.Vars {
			mem.varSpend[v] = append(mem.varSpend[v], linMember{group: g, coeff: sp.Costs[i]})
		}
	}
	for _, v := range m.Pinned {
		mem.pinned[v] = true
	}
	return mem
}

// state is one worker's mutable selection with incremental group counters.
type state struct {
	mem       *membership
	selected  []bool
	exclCount []int
	slotCount []int
	linSum    []float64
	stepCount []int
	spendSum  []float64
	net       float64
}

func newState(mem *membership) *state {
	m := mem.m
	return &state{
		mem:       mem,
		selected:  make([]bool, m.NumVars()),
		exclCount: make([]int, len(m.Exclusive)),
		slotCount: make([]int, len(m.SlotCaps)),
		linSum:    make([]float64, len(m.LinearCaps)),
		stepCount: make([]int, len(m.StepCosts)),
		spendSum:  make([]float64, len(m.SpendCosts)),
	}
}

const feasEps = 1e-9

func (s *state) canAdd(i int) bool {
	if s.selected[i] {
		return false
	}
	for _, g := range s.mem.varExcl[i] {
		if s.exclCount[g] >= 1 {
			return false
		}
	}
	for _, g := range s.mem.varSlot[i] {
		if s.slotCount[g] >= s.mem.m.SlotCaps[g].Limit {
			return false
		}
	}
	for _, lm := range s.mem.varLin[i] {
		if s.linSum[lm.group]+lm.coeff > s.mem.m.LinearCaps[lm.group].Limit+feasEps {
			return false
		}
	}
	return true
}

// addDelta returns the net objective change of selecting i. Callers must
// have checked canAdd.
func (s *state) addDelta(i int) float64 {
	delta := s.mem.m.Scores[i]
	for _, g := range s.mem.varStep[i] {
		sc := s.mem.m.StepCosts[g]
		delta -= sc.Cost(s.stepCount[g]+1) - sc.Cost(s.stepCount[g])
	}
	for _, sm := range s.mem.varSpend[i] {
		sp := s.mem.m.SpendCosts[sm.group]
		delta -= sp.Cost(s.spendSum[sm.group]+sm.coeff) - sp.Cost(s.spendSum[sm.group])
	}
	return delta
}

func (s *state) removeDelta(i int) float64 {
	delta := -s.mem.m.Scores[i]
	for _, g := range s.mem.varStep[i] {
		sc := s.mem.m.StepCosts[g]
		delta += sc.Cost(s.stepCount[g]) - sc.Cost(s.stepCount[g]-1)
	}
	for _, sm := range s.mem.varSpend[i] {
		sp := s.mem.m.SpendCosts[sm.group]
		delta += sp.Cost(s.spendSum[sm.group]) - sp.Cost(s.spendSum[sm.group]-sm.coeff)
	}
	return delta
}

func (s *state) add(i int) float64 {
	delta := s.addDelta(i)
	s.selected[i] = true
	for _, g := range s.mem.varExcl[i] {
		s.exclCount[g]++
	}
	for _, g := range s.mem.varSlot[i] {
		s.slotCount[g]++
	}
	for _, lm := range s.mem.varLin[i] {
		s.linSum[lm.group] += lm.coeff
	}
	for _, g := range s.mem.varStep[i] {
		s.stepCount[g]++
	}
	for _, sm := range s.mem.varSpend[i] {
		s.spendSum[sm.group] += sm.coeff
	}
	s.net += delta
	return delta
}

func (s *state) remove(i int) float64 {
	delta := s.removeDelta(i)
	s.selected[i] = false
	for _, g := range s.mem.varExcl[i] {
		s.exclCount[g]--
	}
	for _, g := range s.mem.varSlot[i] {
		s.slotCount[g]--
	}
	for _, lm := range s.mem.varLin[i] {
		s.linSum[lm.group] -= lm.coeff
	}
	for _, g := range s.mem.varStep[i] {
		s.stepCount[g]--
	}
	for _, sm := range s.mem.varSpend[i] {
		s.spendSum[sm.group] -= sm.coeff
	}
	s.net += delta
	return delta
}

// blockers returns selected non-pinned variables whose removal would free
// the exclusivity and slot groups blocking i, or nil when a pinned decision
// blocks it.
func (s *state) blockers(i int, rng *rand.Rand) []int {
	var out []int
	seen := map[int]bool{}
	for _, g := range s.mem.varExcl[i] {
		if s.exclCount[g] == 0 {
			continue
		}
		found := -1
		for _, v := range s.mem.m.Exclusive[g] {
			if s.selected[v] {
				if s.mem.pinned[v] {
					return nil
				}
				found = v
				break
			}
		}
		if found >= 0 && !seen[found] {
			seen[found] = true
			out = append(out, found)
		}
	}
	for _, g := range s.mem.varSlot[i] {
		sc := s.mem.m.SlotCaps[g]
		if s.slotCount[g] < sc.Limit {
			continue
		}
		var cands []int
		for _, v := range sc.Vars {
			if s.selected[v] && !s.mem.pinned[v] {
				cands = append(cands, v)
			}
		}
		if len(cands) == 0 {
			return nil
		}
		pick := cands[rng.Intn(len(cands))]
		if !seen[pick] {
			seen[pick] = true
			out = append(out, pick)
		}
	}
	return out
}

// greedySeed selects variables in descending score order whenever they are
// feasible and improve the net objective. Deterministic.
func (s *state) greedySeed() {
	m := s.mem.m
	order := make([]int, m.NumVars())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if m.Scores[order[a]] != m.Scores[order[b]] {
			return m.Scores[order[a]] > m.Scores[order[b]]
		}
		return order[a] < order[b]
	})
	for _, i := range order {
		if s.selected[i] || !s.canAdd(i) {
			continue
		}
		if s.addDelta(i) > 0 {
			s.add(i)
		}
	}
}

type workerResult struct {
	selected   []bool
	net        float64
	iterations int
	timedOut   bool
}

// Solve implements Solver.
func (a *Anneal) Solve(m Model, opts Options) (Solution, error) {
	if err := m.validate(); err != nil {
		return Solution{}, err
	}
	opts.setDefaults()
	n := m.NumVars()
	if n == 0 {
		return Solution{Selected: nil, Optimal: true}, nil
	}

	mem := buildMembership(&m)

	// Pinned decisions are applied first; a pinned decision that violates a
	// hard group makes the whole model infeasible.
	base := newState(mem)
	for _, i := range m.Pinned {
		if base.selected[i] {
			continue
		}
		if !base.canAdd(i) {
			return Solution{}, ErrInfeasible
		}
		base.add(i)
	}

	bound, berr := relaxationBound(m)
	if berr != nil {
		bound = math.Inf(1)
	}

	deadline := time.Now().Add(opts.TimeLimit)
	results := make([]workerResult, opts.Workers)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w] = a.runWorker(mem, base, opts.Seed+int64(w)*0x9e3779b9, opts.Iterations, deadline)
		}(w)
	}
	wg.Wait()

	bestIdx := 0
	for w := 1; w < opts.Workers; w++ {
		if betterResult(results[w], results[bestIdx]) {
			bestIdx = w
		}
	}
	sol := Solution{
		Selected: results[bestIdx].selected,
		Net:      results[bestIdx].net,
		Bound:    bound,
	}
	for _, r := range results {
		sol.Iterations += r.iterations
		sol.TimedOut = sol.TimedOut || r.timedOut
	}
	if !math.IsInf(bound, 1) && sol.Net >= bound-1e-6 {
		sol.Optimal = true
		sol.TimedOut = false
	}
	return sol, nil
}

// betterResult orders worker results by net score, breaking ties by the
// lexicographically first selection so that the merge does not depend on
// goroutine scheduling.
func betterResult(a, b workerResult) bool {
	if a.net != b.net {
		return a.net > b.net
	}
	for i := range a.selected {
		if a.selected[i] != b.selected[i] {
			return a.selected[i]
		}
	}
	return false
}

func (a *Anneal) runWorker(mem *membership, base *state, seed int64, iters int, deadline time.Time) workerResult {
	rng := rand.New(rand.NewSource(seed))
	st := newState(mem)
	for i, sel := range base.selected {
		if sel {
			st.add(i)
		}
	}
	st.greedySeed()

	n := mem.m.NumVars()
	bestSel := append([]bool(nil), st.selected...)
	bestNet := st.net

	maxScore := 0.0
	for _, s := range mem.m.Scores {
		if v := math.Abs(s); v > maxScore {
			maxScore = v
		}
	}
	temp := math.Max(1, 0.05*maxScore)
	const cooling = 0.9995

	accept := func(delta float64) bool {
		return delta > 0 || rng.Float64() < math.Exp(delta/temp)
	}

	res := workerResult{}
	for it := 0; it < iters; it++ {
		res.iterations++
		if it&255 == 0 && time.Now().After(deadline) {
			res.timedOut = true
			break
		}
		i := rng.Intn(n)
		if mem.pinned[i] {
			continue
		}
		switch {
		case st.selected[i]:
			if accept(st.removeDelta(i)) {
				st.remove(i)
			}
		case st.canAdd(i):
			if accept(st.addDelta(i)) {
				st.add(i)
			}
		default:
			// Swap: free the blocking decisions, then try to place i.
			bl := st.blockers(i, rng)
			if bl == nil {
				continue
			}
			delta := 0.0
			for _, b := range bl {
				delta += st.remove(b)
			}
			placed := false
			if st.canAdd(i) {
				delta += st.add(i)
				placed = true
			}
			if !accept(delta) {
				if placed {
					st.remove(i)
				}
				for _, b := range bl {
					st.add(b)
				}
			}
		}
		if st.net > bestNet+1e-9 {
			bestNet = st.net
			copy(bestSel, st.selected)
		}
		temp *= cooling
	}
	res.selected = bestSel
	res.net = bestNet
	return res
}
