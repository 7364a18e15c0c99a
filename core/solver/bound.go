package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// boundMaxVars caps the LP relaxation. The standard form below is a dense
// rows x (n+rows) matrix with rows on the order of n, so memory grows
// quadratically in the variable count; past this size the certificate is
// skipped and the search reports its best-found result uncertified.
const boundMaxVars = 4000

// relaxationBound solves the LP relaxation of the hard model (soft costs
// dropped, decisions relaxed to [0,1]) with the simplex method and returns
// an upper bound on any feasible net objective. Soft costs only subtract
// from the objective, so the bound stays valid for the penalized problem.
// Models above boundMaxVars get an infinite bound instead of a dense solve.
func relaxationBound(m Model) (float64, error) {
	n := m.NumVars()
	if n == 0 {
		return 0, nil
	}
	if n > boundMaxVars {
		return math.Inf(1), nil
	}

	rows := len(m.Exclusive) + len(m.SlotCaps) + len(m.LinearCaps) + n

	// Standard form: minimize c'x subject to Ax = b, x >= 0, with one slack
	// variable per inequality row.
	c := make([]float64, n+rows)
	for i, s := range m.Scores {
		c[i] = -s
	}
	A := mat.NewDense(rows, n+rows, nil)
	b := make([]float64, rows)

	row := 0
	for _, g := range m.Exclusive {
		for _, v := range g {
			A.Set(row, v, 1)
		}
		b[row] = 1
		row++
	}
	for _, sc := range m.SlotCaps {
		for _, v := range sc.Vars {
			A.Set(row, v, 1)
		}
		b[row] = float64(sc.Limit)
		row++
	}
	for _, lc := range m.LinearCaps {
		for i, v := range lc.Vars {
			A.Set(row, v, A.At(row, v)+lc.Coeffs[i])
		}
		b[row] = lc.Limit
		row++
	}
	// x <= 1 box constraints.
	for i := 0; i < n; i++ {
		A.Set(row, i, 1)
		b[row] = 1
		row++
	}
	// Slack columns.
	for r := 0; r < rows; r++ {
		A.Set(r, n+r, 1)
	}

	opt, _, err := lp.Simplex(c, A, b, 1e-7, nil)
	if err != nil {
		return 0, err
	}
	return -opt, nil
}
