// Package certify evaluates selections of candidate points against the
// D-criterion and builds feasible warm-start points for compiled models.
package certify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// DefaultTolerance is the relative feasibility tolerance used by Certify.
const DefaultTolerance = 1e-9

func checkSelection(s *problem.Spec, sel []bool) error {
	if len(sel) != s.N {
		return &problem.SpecError{
			Code:    problem.CodeInvalidDimension,
			Field:   "selection",
			Message: fmt.Sprintf("selection has %d entries for %d points", len(sel), s.N),
		}
	}
	return nil
}

// SelectionFromIndices turns 1-based point indices into a selection mask.
func SelectionFromIndices(n int, indices []int) ([]bool, error) {
	sel := make([]bool, n)
	for _, i := range indices {
		if i < 1 || i > n {
			return nil, &problem.SpecError{
				Code:    problem.CodeInvalidDimension,
				Field:   "selection",
				Message: fmt.Sprintf("point %d out of range 1..%d", i, n),
			}
		}
		if sel[i-1] {
			return nil, &problem.SpecError{
				Code:    problem.CodeInvalidCardinality,
				Field:   "selection",
				Message: fmt.Sprintf("point %d selected twice", i),
			}
		}
		sel[i-1] = true
	}
	return sel, nil
}

// InformationMatrix returns A·diag(b)·Aᵀ + ε²·I for the selection.
func InformationMatrix(s *problem.Spec, sel []bool) (*mat.SymDense, error) {
	if err := checkSelection(s, sel); err != nil {
		return nil, err
	}
	m := mat.NewSymDense(s.D, nil)
	for p := range s.D {
		m.SetSym(p, p, s.Ridge*s.Ridge)
	}
	for i, on := range sel {
		if on {
			m.SymRankOne(m, 1, mat.NewVecDense(s.D, s.Point(i)))
		}
	}
	return m, nil
}

// Criterion returns det(M)^{1/d} for the information matrix M of the
// selection, computed from a Cholesky log-determinant.
func Criterion(s *problem.Spec, sel []bool) (float64, error) {
	m, err := InformationMatrix(s, sel)
	if err != nil {
		return 0, err
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(m); !ok {
		return 0, fmt.Errorf("information matrix is not positive definite")
	}
	return math.Exp(chol.LogDet() / float64(s.D)), nil
}

// WarmStart returns a point of m that satisfies every variable bound and
// every constraint except possibly the selection constraint, with b set to
// sel and y equal to the criterion of sel.
//
// The point comes from a QR factorization of Bᵀ with B = [A·diag(b)^{1/2}, ε·I]:
// B = L·Wᵀ with L lower triangular and W orthonormal. Scaling column q of W
// by L_qq gives the z and eps values; J = L·diag(L_qq).
func WarmStart(s *problem.Spec, m *ir.Model, sel []bool) (ir.Point, error) {
	if err := checkSelection(s, sel); err != nil {
		return nil, err
	}
	if m.N != s.N || m.D != s.D {
		return nil, &problem.SpecError{
			Code:    problem.CodeInvalidDimension,
			Field:   "model",
			Message: fmt.Sprintf("model is %dx%d, instance is %dx%d", m.N, m.D, s.N, s.D),
		}
	}
	n, d := s.N, s.D

	bt := mat.NewDense(n+d, d, nil)
	for i, on := range sel {
		if on {
			bt.SetRow(i, s.Point(i))
		}
	}
	for p := range d {
		bt.Set(n+p, p, s.Ridge)
	}

	var qr mat.QR
	qr.Factorize(bt)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	// Normalize so that the triangular factor has a nonnegative diagonal.
	diag := make([]float64, d)
	sign := make([]float64, d)
	for c := range d {
		sign[c] = 1
		if r.At(c, c) < 0 {
			sign[c] = -1
		}
		diag[c] = math.Abs(r.At(c, c))
	}
	w := func(row, col int) float64 { return q.At(row, col) * sign[col] }
	l := func(p, col int) float64 { return r.At(col, p) * sign[col] }

	pt := make(ir.Point, len(m.Variables))
	lay := m.Layout
	for i, on := range sel {
		if on {
			pt[lay.B[i]] = 1
		}
	}

	for c := range d {
		ridgeRow := 0.0
		for p := range d {
			e := w(n+p, c) * diag[c]
			pt[lay.Eps[p][c]] = e
			pt[lay.EpsSq[p][c]] = e * e
			ridgeRow += e * e
		}
		pt[lay.T[n][c]] = ridgeRow

		for i, on := range sel {
			if !on {
				continue
			}
			z := w(i, c) * diag[c]
			pt[lay.Z[i][c]] = z
			pt[lay.T[i][c]] = z * z
		}

		for p := c; p < d; p++ {
			pt[lay.J[p][c]] = l(p, c) * diag[c]
		}
	}

	powers := make([]float64, d)
	for c := range d {
		powers[c] = math.Pow(pt[lay.J[c][c]], 1/float64(d))
	}
	pt[lay.Y] = floats.Prod(powers)

	return pt, nil
}

// Report is the outcome of certifying a selection.
type Report struct {
	Selected   []int          `json:"selected"`
	Criterion  float64        `json:"criterion"`
	Objective  float64        `json:"objective"`
	Violations []ir.Violation `json:"violations"`
}

// Feasible reports whether the warm start satisfied the whole model.
func (r *Report) Feasible() bool { return len(r.Violations) == 0 }

// Certify builds the warm start for sel and checks it against m with the
// relative tolerance tol.
func Certify(s *problem.Spec, m *ir.Model, sel []bool, tol float64) (*Report, error) {
	crit, err := Criterion(s, sel)
	if err != nil {
		return nil, err
	}
	pt, err := WarmStart(s, m, sel)
	if err != nil {
		return nil, err
	}
	violations, err := m.Check(pt, tol)
	if err != nil {
		return nil, err
	}

	rep := &Report{Criterion: crit, Objective: m.ObjectiveValue(pt), Violations: violations}
	for i, on := range sel {
		if on {
			rep.Selected = append(rep.Selected, i+1)
		}
	}
	return rep, nil
}
