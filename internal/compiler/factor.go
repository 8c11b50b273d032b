package compiler

import (
	"fmt"

	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// FactorStage emits, for every (p,q) with q >= p,
//
//	Σ_i A[p,i]·z_{i,q} + ε·eps_{p,q} − J_{p,q} = 0.
//
// Above the diagonal J_{p,q} is fixed at zero, so the row forces the
// selected contributions and the ridge residual to cancel.
func FactorStage(s *problem.Spec, c *Catalog) []ir.Constraint {
	d := s.D
	out := make([]ir.Constraint, 0, d*(d+1)/2)
	for p := range d {
		for q := p; q < d; q++ {
			terms := make([]ir.Term, 0, s.N+2)
			for i := range s.N {
				terms = append(terms, ir.Term{Var: c.Layout.Z[i][q], Coef: s.A.At(p, i)})
			}
			terms = append(terms,
				ir.Term{Var: c.Layout.Eps[p][q], Coef: s.Ridge},
				ir.Term{Var: c.Layout.J[p][q], Coef: -1},
			)
			out = append(out, ir.Constraint{
				Name:   fmt.Sprintf("factor%d_%d", p+1, q+1),
				Kind:   ir.KindLinear,
				Linear: terms,
				Lower:  0,
				Upper:  0,
				Flags:  ir.ModelFlags(),
			})
		}
	}
	return out
}
