package compiler

import (
	"fmt"

	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// EnvelopeStage emits the conic bounds of the model:
//
//	cone{i}_{j}       z² − t·b <= 0           plus secants ±2z − t − b <= 0
//	ridgecone{p}_{q}  eps² − epssq <= 0       plus secants ±2eps − epssq <= 1
//	rowsum{q}         Σ_i t_{i,q} + t_{n+1,q} − J_{q,q} <= 0
//	ridgesum{q}       Σ_p epssq_{p,q} − t_{n+1,q} <= 0
//
// The secants are removable cuts; they are valid for the exact cone as long
// as the indicator lies in [0,1].
func EnvelopeStage(s *problem.Spec, c *Catalog) []ir.Constraint {
	n, d := s.N, s.D
	out := make([]ir.Constraint, 0, 3*n*d+3*d*d+2*d)

	for i := range n {
		for j := range d {
			z, t, b := c.Layout.Z[i][j], c.Layout.T[i][j], c.Layout.B[i]
			name := fmt.Sprintf("cone%d_%d", i+1, j+1)
			out = append(out, rotatedCone(name, z, t, b))
			out = append(out, secants(name, z, []int{t, b}, 0)...)
		}
	}

	for p := range d {
		for q := range d {
			e, e2 := c.Layout.Eps[p][q], c.Layout.EpsSq[p][q]
			name := fmt.Sprintf("ridgecone%d_%d", p+1, q+1)
			out = append(out, rotatedCone(name, e, e2, ir.NoVar))
			out = append(out, secants(name, e, []int{e2}, 1)...)
		}
	}

	for q := range d {
		terms := make([]ir.Term, 0, n+2)
		for i := range n + 1 {
			terms = append(terms, ir.Term{Var: c.Layout.T[i][q], Coef: 1})
		}
		terms = append(terms, ir.Term{Var: c.Layout.J[q][q], Coef: -1})
		out = append(out, upperBounded(fmt.Sprintf("rowsum%d", q+1), terms, 0))
	}

	for q := range d {
		terms := make([]ir.Term, 0, d+1)
		for p := range d {
			terms = append(terms, ir.Term{Var: c.Layout.EpsSq[p][q], Coef: 1})
		}
		terms = append(terms, ir.Term{Var: c.Layout.T[n][q], Coef: -1})
		out = append(out, upperBounded(fmt.Sprintf("ridgesum%d", q+1), terms, 0))
	}

	return out
}

// rotatedCone is x² − y·z <= 0; z == ir.NoVar stands for the constant 1.
func rotatedCone(name string, x, y, z int) ir.Constraint {
	return ir.Constraint{
		Name:  name,
		Kind:  ir.KindRotatedCone,
		Cone:  &ir.ConeTerm{X: x, Y: y, Z: z},
		Lower: ir.NegInf(),
		Upper: 0,
		Flags: ir.ModelFlags(),
	}
}

// secants returns the pair ±2x − Σ rhs <= bound.
func secants(name string, x int, rhs []int, bound float64) []ir.Constraint {
	out := make([]ir.Constraint, 0, 2)
	for _, side := range []struct {
		suffix string
		sign   float64
	}{{"_pos", 2}, {"_neg", -2}} {
		terms := []ir.Term{{Var: x, Coef: side.sign}}
		for _, v := range rhs {
			terms = append(terms, ir.Term{Var: v, Coef: -1})
		}
		out = append(out, ir.Constraint{
			Name:   name + side.suffix,
			Kind:   ir.KindLinear,
			Linear: terms,
			Lower:  ir.NegInf(),
			Upper:  bound,
			Flags:  ir.CutFlags(),
		})
	}
	return out
}

func upperBounded(name string, terms []ir.Term, upper float64) ir.Constraint {
	return ir.Constraint{
		Name:   name,
		Kind:   ir.KindLinear,
		Linear: terms,
		Lower:  ir.NegInf(),
		Upper:  upper,
		Flags:  ir.ModelFlags(),
	}
}
