package compiler

import (
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// SelectionStage emits the single constraint on the binary selectors:
// Σ_i b_i = k in exact mode, Σ_i w_i·b_i <= capacity in knapsack mode.
// The selection data is re-checked here for callers that run the stage
// without NewCatalog.
func SelectionStage(s *problem.Spec, c *Catalog) ([]ir.Constraint, error) {
	if err := s.ValidateSelection(); err != nil {
		return nil, err
	}
	if s.Mode() == ir.ModeExact {
		terms := make([]ir.Term, s.N)
		for i, b := range c.Layout.B {
			terms[i] = ir.Term{Var: b, Coef: 1}
		}
		return []ir.Constraint{{
			Name:   "cardinality",
			Kind:   ir.KindLinear,
			Linear: terms,
			Lower:  float64(s.K),
			Upper:  float64(s.K),
			Flags:  ir.ModelFlags(),
		}}, nil
	}

	weights := s.EffectiveWeights()
	terms := make([]ir.Term, s.N)
	for i, b := range c.Layout.B {
		terms[i] = ir.Term{Var: b, Coef: weights[i]}
	}
	return []ir.Constraint{upperBounded("knapsack", terms, s.Capacity)}, nil
}
