package ir

import "slices"

// DeepCopy returns a copy of the model that shares no memory with m.
func (m *Model) DeepCopy() *Model {
	out := *m
	out.Weights = slices.Clone(m.Weights)

	out.Variables = slices.Clone(m.Variables)
	out.Constraints = make([]Constraint, len(m.Constraints))
	for i, c := range m.Constraints {
		out.Constraints[i] = c.DeepCopy()
	}

	out.Layout = Layout{
		B:     slices.Clone(m.Layout.B),
		Z:     cloneGrid(m.Layout.Z),
		T:     cloneGrid(m.Layout.T),
		J:     cloneGrid(m.Layout.J),
		Eps:   cloneGrid(m.Layout.Eps),
		EpsSq: cloneGrid(m.Layout.EpsSq),
		Y:     m.Layout.Y,
	}
	return &out
}

// DeepCopy returns a copy of the constraint that shares no memory with c.
func (c Constraint) DeepCopy() Constraint {
	out := c
	out.Linear = slices.Clone(c.Linear)
	if c.Cone != nil {
		cone := *c.Cone
		out.Cone = &cone
	}
	if c.Product != nil {
		out.Product = &ProductTerm{
			Vars:     slices.Clone(c.Product.Vars),
			Exponent: c.Product.Exponent,
			Coef:     c.Product.Coef,
		}
	}
	if c.LogSum != nil {
		out.LogSum = &LogSumTerm{
			Vars:  slices.Clone(c.LogSum.Vars),
			Coefs: slices.Clone(c.LogSum.Coefs),
		}
	}
	return out
}

func cloneGrid(g [][]int) [][]int {
	if g == nil {
		return nil
	}
	out := make([][]int, len(g))
	for i, row := range g {
		out[i] = slices.Clone(row)
	}
	return out
}
