package ir

import "fmt"

// RebuildLayout recomputes m.Layout from the roles and indices of
// m.Variables. It fails if a family member is missing, duplicated or out of
// range for (N, D).
func (m *Model) RebuildLayout() error {
	n, d := m.N, m.D
	lay := Layout{
		B:     filled(n),
		Z:     filledGrid(n, d),
		T:     filledGrid(n+1, d),
		J:     filledGrid(d, d),
		Eps:   filledGrid(d, d),
		EpsSq: filledGrid(d, d),
		Y:     NoVar,
	}

	for idx, v := range m.Variables {
		var slot *int
		switch v.Role {
		case RoleSelector:
			if v.I >= 1 && v.I <= n {
				slot = &lay.B[v.I-1]
			}
		case RoleFactor:
			slot = cell(lay.Z, v.I, v.J, n, d)
		case RoleEpigraph:
			slot = cell(lay.T, v.I, v.J, n, d)
		case RoleRidgeEpigraph:
			if v.I == n+1 {
				slot = cell(lay.T, v.I, v.J, n+1, d)
			}
		case RoleCertificate:
			slot = cell(lay.J, v.I, v.J, d, d)
		case RoleResidual:
			slot = cell(lay.Eps, v.I, v.J, d, d)
		case RoleResidualSquare:
			slot = cell(lay.EpsSq, v.I, v.J, d, d)
		case RoleObjective:
			slot = &lay.Y
		}
		if slot == nil {
			return fmt.Errorf("variable %s: role %s index (%d,%d) out of range", v.Name, v.Role, v.I, v.J)
		}
		if *slot != NoVar {
			return fmt.Errorf("variable %s: duplicate %s (%d,%d)", v.Name, v.Role, v.I, v.J)
		}
		*slot = idx
	}

	missing := func(name string, idx int) error {
		if idx == NoVar {
			return fmt.Errorf("layout: missing %s variable", name)
		}
		return nil
	}
	for _, b := range lay.B {
		if err := missing("selector", b); err != nil {
			return err
		}
	}
	for name, g := range map[string][][]int{"factor": lay.Z, "epigraph": lay.T, "certificate": lay.J, "residual": lay.Eps, "residual_square": lay.EpsSq} {
		for _, row := range g {
			for _, idx := range row {
				if err := missing(name, idx); err != nil {
					return err
				}
			}
		}
	}
	if err := missing("objective", lay.Y); err != nil {
		return err
	}

	m.Layout = lay
	return nil
}

func filled(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = NoVar
	}
	return out
}

func filledGrid(rows, cols int) [][]int {
	g := make([][]int, rows)
	for r := range g {
		g[r] = filled(cols)
	}
	return g
}

// cell returns &g[i-1][j-1] when 1 <= i <= rows and 1 <= j <= cols.
func cell(g [][]int, i, j, rows, cols int) *int {
	if i < 1 || i > rows || j < 1 || j > cols {
		return nil
	}
	return &g[i-1][j-1]
}
