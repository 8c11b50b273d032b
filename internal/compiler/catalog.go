package compiler

import (
	"fmt"

	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// Catalog is the ordered set of decision variables of one compilation.
type Catalog struct {
	Variables []ir.Variable
	Layout    ir.Layout
}

// NewCatalog allocates every variable family for s.
//
// Emission order is b, z, t (rows 1..n then the ridge row n+1), J, eps,
// epssq, y. J_{p,q} is fixed at zero above the diagonal, nonnegative on it
// and free below it. y carries objective coefficient -1 so that minimizing
// the objective maximizes y.
func NewCatalog(s *problem.Spec) (*Catalog, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	n, d := s.N, s.D
	c := &Catalog{}

	free := func(name string, role ir.Role, i, j int) int {
		return c.add(ir.Variable{Name: name, Role: role, I: i, J: j, Domain: ir.DomainContinuous, Lower: ir.NegInf(), Upper: ir.Inf()})
	}
	nonneg := func(name string, role ir.Role, i, j int) int {
		return c.add(ir.Variable{Name: name, Role: role, I: i, J: j, Domain: ir.DomainContinuous, Lower: 0, Upper: ir.Inf()})
	}

	c.Layout.B = make([]int, n)
	for i := range n {
		c.Layout.B[i] = c.add(ir.Variable{
			Name: fmt.Sprintf("b%d", i+1), Role: ir.RoleSelector, I: i + 1,
			Domain: ir.DomainBinary, Lower: 0, Upper: 1,
		})
	}

	c.Layout.Z = grid(n, d, func(i, j int) int {
		return free(fmt.Sprintf("z%d_%d", i+1, j+1), ir.RoleFactor, i+1, j+1)
	})

	c.Layout.T = grid(n+1, d, func(i, j int) int {
		role := ir.RoleEpigraph
		if i == n {
			role = ir.RoleRidgeEpigraph
		}
		return nonneg(fmt.Sprintf("t%d_%d", i+1, j+1), role, i+1, j+1)
	})

	c.Layout.J = grid(d, d, func(p, q int) int {
		name := fmt.Sprintf("J%d_%d", p+1, q+1)
		switch {
		case q > p:
			return c.add(ir.Variable{Name: name, Role: ir.RoleCertificate, I: p + 1, J: q + 1, Domain: ir.DomainContinuous, Lower: 0, Upper: 0})
		case q == p:
			return nonneg(name, ir.RoleCertificate, p+1, q+1)
		default:
			return free(name, ir.RoleCertificate, p+1, q+1)
		}
	})

	c.Layout.Eps = grid(d, d, func(p, q int) int {
		return free(fmt.Sprintf("eps%d_%d", p+1, q+1), ir.RoleResidual, p+1, q+1)
	})
	c.Layout.EpsSq = grid(d, d, func(p, q int) int {
		return free(fmt.Sprintf("epssq%d_%d", p+1, q+1), ir.RoleResidualSquare, p+1, q+1)
	})

	c.Layout.Y = c.add(ir.Variable{Name: "y", Role: ir.RoleObjective, Domain: ir.DomainContinuous, Lower: ir.NegInf(), Upper: ir.Inf(), Obj: -1})

	return c, nil
}

func (c *Catalog) add(v ir.Variable) int {
	c.Variables = append(c.Variables, v)
	return len(c.Variables) - 1
}

// Diagonal returns the catalog indices of J_{1,1} .. J_{d,d}.
func (c *Catalog) Diagonal() []int {
	out := make([]int, len(c.Layout.J))
	for p := range c.Layout.J {
		out[p] = c.Layout.J[p][p]
	}
	return out
}

// grid fills a rows×cols index matrix row by row.
func grid(rows, cols int, alloc func(r, c int) int) [][]int {
	g := make([][]int, rows)
	for r := range rows {
		g[r] = make([]int, cols)
		for c := range cols {
			g[r][c] = alloc(r, c)
		}
	}
	return g
}
