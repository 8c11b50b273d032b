package ir

import "math"

// Catalog positions of the single-point fixture.
const (
	fxB = iota
	fxZ
	fxT
	fxRidgeT
	fxJ
	fxEps
	fxEpsSq
	fxY
)

// singlePointModel is the model of one candidate point (5) in R^1 with
// k = 1 and ε = 0.01, written out by hand.
func singlePointModel() *Model {
	inf := math.Inf(1)
	ninf := math.Inf(-1)
	lin := func(pairs ...float64) []Term {
		out := make([]Term, 0, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			out = append(out, Term{Var: int(pairs[i]), Coef: pairs[i+1]})
		}
		return out
	}

	m := &Model{
		Name:      "scenario-a",
		N:         1,
		D:         1,
		K:         1,
		Mode:      ModeExact,
		Ridge:     0.01,
		Capacity:  1,
		Objective: "product",
		Variables: []Variable{
			{Name: "b1", Role: RoleSelector, I: 1, Domain: DomainBinary, Lower: 0, Upper: 1, Handle: "h-b1"},
			{Name: "z1_1", Role: RoleFactor, I: 1, J: 1, Domain: DomainContinuous, Lower: ninf, Upper: inf, Handle: "h-z"},
			{Name: "t1_1", Role: RoleEpigraph, I: 1, J: 1, Domain: DomainContinuous, Lower: 0, Upper: inf, Handle: "h-t1"},
			{Name: "t2_1", Role: RoleRidgeEpigraph, I: 2, J: 1, Domain: DomainContinuous, Lower: 0, Upper: inf, Handle: "h-t2"},
			{Name: "J1_1", Role: RoleCertificate, I: 1, J: 1, Domain: DomainContinuous, Lower: 0, Upper: inf, Handle: "h-J"},
			{Name: "eps1_1", Role: RoleResidual, I: 1, J: 1, Domain: DomainContinuous, Lower: ninf, Upper: inf, Handle: "h-eps"},
			{Name: "epssq1_1", Role: RoleResidualSquare, I: 1, J: 1, Domain: DomainContinuous, Lower: ninf, Upper: inf, Handle: "h-epssq"},
			{Name: "y", Role: RoleObjective, Domain: DomainContinuous, Lower: ninf, Upper: inf, Obj: -1, Handle: "h-y"},
		},
		Constraints: []Constraint{
			{Name: "factor1_1", Kind: KindLinear, Linear: lin(fxZ, 5, fxEps, 0.01, fxJ, -1), Lower: 0, Upper: 0, Flags: ModelFlags()},
			{Name: "cone1_1", Kind: KindRotatedCone, Cone: &ConeTerm{X: fxZ, Y: fxT, Z: fxB}, Lower: ninf, Upper: 0, Flags: ModelFlags()},
			{Name: "cone1_1_pos", Kind: KindLinear, Linear: lin(fxZ, 2, fxT, -1, fxB, -1), Lower: ninf, Upper: 0, Flags: CutFlags()},
			{Name: "cone1_1_neg", Kind: KindLinear, Linear: lin(fxZ, -2, fxT, -1, fxB, -1), Lower: ninf, Upper: 0, Flags: CutFlags()},
			{Name: "ridgecone1_1", Kind: KindRotatedCone, Cone: &ConeTerm{X: fxEps, Y: fxEpsSq, Z: NoVar}, Lower: ninf, Upper: 0, Flags: ModelFlags()},
			{Name: "ridgecone1_1_pos", Kind: KindLinear, Linear: lin(fxEps, 2, fxEpsSq, -1), Lower: ninf, Upper: 1, Flags: CutFlags()},
			{Name: "ridgecone1_1_neg", Kind: KindLinear, Linear: lin(fxEps, -2, fxEpsSq, -1), Lower: ninf, Upper: 1, Flags: CutFlags()},
			{Name: "rowsum1", Kind: KindLinear, Linear: lin(fxT, 1, fxRidgeT, 1, fxJ, -1), Lower: ninf, Upper: 0, Flags: ModelFlags()},
			{Name: "ridgesum1", Kind: KindLinear, Linear: lin(fxEpsSq, 1, fxRidgeT, -1), Lower: ninf, Upper: 0, Flags: ModelFlags()},
			{Name: "objective", Kind: KindPowerProduct, Product: &ProductTerm{Vars: []int{fxJ}, Exponent: 1, Coef: 1}, Linear: lin(fxY, -1), Lower: 0, Upper: inf, Flags: ModelFlags()},
			{Name: "objective_amgm", Kind: KindLinear, Linear: lin(fxJ, 1, fxY, -1), Lower: 0, Upper: inf, Flags: ModelFlags()},
			{Name: "cardinality", Kind: KindLinear, Linear: lin(fxB, 1), Lower: 1, Upper: 1, Flags: ModelFlags()},
		},
	}
	for i := range m.Constraints {
		m.Constraints[i].Handle = Handle("h-c" + m.Constraints[i].Name)
	}
	if err := m.RebuildLayout(); err != nil {
		panic(err)
	}
	return m
}

// singlePointWarmStart is a feasible point of singlePointModel that
// selects the point: J = sqrt(25 + ε²), z = 5/J, eps = ε/J.
func singlePointWarmStart() Point {
	j := math.Sqrt(25 + 0.01*0.01)
	z := 5 / j
	e := 0.01 / j
	return Point{1, z, z * z, e * e, j, e, e * e, j}
}
