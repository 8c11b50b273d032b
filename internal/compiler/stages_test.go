package compiler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
	"github.com/lidingxu/D-optimal-design/internal/testutil"
)

// scenarioA is the single-point, single-axis instance A=[[5]], k=1, ε=0.01.
func scenarioA(t *testing.T) *problem.Spec {
	t.Helper()
	return testutil.MustSpec(t, [][]float64{{5}}, 1, 0.01)
}

func scenarioB(t *testing.T) *problem.Spec {
	t.Helper()
	s := testutil.MustSpec(t, [][]float64{{5}}, -1, 0.01)
	s.Weights = []float64{1}
	s.Capacity = 1
	return s
}

func build(t *testing.T, s *problem.Spec, opts ...Option) *ir.Model {
	t.Helper()
	m, err := New(nil, opts...).Build(s)
	require.NoError(t, err)
	return m
}

func constraint(t *testing.T, m *ir.Model, name string) ir.Constraint {
	t.Helper()
	c, ok := m.Constraint(name)
	require.True(t, ok, "constraint %s missing", name)
	return c
}

// linearOf maps variable names to coefficients.
func linearOf(m *ir.Model, c ir.Constraint) map[string]float64 {
	out := make(map[string]float64)
	for _, term := range c.Linear {
		out[m.Variables[term.Var].Name] = term.Coef
	}
	return out
}

// =============================================================================
// Scenario tests
// =============================================================================

func TestScenarioAConstraints(t *testing.T) {
	m := build(t, scenarioA(t))
	require.Len(t, m.Constraints, 12)

	factor := constraint(t, m, "factor1_1")
	assert.Equal(t, map[string]float64{"z1_1": 5, "eps1_1": 0.01, "J1_1": -1}, linearOf(m, factor))
	assert.Equal(t, 0.0, factor.Lower)
	assert.Equal(t, 0.0, factor.Upper)

	rowsum := constraint(t, m, "rowsum1")
	assert.Equal(t, map[string]float64{"t1_1": 1, "t2_1": 1, "J1_1": -1}, linearOf(m, rowsum))
	assert.True(t, math.IsInf(rowsum.Lower, -1))
	assert.Equal(t, 0.0, rowsum.Upper)

	cone := constraint(t, m, "cone1_1")
	assert.Equal(t, ir.KindRotatedCone, cone.Kind)
	assert.Equal(t, "z1_1", m.Variables[cone.Cone.X].Name)
	assert.Equal(t, "t1_1", m.Variables[cone.Cone.Y].Name)
	assert.Equal(t, "b1", m.Variables[cone.Cone.Z].Name)

	pos := constraint(t, m, "cone1_1_pos")
	assert.Equal(t, map[string]float64{"z1_1": 2, "t1_1": -1, "b1": -1}, linearOf(m, pos))
	assert.Equal(t, 0.0, pos.Upper)
	assert.True(t, pos.Flags.Removable)
	assert.False(t, pos.Flags.Enforce)
	neg := constraint(t, m, "cone1_1_neg")
	assert.Equal(t, map[string]float64{"z1_1": -2, "t1_1": -1, "b1": -1}, linearOf(m, neg))

	ridge := constraint(t, m, "ridgecone1_1")
	assert.Equal(t, "eps1_1", m.Variables[ridge.Cone.X].Name)
	assert.Equal(t, "epssq1_1", m.Variables[ridge.Cone.Y].Name)
	assert.Equal(t, ir.NoVar, ridge.Cone.Z)

	rpos := constraint(t, m, "ridgecone1_1_pos")
	assert.Equal(t, map[string]float64{"eps1_1": 2, "epssq1_1": -1}, linearOf(m, rpos))
	assert.Equal(t, 1.0, rpos.Upper)
	rneg := constraint(t, m, "ridgecone1_1_neg")
	assert.Equal(t, map[string]float64{"eps1_1": -2, "epssq1_1": -1}, linearOf(m, rneg))
	assert.Equal(t, 1.0, rneg.Upper)

	ridgesum := constraint(t, m, "ridgesum1")
	assert.Equal(t, map[string]float64{"epssq1_1": 1, "t2_1": -1}, linearOf(m, ridgesum))
	assert.Equal(t, 0.0, ridgesum.Upper)

	obj := constraint(t, m, "objective")
	assert.Equal(t, ir.KindPowerProduct, obj.Kind)
	require.NotNil(t, obj.Product)
	assert.Equal(t, []int{m.Layout.J[0][0]}, obj.Product.Vars)
	assert.Equal(t, 1.0, obj.Product.Exponent)
	assert.Equal(t, map[string]float64{"y": -1}, linearOf(m, obj))
	assert.Equal(t, 0.0, obj.Lower)

	amgm := constraint(t, m, "objective_amgm")
	assert.Equal(t, map[string]float64{"J1_1": 1, "y": -1}, linearOf(m, amgm))
	assert.Equal(t, 0.0, amgm.Lower)
	assert.True(t, math.IsInf(amgm.Upper, 1))

	card := constraint(t, m, "cardinality")
	assert.Equal(t, map[string]float64{"b1": 1}, linearOf(m, card))
	assert.Equal(t, 1.0, card.Lower)
	assert.Equal(t, 1.0, card.Upper)

	_, ok := m.Constraint("knapsack")
	assert.False(t, ok)
}

func TestScenarioBOnlySelectionDiffers(t *testing.T) {
	a := build(t, scenarioA(t))
	b := build(t, scenarioB(t))
	require.Len(t, b.Constraints, len(a.Constraints))

	last := len(a.Constraints) - 1
	for i := range last {
		assert.Equal(t, a.Constraints[i], b.Constraints[i], a.Constraints[i].Name)
	}
	assert.Equal(t, a.Variables, b.Variables)

	ks := b.Constraints[last]
	assert.Equal(t, "knapsack", ks.Name)
	assert.Equal(t, map[string]float64{"b1": 1}, linearOf(b, ks))
	assert.True(t, math.IsInf(ks.Lower, -1))
	assert.Equal(t, 1.0, ks.Upper)
	assert.Equal(t, ir.ModeKnapsack, b.Mode)
}

func TestEmissionOrder(t *testing.T) {
	s := testutil.MustSpec(t, [][]float64{{1, 0}, {0, 1}}, 2, 0.1)
	m := build(t, s)

	names := make([]string, len(m.Constraints))
	for i, c := range m.Constraints {
		names[i] = c.Name
	}
	assert.Equal(t, []string{
		"factor1_1", "factor1_2", "factor2_2",
		"cone1_1", "cone1_1_pos", "cone1_1_neg",
		"cone1_2", "cone1_2_pos", "cone1_2_neg",
		"cone2_1", "cone2_1_pos", "cone2_1_neg",
		"cone2_2", "cone2_2_pos", "cone2_2_neg",
		"ridgecone1_1", "ridgecone1_1_pos", "ridgecone1_1_neg",
		"ridgecone1_2", "ridgecone1_2_pos", "ridgecone1_2_neg",
		"ridgecone2_1", "ridgecone2_1_pos", "ridgecone2_1_neg",
		"ridgecone2_2", "ridgecone2_2_pos", "ridgecone2_2_neg",
		"rowsum1", "rowsum2",
		"ridgesum1", "ridgesum2",
		"objective", "objective_amgm",
		"cardinality",
	}, names)
}

func TestConstraintCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, tc := range []struct{ n, d int }{{1, 1}, {3, 2}, {5, 3}, {2, 4}} {
		m := build(t, testutil.RandomSpec(t, rng, tc.n, tc.d, 1))
		n, d := tc.n, tc.d

		assert.Len(t, m.Constraints, d*(d+1)/2+3*n*d+3*d*d+2*d+3)
		assert.Equal(t, n*d+d*d, m.CountKind(ir.KindRotatedCone))
		assert.Equal(t, 1, m.CountKind(ir.KindPowerProduct))

		cuts := 0
		for _, c := range m.Constraints {
			if c.Flags.Removable {
				cuts++
			}
		}
		assert.Equal(t, 2*(n*d+d*d), cuts)
	}
}

func TestFactorCoefficientsFollowDesignMatrix(t *testing.T) {
	s := testutil.MustSpec(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, 2, 0.2)
	m := build(t, s)

	f := constraint(t, m, "factor2_2")
	assert.Equal(t, map[string]float64{
		"z1_2": 2, "z2_2": 4, "z3_2": 6,
		"eps2_2": 0.2, "J2_2": -1,
	}, linearOf(m, f))

	f = constraint(t, m, "factor1_2")
	assert.Equal(t, map[string]float64{
		"z1_2": 1, "z2_2": 3, "z3_2": 5,
		"eps1_2": 0.2, "J1_2": -1,
	}, linearOf(m, f))

	_, ok := m.Constraint("factor2_1")
	assert.False(t, ok, "no factor row below the diagonal")
}

// =============================================================================
// Selection
// =============================================================================

func TestModeExclusivity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, k := range []int{-3, -1, 0, 1, 4} {
		s := testutil.RandomSpec(t, rng, 4, 2, max(k, 0))
		s.K = k
		m := build(t, s)

		_, hasCard := m.Constraint("cardinality")
		_, hasKnap := m.Constraint("knapsack")
		assert.NotEqual(t, hasCard, hasKnap, "k=%d", k)
		assert.Equal(t, k >= 0, hasCard, "k=%d", k)
		assert.Empty(t, Validate(m), "k=%d", k)
	}
}

func TestKnapsackWeights(t *testing.T) {
	s := testutil.MustSpec(t, [][]float64{{1}, {2}, {3}}, -1, 0.1)
	s.Weights = []float64{0.5, 2, 1.5}
	s.Capacity = 2.5

	m := build(t, s)
	ks := constraint(t, m, "knapsack")
	assert.Equal(t, map[string]float64{"b1": 0.5, "b2": 2, "b3": 1.5}, linearOf(m, ks))
	assert.Equal(t, 2.5, ks.Upper)
	assert.Equal(t, []float64{0.5, 2, 1.5}, m.Weights)
	assert.Equal(t, 2.5, m.Capacity)
}

func TestSelectionStageRejectsOversizedCardinality(t *testing.T) {
	s := scenarioA(t)
	c, err := NewCatalog(s)
	require.NoError(t, err)

	bad := s.Clone()
	bad.K = 2
	_, err = SelectionStage(bad, c)
	assert.ErrorIs(t, err, problem.ErrInvalidCardinality)
	assert.Equal(t, bad.Validate(), err)

	bad = scenarioB(t)
	bad.Capacity = -1
	_, err = SelectionStage(bad, c)
	assert.ErrorIs(t, err, problem.ErrInvalidCardinality)
	assert.Equal(t, bad.Validate(), err)
}

func TestSelectionStageMatchesBuildError(t *testing.T) {
	s := scenarioA(t)
	c, err := NewCatalog(s)
	require.NoError(t, err)

	bad := s.Clone()
	bad.K = 3
	_, stageErr := SelectionStage(bad, c)
	_, buildErr := New(nil).Build(bad)
	require.Error(t, stageErr)
	require.Error(t, buildErr)
	assert.Contains(t, buildErr.Error(), stageErr.Error())
	assert.Equal(t, "INVALID_CARDINALITY: k: cannot choose 3 of 1 points", stageErr.Error())
}

// =============================================================================
// Objective strategies
// =============================================================================

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("")
	require.NoError(t, err)
	assert.Equal(t, ObjectiveProduct, s.Name())

	s, err = StrategyByName("logsum")
	require.NoError(t, err)
	assert.Equal(t, ObjectiveLogSum, s.Name())

	_, err = StrategyByName("simplex")
	assert.Error(t, err)
}

func TestLogSumObjective(t *testing.T) {
	s := testutil.MustSpec(t, [][]float64{{1, 0}, {0, 1}}, 1, 0.1)
	m := build(t, s, WithObjective(LogSumObjective{}))
	assert.Equal(t, ObjectiveLogSum, m.Objective)

	obj := constraint(t, m, "objective")
	assert.Equal(t, ir.KindLogSum, obj.Kind)
	require.NotNil(t, obj.LogSum)
	assert.Equal(t, []int{m.Layout.J[0][0], m.Layout.J[1][1], m.Layout.Y}, obj.LogSum.Vars)
	assert.Equal(t, []float64{0.5, 0.5, -1}, obj.LogSum.Coefs)

	// J11=4, J22=1 has geometric mean 2.
	p := make(ir.Point, len(m.Variables))
	p[m.Layout.J[0][0]] = 4
	p[m.Layout.J[1][1]] = 1
	p[m.Layout.Y] = 2
	assert.InDelta(t, 0, obj.Activity(p), 1e-12)

	_, ok := m.Constraint("objective_amgm")
	assert.True(t, ok)
}

// =============================================================================
// Properties
// =============================================================================

func TestAMGMCutNeverExcludesEpigraphPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	for d := 1; d <= 5; d++ {
		m := build(t, testutil.RandomSpec(t, rng, 2, d, 1))
		obj := constraint(t, m, "objective")
		amgm := constraint(t, m, "objective_amgm")

		for range 200 {
			p := make(ir.Point, len(m.Variables))
			logSum := 0.0
			for _, v := range obj.Product.Vars {
				p[v] = 5 * rng.Float64()
				logSum += math.Log(p[v])
			}
			geo := math.Exp(logSum / float64(d))
			p[m.Layout.Y] = geo * rng.Float64()

			require.GreaterOrEqual(t, obj.Activity(p), -1e-12)
			assert.GreaterOrEqual(t, amgm.Activity(p), -1e-12)
		}
	}
}

func TestAMGMCutTightWhenDiagonalEqual(t *testing.T) {
	m := build(t, testutil.RandomSpec(t, rand.New(rand.NewSource(9)), 3, 3, 2))
	p := make(ir.Point, len(m.Variables))
	for q := range 3 {
		p[m.Layout.J[q][q]] = 2.5
	}
	p[m.Layout.Y] = 2.5

	assert.InDelta(t, 0, constraint(t, m, "objective").Activity(p), 1e-12)
	assert.InDelta(t, 0, constraint(t, m, "objective_amgm").Activity(p), 1e-12)
}

func TestSecantsNeverCutFeasibleConePoints(t *testing.T) {
	m := build(t, scenarioA(t))
	cone := constraint(t, m, "cone1_1")
	pos := constraint(t, m, "cone1_1_pos")
	neg := constraint(t, m, "cone1_1_neg")
	rcone := constraint(t, m, "ridgecone1_1")
	rpos := constraint(t, m, "ridgecone1_1_pos")
	rneg := constraint(t, m, "ridgecone1_1_neg")

	rng := rand.New(rand.NewSource(77))
	for range 1000 {
		p := make(ir.Point, len(m.Variables))
		y := 10 * rng.Float64()
		z := rng.Float64()
		if rng.Intn(4) == 0 {
			z = float64(rng.Intn(2))
		}
		x := math.Sqrt(y*z) * (2*rng.Float64() - 1)
		p[cone.Cone.X], p[cone.Cone.Y], p[cone.Cone.Z] = x, y, z

		require.LessOrEqual(t, cone.Activity(p), 1e-12)
		assert.LessOrEqual(t, pos.Activity(p), 1e-12)
		assert.LessOrEqual(t, neg.Activity(p), 1e-12)

		e := 4 * (2*rng.Float64() - 1)
		p[rcone.Cone.X] = e
		p[rcone.Cone.Y] = e*e + rng.Float64()
		require.LessOrEqual(t, rcone.Activity(p), 1e-12)
		assert.LessOrEqual(t, rpos.Activity(p), 1+1e-12)
		assert.LessOrEqual(t, rneg.Activity(p), 1+1e-12)
	}
}
