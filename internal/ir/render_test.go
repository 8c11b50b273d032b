package ir

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singlePointListing = `model scenario-a
  n=1 d=1 mode=exact k=1 ridge=0.01 objective=product
minimize
  -y
variables
  b1 binary [0, 1]
  z1_1 continuous [-inf, +inf]
  t1_1 continuous [0, +inf]
  t2_1 continuous [0, +inf]
  J1_1 continuous [0, +inf]
  eps1_1 continuous [-inf, +inf]
  epssq1_1 continuous [-inf, +inf]
  y continuous [-inf, +inf]
constraints
  factor1_1 linear: 5 z1_1 + 0.01 eps1_1 - J1_1 = 0
  cone1_1 rotated-cone: z1_1^2 - t1_1*b1 <= 0
  cone1_1_pos linear: 2 z1_1 - t1_1 - b1 <= 0 [cut]
  cone1_1_neg linear: -2 z1_1 - t1_1 - b1 <= 0 [cut]
  ridgecone1_1 rotated-cone: eps1_1^2 - epssq1_1 <= 0
  ridgecone1_1_pos linear: 2 eps1_1 - epssq1_1 <= 1 [cut]
  ridgecone1_1_neg linear: -2 eps1_1 - epssq1_1 <= 1 [cut]
  rowsum1 linear: t1_1 + t2_1 - J1_1 <= 0
  ridgesum1 linear: epssq1_1 - t2_1 <= 0
  objective nonlinear-power-product: prod(J1_1^1) - y >= 0
  objective_amgm linear: J1_1 - y >= 0
  cardinality linear: b1 = 1
`

func TestRenderSinglePoint(t *testing.T) {
	assert.Equal(t, singlePointListing, RenderString(singlePointModel()))
}

func TestRenderWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, singlePointModel()))
	assert.Equal(t, singlePointListing, buf.String())
}

func TestRenderKnapsackHeader(t *testing.T) {
	m := singlePointModel()
	m.Mode = ModeKnapsack
	m.K = -1
	m.Capacity = 2.5
	m.Weights = []float64{3}

	header := strings.SplitN(RenderString(m), "\n", 3)[1]
	assert.Equal(t, "  n=1 d=1 mode=knapsack k=-1 capacity=2.5 weights=[3] ridge=0.01 objective=product", header)
}

func TestRenderLogSum(t *testing.T) {
	m := singlePointModel()
	m.Constraints[9] = Constraint{
		Name:   "objective",
		Kind:   KindLogSum,
		LogSum: &LogSumTerm{Vars: []int{fxJ}, Coefs: []float64{1}},
		Linear: []Term{{Var: fxY, Coef: -1}},
		Lower:  0,
		Upper:  math.Inf(1),
		Flags:  ModelFlags(),
	}
	assert.Contains(t, RenderString(m), "  objective nonlinear-log-sum: log(J1_1) - y >= 0\n")
}

func TestRenderRelation(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name         string
		lower, upper float64
		want         string
	}{
		{"equality", 2, 2, "x = 2"},
		{"free", -inf, inf, "x free"},
		{"upper only", -inf, 3, "x <= 3"},
		{"lower only", -1.5, inf, "x >= -1.5"},
		{"ranged", 0, 1, "0 <= x <= 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderRelation(tt.lower, tt.upper, "x"))
		})
	}
}

func TestRenderScaledProductAndEmptyExpression(t *testing.T) {
	m := singlePointModel()
	m.Constraints = []Constraint{
		{Name: "p", Kind: KindPowerProduct, Product: &ProductTerm{Vars: []int{fxJ, fxY}, Exponent: 0.5, Coef: -2}, Lower: 0, Upper: 0},
		{Name: "empty", Kind: KindLinear, Lower: 0, Upper: 0},
		{Name: "dangling", Kind: KindLinear, Linear: []Term{{Var: 99, Coef: 1}}, Lower: 0, Upper: 0},
	}
	out := RenderString(m)
	assert.Contains(t, out, "  p nonlinear-power-product: -2 prod(J1_1^0.5, y^0.5) = 0\n")
	assert.Contains(t, out, "  empty linear: 0 = 0\n")
	assert.Contains(t, out, "  dangling linear: ?99 = 0\n")
}

func TestRenderNoObjective(t *testing.T) {
	m := singlePointModel()
	m.Variables[fxY].Obj = 0
	assert.Contains(t, RenderString(m), "minimize\n  0\nvariables\n")
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{0.01, "0.01"},
		{1e-7, "1e-7"},
		{1e21, "1e+21"},
		{123456789, "123456789"},
		{math.Inf(1), "+inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in), "FormatNumber(%v)", tt.in)
	}
}
