package compiler

import (
	"fmt"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// Objective strategy names.
const (
	ObjectiveProduct = "product"
	ObjectiveLogSum  = "logsum"
)

// ObjectiveStrategy builds the exact epigraph y <= (Π_p J_{p,p})^{1/d}.
type ObjectiveStrategy interface {
	Name() string
	Epigraph(c *Catalog) ir.Constraint
}

// ProductObjective encodes the epigraph as Π_p J_{p,p}^{1/d} − y >= 0.
// It is the default strategy.
type ProductObjective struct{}

func (ProductObjective) Name() string { return ObjectiveProduct }

func (ProductObjective) Epigraph(c *Catalog) ir.Constraint {
	diag := c.Diagonal()
	return ir.Constraint{
		Name: "objective",
		Kind: ir.KindPowerProduct,
		Product: &ir.ProductTerm{
			Vars:     diag,
			Exponent: 1 / float64(len(diag)),
			Coef:     1,
		},
		Linear: []ir.Term{{Var: c.Layout.Y, Coef: -1}},
		Lower:  0,
		Upper:  ir.Inf(),
		Flags:  ir.ModelFlags(),
	}
}

// LogSumObjective encodes the epigraph as (1/d)·Σ_p log J_{p,p} − log y >= 0.
// It requires y > 0 at any feasible point.
type LogSumObjective struct{}

func (LogSumObjective) Name() string { return ObjectiveLogSum }

func (LogSumObjective) Epigraph(c *Catalog) ir.Constraint {
	diag := c.Diagonal()
	vars := append(diag, c.Layout.Y)
	coefs := make([]float64, len(vars))
	for k := range diag {
		coefs[k] = 1 / float64(len(diag))
	}
	coefs[len(diag)] = -1
	return ir.Constraint{
		Name:   "objective",
		Kind:   ir.KindLogSum,
		LogSum: &ir.LogSumTerm{Vars: vars, Coefs: coefs},
		Lower:  0,
		Upper:  ir.Inf(),
		Flags:  ir.ModelFlags(),
	}
}

// StrategyByName resolves a configured strategy name. The empty name
// selects the product encoding.
func StrategyByName(name string) (ObjectiveStrategy, error) {
	switch name {
	case "", ObjectiveProduct:
		return ProductObjective{}, nil
	case ObjectiveLogSum:
		return LogSumObjective{}, nil
	default:
		return nil, fmt.Errorf("unknown objective strategy %q", name)
	}
}

// ObjectiveStage emits the strategy's exact epigraph followed by the linear
// AM-GM bound (1/d)·Σ_p J_{p,p} − y >= 0.
func ObjectiveStage(strategy ObjectiveStrategy, c *Catalog) []ir.Constraint {
	diag := c.Diagonal()
	terms := make([]ir.Term, 0, len(diag)+1)
	for _, v := range diag {
		terms = append(terms, ir.Term{Var: v, Coef: 1 / float64(len(diag))})
	}
	terms = append(terms, ir.Term{Var: c.Layout.Y, Coef: -1})

	return []ir.Constraint{
		strategy.Epigraph(c),
		{
			Name:   "objective_amgm",
			Kind:   ir.KindLinear,
			Linear: terms,
			Lower:  0,
			Upper:  ir.Inf(),
			Flags:  ir.ModelFlags(),
		},
	}
}
