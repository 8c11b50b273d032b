package ir

import (
	"fmt"
	"math"
)

// Violation describes one bound, integrality or constraint requirement that
// a point fails.
type Violation struct {
	Entity   string  `json:"entity"` // "variable" or "constraint"
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Amount   float64 `json:"amount"`
	Integral bool    `json:"integral,omitempty"`
}

func (v Violation) String() string {
	if v.Integral {
		return fmt.Sprintf("%s %s: value %s is not integral", v.Entity, v.Name, FormatNumber(v.Value))
	}
	return fmt.Sprintf("%s %s: value %s outside [%s, %s] by %s",
		v.Entity, v.Name, FormatNumber(v.Value), FormatNumber(v.Lower), FormatNumber(v.Upper), FormatNumber(v.Amount))
}

// Activity evaluates the constraint expression at p.
// A nonlinear part evaluated outside its domain yields NaN.
func (c Constraint) Activity(p Point) float64 {
	var sum float64
	for _, t := range c.Linear {
		sum += t.Coef * p[t.Var]
	}

	switch {
	case c.Cone != nil:
		z := 1.0
		if c.Cone.Z != NoVar {
			z = p[c.Cone.Z]
		}
		x := p[c.Cone.X]
		sum += x*x - p[c.Cone.Y]*z
	case c.Product != nil:
		prod := c.Product.Coef
		for _, v := range c.Product.Vars {
			if p[v] < 0 {
				return math.NaN()
			}
			prod *= math.Pow(p[v], c.Product.Exponent)
		}
		sum += prod
	case c.LogSum != nil:
		for i, v := range c.LogSum.Vars {
			if p[v] <= 0 {
				return math.NaN()
			}
			sum += c.LogSum.Coefs[i] * math.Log(p[v])
		}
	}

	return sum
}

// excess returns how far value lies outside [lower, upper], scaled so that
// tol is relative to the magnitude of the violated side.
func excess(value, lower, upper, tol float64) (float64, bool) {
	if math.IsNaN(value) {
		return math.Inf(1), true
	}
	if value < lower {
		amt := lower - value
		return amt, amt > tol*(1+math.Abs(lower))
	}
	if value > upper {
		amt := value - upper
		return amt, amt > tol*(1+math.Abs(upper))
	}
	return 0, false
}

// Check evaluates p against every variable bound, every binary domain and
// every constraint, and returns the violations in catalog order.
func (m *Model) Check(p Point, tol float64) ([]Violation, error) {
	if len(p) != len(m.Variables) {
		return nil, fmt.Errorf("point has %d values, model has %d variables", len(p), len(m.Variables))
	}

	var out []Violation
	for i, v := range m.Variables {
		x := p[i]
		if amt, bad := excess(x, v.Lower, v.Upper, tol); bad {
			out = append(out, Violation{Entity: "variable", Name: v.Name, Value: x, Lower: v.Lower, Upper: v.Upper, Amount: amt})
			continue
		}
		if v.Domain == DomainBinary && math.Abs(x-math.Round(x)) > tol {
			out = append(out, Violation{Entity: "variable", Name: v.Name, Value: x, Lower: v.Lower, Upper: v.Upper, Integral: true})
		}
	}

	for _, c := range m.Constraints {
		act := c.Activity(p)
		if amt, bad := excess(act, c.Lower, c.Upper, tol); bad {
			out = append(out, Violation{Entity: "constraint", Name: c.Name, Value: act, Lower: c.Lower, Upper: c.Upper, Amount: amt})
		}
	}
	return out, nil
}

// ObjectiveValue returns Σ obj·x at p (the minimized quantity).
func (m *Model) ObjectiveValue(p Point) float64 {
	var sum float64
	for i, v := range m.Variables {
		sum += v.Obj * p[i]
	}
	return sum
}
