package problem

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// DefaultCapacity is the knapsack capacity assumed when none is configured.
const DefaultCapacity = 1.0

// Spec is the immutable input of a compilation: n candidate points in R^d
// given as the columns of the d×n design matrix A, the cardinality selector
// k and the ridge parameter.
//
// Ridge is ε, already square-rooted by the caller: the compiled model
// realizes the regularization ε²·I. It is never transformed again.
//
// k >= 0 selects exact-cardinality mode (choose exactly k points); k < 0
// selects knapsack mode, where Weights (nil means all 1) and Capacity bound
// the weighted selection.
type Spec struct {
	N        int
	D        int
	A        *mat.Dense
	K        int
	Ridge    float64
	Weights  []float64
	Capacity float64
}

// FromPoints builds a Spec whose design matrix has points[i] as column i.
// Ragged input fails with INVALID_DIMENSION. The result is validated.
func FromPoints(points [][]float64, k int, ridge float64) (*Spec, error) {
	if len(points) == 0 {
		return nil, dimensionError("points", "at least one candidate point is required")
	}
	d := len(points[0])
	if d == 0 {
		return nil, dimensionError("points[0]", "points must have at least one coordinate")
	}

	a := mat.NewDense(d, len(points), nil)
	for i, pt := range points {
		if len(pt) != d {
			return nil, dimensionError("points", "point %d has %d coordinates, want %d", i+1, len(pt), d)
		}
		a.SetCol(i, pt)
	}

	s := &Spec{N: len(points), D: d, A: a, K: k, Ridge: ridge, Capacity: DefaultCapacity}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Mode returns the selection mode implied by the sign of K.
func (s *Spec) Mode() ir.SelectionMode {
	if s.K >= 0 {
		return ir.ModeExact
	}
	return ir.ModeKnapsack
}

// EffectiveWeights returns the knapsack weights, defaulting to all ones.
func (s *Spec) EffectiveWeights() []float64 {
	if s.Weights != nil {
		return append([]float64(nil), s.Weights...)
	}
	w := make([]float64, s.N)
	for i := range w {
		w[i] = 1
	}
	return w
}

// Point returns the coordinates of candidate point i (0-based).
func (s *Spec) Point(i int) []float64 {
	return mat.Col(nil, i, s.A)
}

// Validate checks every invariant of the specification.
// It returns a *SpecError on the first violation found.
func (s *Spec) Validate() error {
	if s.N < 1 {
		return dimensionError("n", "candidate count must be positive, got %d", s.N)
	}
	if s.D < 1 {
		return dimensionError("d", "dimension must be positive, got %d", s.D)
	}
	if s.A == nil {
		return dimensionError("A", "design matrix is missing")
	}
	if r, c := s.A.Dims(); r != s.D || c != s.N {
		return dimensionError("A", "design matrix is %dx%d, want %dx%d", r, c, s.D, s.N)
	}
	for p := 0; p < s.D; p++ {
		for i := 0; i < s.N; i++ {
			if v := s.A.At(p, i); math.IsNaN(v) || math.IsInf(v, 0) {
				return &SpecError{Code: CodeInvalidInstance, Field: "A", Message: "design matrix entries must be finite"}
			}
		}
	}

	if math.IsNaN(s.Ridge) || math.IsInf(s.Ridge, 0) || s.Ridge <= 0 {
		return regularizationError("ridge", "ridge parameter must be finite and positive, got %v", s.Ridge)
	}

	return s.ValidateSelection()
}

// ValidateSelection checks the selection data of the active mode only:
// k against n in exact mode, capacity and weights in knapsack mode.
func (s *Spec) ValidateSelection() error {
	if s.Mode() == ir.ModeExact {
		if s.K > s.N {
			return cardinalityError("k", "cannot choose %d of %d points", s.K, s.N)
		}
		return nil
	}

	if math.IsNaN(s.Capacity) || s.Capacity < 0 {
		return cardinalityError("capacity", "knapsack capacity must be non-negative, got %v", s.Capacity)
	}
	if s.Weights != nil {
		if len(s.Weights) != s.N {
			return dimensionError("weights", "got %d weights for %d points", len(s.Weights), s.N)
		}
		for i, w := range s.Weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return cardinalityError("weights", "weight %d is not finite", i+1)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the specification.
func (s *Spec) Clone() *Spec {
	out := *s
	if s.A != nil {
		out.A = mat.DenseCopyOf(s.A)
	}
	if s.Weights != nil {
		out.Weights = append([]float64(nil), s.Weights...)
	}
	return &out
}
