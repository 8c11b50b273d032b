// Package generate builds synthetic D-optimal design instances.
//
// Two families are supported:
//
//	normal  n points in R^d with independent N(0, 1/n) coordinates
//	block   all pairs of t treatments in a block design with blocks of
//	        size 2; the point of pair (i, j) is e_i - e_j with the last
//	        treatment's coordinate dropped, so n = t(t-1)/2 and d = t-1
//
// Instance turns the points into a validated problem.Spec that can be
// written with problem.WriteInstance.
package generate

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// DefaultEpsRaw is the raw ridge written into generated instances.
const DefaultEpsRaw = 1e-6

// Family names.
const (
	FamilyNormal = "normal"
	FamilyBlock  = "block"
)

// Normal draws n points in R^d whose coordinates are independent normal
// variates with mean 0 and standard deviation 1/sqrt(n).
func Normal(src rand.Source, n, d int) ([][]float64, error) {
	if n < 1 {
		return nil, &problem.SpecError{Code: problem.CodeInvalidDimension, Field: "n", Message: "candidate count must be positive"}
	}
	if d < 1 {
		return nil, &problem.SpecError{Code: problem.CodeInvalidDimension, Field: "d", Message: "dimension must be positive"}
	}

	dist := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(float64(n)), Src: src}
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, d)
		for j := range p {
			p[j] = dist.Rand()
		}
		points[i] = p
	}
	return points, nil
}

// Block returns the candidate points of a pairwise block design on t
// treatments, pairs (i, j) with i < j in lexicographic order.
func Block(t int) ([][]float64, error) {
	if t < 2 {
		return nil, &problem.SpecError{Code: problem.CodeInvalidDimension, Field: "treatments", Message: "a block design needs at least 2 treatments"}
	}
	d := t - 1
	points := make([][]float64, 0, t*d/2)
	for i := 0; i < t; i++ {
		for j := i + 1; j < t; j++ {
			p := make([]float64, d)
			p[i] = 1
			if j < d {
				p[j] = -1
			}
			points = append(points, p)
		}
	}
	return points, nil
}

// Instance builds the validated Spec of points with cardinality k and
// ridge sqrt(epsRaw), the same transform the instance loader applies.
func Instance(points [][]float64, k int, epsRaw float64) (*problem.Spec, error) {
	if math.IsNaN(epsRaw) || math.IsInf(epsRaw, 0) || epsRaw <= 0 {
		return nil, &problem.SpecError{Code: problem.CodeInvalidRegularization, Field: "eps", Message: "raw ridge parameter must be finite and positive"}
	}
	return problem.FromPoints(points, k, math.Sqrt(epsRaw))
}
