// Package testutil provides deterministic helpers shared by package tests.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// RandomPoints returns n points in R^d with coordinates uniform in [-scale, scale].
func RandomPoints(rng *rand.Rand, n, d int, scale float64) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = make([]float64, d)
		for j := range pts[i] {
			pts[i][j] = (2*rng.Float64() - 1) * scale
		}
	}
	return pts
}

// RandomSpec builds a valid exact-mode instance with n random points in R^d.
// The ridge is drawn from [0.01, 0.5).
//
// Fails the test immediately if the instance is rejected.
func RandomSpec(t testing.TB, rng *rand.Rand, n, d, k int) *problem.Spec {
	t.Helper()
	ridge := 0.01 + 0.49*rng.Float64()
	s, err := problem.FromPoints(RandomPoints(rng, n, d, 3), k, ridge)
	if err != nil {
		t.Fatalf("RandomSpec(n=%d, d=%d, k=%d): %v", n, d, k, err)
	}
	return s
}

// RandomSelection marks k distinct points out of n as selected.
func RandomSelection(rng *rand.Rand, n, k int) []bool {
	sel := make([]bool, n)
	for _, i := range rng.Perm(n)[:k] {
		sel[i] = true
	}
	return sel
}

// MustSpec wraps problem.FromPoints for literal test instances.
func MustSpec(t testing.TB, points [][]float64, k int, ridge float64) *problem.Spec {
	t.Helper()
	s, err := problem.FromPoints(points, k, ridge)
	if err != nil {
		t.Fatalf("MustSpec: %v", err)
	}
	return s
}
