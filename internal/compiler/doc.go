// Package compiler turns a D-optimal design instance into a mixed-integer
// conic model.
//
// Compilation runs in fixed stages over a shared variable catalog:
//
//	catalog    b, z, t, J, eps, epssq, y with index-derived names and bounds
//	factor     Σ_i A[p,i]·z_{i,q} + ε·eps_{p,q} = J_{p,q} for q >= p
//	envelope   point and ridge rotated cones with their secant cuts,
//	           then the row aggregations
//	objective  exact geometric-mean epigraph plus the AM-GM cut
//	selection  cardinality (k >= 0) or knapsack (k < 0)
//
// Build produces the pure model. Compiler.Compile additionally hands every
// entity to a backend.Backend and releases them again if any create fails.
// Clone maps a compiled model onto new entity identities.
package compiler
