// Package harness provides a conformance testing framework for the dopt
// model compiler.
//
// A scenario is a YAML file describing one D-optimal design instance and a
// list of assertions about the model compiled from it. Each scenario runs in
// a fresh in-memory SQLite store: the compiler stages every entity through a
// store session, the session commits the model, and assertions are evaluated
// against the model read back from the store. A scenario that names an
// expect_error passes only when compilation fails with that error code.
//
// Supported assertions:
//
//	variable_count      number of variables of a role
//	constraint_count    number of constraints of a kind
//	bounds              bounds of a named variable or constraint
//	constraint_present  a named constraint exists
//	selection_mode      exact or knapsack
//	warm_start          the certified warm start of a selection is feasible
//	hash_stable         recompilation and cloning reproduce the model hash
//
// RunWithGolden additionally snapshots the rendered model text with goldie:
//
//	go test ./internal/harness -update
package harness
