// Package ir provides the model intermediate representation for dopt.
//
// A Model is the compiled form of a D-optimal design instance: an ordered
// catalog of decision variables and an ordered list of constraints, ready to
// be handed to a conic/MINLP backend. This package contains the types, their
// canonical serialization, content hashing, text rendering and point
// evaluation. All other internal packages import ir; ir imports nothing
// internal.
//
// Key design constraints:
//   - Variable and constraint names are derived from indices, never generated
//   - Operands reference variables by catalog index, not by backend handle
//   - Handles are identity only; they never take part in hashing or rendering
//   - Infinite bounds are encoded as "+inf"/"-inf" in canonical JSON
package ir
