// Package backend defines the contract between the model compiler and the
// solving engine that takes ownership of the compiled entities.
//
// The compiler creates every variable and constraint through a Backend, in
// a deterministic order, and keeps only the returned handles. If assembly
// fails part-way, the compiler releases every handle it obtained so far, in
// reverse order, before returning the error.
package backend

import (
	"context"
	"errors"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// ErrUnknownHandle is returned when an operation references a handle the
// backend does not own.
var ErrUnknownHandle = errors.New("backend: unknown handle")

// ErrInUse is returned when releasing a variable that a live constraint
// still references.
var ErrInUse = errors.New("backend: handle in use")

// Backend owns the variables and constraints of compiled models.
type Backend interface {
	// CreateVariable registers v and returns its handle.
	CreateVariable(ctx context.Context, v ir.Variable) (ir.Handle, error)

	// CreateConstraint registers c. operands holds the handles of
	// c.Operands(), in the same order.
	CreateConstraint(ctx context.Context, c ir.Constraint, operands []ir.Handle) (ir.Handle, error)

	// Release gives up the entity behind h.
	Release(ctx context.Context, h ir.Handle) error
}
