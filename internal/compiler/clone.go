package compiler

import (
	"context"
	"fmt"

	"github.com/lidingxu/D-optimal-design/internal/backend"
	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// EntityKind distinguishes variables from constraints in a Transform call.
type EntityKind string

const (
	EntityVariable   EntityKind = "variable"
	EntityConstraint EntityKind = "constraint"
)

// Entity is the argument of a Transform call. Exactly one of Variable and
// Constraint is set; both point at the clone's copy. Operands holds the
// already transformed handles of a constraint's operands.
type Entity struct {
	Kind       EntityKind
	Index      int
	Handle     ir.Handle
	Variable   *ir.Variable
	Constraint *ir.Constraint
	Operands   []ir.Handle
}

// Name returns the name of the underlying variable or constraint.
func (e Entity) Name() string {
	if e.Variable != nil {
		return e.Variable.Name
	}
	return e.Constraint.Name
}

// Transform maps an entity of the original model to its identity in the
// clone.
type Transform func(ctx context.Context, e Entity) (ir.Handle, error)

// Clone returns a structural copy of m whose handles are produced by
// transform. transform is called once per entity: variables in catalog
// order, then constraints in emission order. m is never modified.
func Clone(ctx context.Context, m *ir.Model, transform Transform) (*ir.Model, error) {
	out := m.DeepCopy()

	for i := range out.Variables {
		h, err := transform(ctx, Entity{
			Kind:     EntityVariable,
			Index:    i,
			Handle:   m.Variables[i].Handle,
			Variable: &out.Variables[i],
		})
		if err != nil {
			return nil, &CloneError{Entity: out.Variables[i].Name, Err: err}
		}
		out.Variables[i].Handle = h
	}

	for i := range out.Constraints {
		h, err := transform(ctx, Entity{
			Kind:       EntityConstraint,
			Index:      i,
			Handle:     m.Constraints[i].Handle,
			Constraint: &out.Constraints[i],
			Operands:   operandHandles(out, out.Constraints[i]),
		})
		if err != nil {
			return nil, &CloneError{Entity: out.Constraints[i].Name, Err: err}
		}
		out.Constraints[i].Handle = h
	}

	return out, nil
}

// CloneInto clones m by creating every entity anew in b. If any create
// fails, the entities created for the clone are released again.
func CloneInto(ctx context.Context, m *ir.Model, b backend.Backend) (*ir.Model, error) {
	var created []ir.Handle
	out, err := Clone(ctx, m, func(ctx context.Context, e Entity) (ir.Handle, error) {
		var (
			h   ir.Handle
			err error
		)
		if e.Kind == EntityVariable {
			h, err = b.CreateVariable(ctx, *e.Variable)
		} else {
			h, err = b.CreateConstraint(ctx, *e.Constraint, e.Operands)
		}
		if err == nil {
			created = append(created, h)
		}
		return h, err
	})
	if err != nil {
		if rbErr := releaseAll(ctx, b, created); rbErr != nil {
			return nil, fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return nil, err
	}
	return out, nil
}
