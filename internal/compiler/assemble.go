package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lidingxu/D-optimal-design/internal/backend"
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// DefaultModelName is recorded on models compiled without WithName.
const DefaultModelName = "dopt"

// Compiler assembles models and hands their entities to a backend.
//
// A Compiler holds no per-compilation state; one value can compile any
// number of instances, concurrently if the backend allows it.
type Compiler struct {
	backend   backend.Backend
	logger    *slog.Logger
	objective ObjectiveStrategy
	name      string
}

// New creates a compiler targeting b. A nil backend is allowed for Build.
func New(b backend.Backend, opts ...Option) *Compiler {
	c := &Compiler{
		backend:   b,
		logger:    discardLogger(),
		objective: ProductObjective{},
		name:      DefaultModelName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Objective returns the configured objective strategy.
func (c *Compiler) Objective() ObjectiveStrategy { return c.objective }

type stage struct {
	name string
	emit func() ([]ir.Constraint, error)
}

// Build runs every stage and returns the model without backend handles.
// The first stage error aborts the build.
func (c *Compiler) Build(s *problem.Spec) (*ir.Model, error) {
	cat, err := NewCatalog(s)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("stage complete", "stage", StageCatalog, "variables", len(cat.Variables))

	stages := []stage{
		{StageFactor, func() ([]ir.Constraint, error) { return FactorStage(s, cat), nil }},
		{StageEnvelope, func() ([]ir.Constraint, error) { return EnvelopeStage(s, cat), nil }},
		{StageObjective, func() ([]ir.Constraint, error) { return ObjectiveStage(c.objective, cat), nil }},
		{StageSelection, func() ([]ir.Constraint, error) { return SelectionStage(s, cat) }},
	}

	var constraints []ir.Constraint
	for _, st := range stages {
		cons, err := st.emit()
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", st.name, err)
		}
		c.logger.Debug("stage complete", "stage", st.name, "constraints", len(cons))
		constraints = append(constraints, cons...)
	}

	m := &ir.Model{
		Name:        c.name,
		N:           s.N,
		D:           s.D,
		K:           s.K,
		Mode:        s.Mode(),
		Ridge:       s.Ridge,
		Objective:   c.objective.Name(),
		Variables:   cat.Variables,
		Constraints: constraints,
		Layout:      cat.Layout,
	}
	if m.Mode == ir.ModeKnapsack {
		m.Weights = s.EffectiveWeights()
		m.Capacity = s.Capacity
	}
	return m, nil
}

// Compile builds the model for s and creates every variable, then every
// constraint, through the backend in catalog order.
//
// If any create fails, every entity created so far is released in reverse
// order and an *AssemblyError is returned; no model escapes.
func (c *Compiler) Compile(ctx context.Context, s *problem.Spec) (*ir.Model, error) {
	if c.backend == nil {
		return nil, errors.New("compile: no backend configured")
	}
	m, err := c.Build(s)
	if err != nil {
		return nil, err
	}

	created := make([]ir.Handle, 0, len(m.Variables)+len(m.Constraints))
	for i := range m.Variables {
		h, err := c.backend.CreateVariable(ctx, m.Variables[i])
		if err != nil {
			return nil, c.abort(ctx, StageVariables, m.Variables[i].Name, err, created)
		}
		m.Variables[i].Handle = h
		created = append(created, h)
	}
	for i := range m.Constraints {
		con := m.Constraints[i]
		h, err := c.backend.CreateConstraint(ctx, con, operandHandles(m, con))
		if err != nil {
			return nil, c.abort(ctx, StageConstraints, con.Name, err, created)
		}
		m.Constraints[i].Handle = h
		created = append(created, h)
	}

	hash, err := ir.ModelHash(m)
	if err != nil {
		return nil, c.abort(ctx, StageConstraints, "hash", err, created)
	}
	c.logger.Info("model compiled",
		"name", m.Name,
		"n", m.N,
		"d", m.D,
		"mode", m.Mode,
		"objective", m.Objective,
		"variables", len(m.Variables),
		"constraints", len(m.Constraints),
		"hash", hash,
	)
	return m, nil
}

func (c *Compiler) abort(ctx context.Context, stage, entity string, cause error, created []ir.Handle) error {
	rbErr := releaseAll(ctx, c.backend, created)
	c.logger.Warn("assembly rolled back",
		"stage", stage,
		"entity", entity,
		"released", len(created),
		"error", cause,
	)
	return &AssemblyError{Stage: stage, Entity: entity, Err: cause, Rollback: rbErr}
}

// releaseAll releases handles in reverse order. Release continues past
// failures and runs even if ctx is already cancelled.
func releaseAll(ctx context.Context, b backend.Backend, handles []ir.Handle) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		if err := b.Release(ctx, handles[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func operandHandles(m *ir.Model, c ir.Constraint) []ir.Handle {
	ops := c.Operands()
	out := make([]ir.Handle, len(ops))
	for k, v := range ops {
		out[k] = m.Variables[v].Handle
	}
	return out
}
