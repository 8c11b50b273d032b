package backend

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// FaultFunc lets tests inject failures. It is called before every create
// with the operation ("variable" or "constraint") and the entity name; a
// non-nil return aborts that create.
type FaultFunc func(op, name string) error

type memEntry struct {
	op       string
	name     string
	operands []ir.Handle
}

// Memory is an in-process Backend that records what it owns.
// It is the default backend of the CLI and the harness.
//
// Thread-safety: Memory is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	gen      HandleGenerator
	fault    FaultFunc
	live     map[ir.Handle]memEntry
	refs     map[ir.Handle]int
	created  int
	released int
}

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithGenerator sets the handle generator (default UUIDv7Generator).
func WithGenerator(g HandleGenerator) MemoryOption {
	return func(m *Memory) { m.gen = g }
}

// WithFaults installs a fault injector.
func WithFaults(f FaultFunc) MemoryOption {
	return func(m *Memory) { m.fault = f }
}

// NewMemory creates an empty in-memory backend.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		gen:  UUIDv7Generator{},
		live: make(map[ir.Handle]memEntry),
		refs: make(map[ir.Handle]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// create registers one entity. Operand liveness is checked and the
// operands are pinned under the same lock as the insert, so a concurrent
// Release cannot drop an operand in between.
func (m *Memory) create(ctx context.Context, op, name string, operands []ir.Handle) (ir.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range operands {
		if e, ok := m.live[h]; !ok || e.op != "variable" {
			return "", fmt.Errorf("constraint %s: operand %q: %w", name, h, ErrUnknownHandle)
		}
	}
	if m.fault != nil {
		if err := m.fault(op, name); err != nil {
			return "", err
		}
	}
	h := ir.Handle(m.gen.Generate())
	if _, dup := m.live[h]; dup {
		return "", fmt.Errorf("backend: duplicate handle %q", h)
	}
	m.live[h] = memEntry{op: op, name: name, operands: slices.Clone(operands)}
	for _, o := range operands {
		m.refs[o]++
	}
	m.created++
	return h, nil
}

// CreateVariable implements Backend.
func (m *Memory) CreateVariable(ctx context.Context, v ir.Variable) (ir.Handle, error) {
	return m.create(ctx, "variable", v.Name, nil)
}

// CreateConstraint implements Backend. Every operand must be a live
// variable handle.
func (m *Memory) CreateConstraint(ctx context.Context, c ir.Constraint, operands []ir.Handle) (ir.Handle, error) {
	return m.create(ctx, "constraint", c.Name, operands)
}

// Release implements Backend. A variable can only be released once no
// live constraint references it.
func (m *Memory) Release(_ context.Context, h ir.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live[h]
	if !ok {
		return fmt.Errorf("release %q: %w", h, ErrUnknownHandle)
	}
	if n := m.refs[h]; n > 0 {
		return fmt.Errorf("release %s: %d constraint reference(s): %w", e.name, n, ErrInUse)
	}
	for _, o := range e.operands {
		if m.refs[o]--; m.refs[o] == 0 {
			delete(m.refs, o)
		}
	}
	delete(m.live, h)
	m.released++
	return nil
}

// Live returns the number of entities currently owned.
func (m *Memory) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Owns reports whether h is a live handle.
func (m *Memory) Owns(h ir.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[h]
	return ok
}

// Stats returns the total number of creates and releases so far.
func (m *Memory) Stats() (created, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, m.released
}

// ReleaseModel releases every entity of m, constraints first.
// Errors are collected; releasing continues past failures.
func ReleaseModel(ctx context.Context, b Backend, m *ir.Model) error {
	var errs []error
	for i := len(m.Constraints) - 1; i >= 0; i-- {
		if err := b.Release(ctx, m.Constraints[i].Handle); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(m.Variables) - 1; i >= 0; i-- {
		if err := b.Release(ctx, m.Variables[i].Handle); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}
