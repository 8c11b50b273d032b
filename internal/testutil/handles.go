package testutil

import (
	"fmt"
	"sync"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// FixedHandleGenerator generates the same handle every time.
//
// Backends must reject the second entity that receives it, which makes
// this generator useful for exercising duplicate-handle failures.
//
// Thread-safety: FixedHandleGenerator is stateless and safe for concurrent use.
type FixedHandleGenerator struct {
	handle string
}

// NewFixedHandleGenerator creates a generator that always returns handle.
// If handle is empty, Generate() returns "fixed-handle".
func NewFixedHandleGenerator(handle string) *FixedHandleGenerator {
	if handle == "" {
		handle = "fixed-handle"
	}
	return &FixedHandleGenerator{handle: handle}
}

// Generate returns the fixed handle.
//
// Implements backend.HandleGenerator interface.
func (g *FixedHandleGenerator) Generate() string {
	return g.handle
}

// HandleRecorder mints "<prefix>-<seq>" handles and remembers, in order, the
// names they were minted for.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type HandleRecorder struct {
	mu     sync.Mutex
	prefix string
	names  []string
}

// NewHandleRecorder creates a recorder whose first handle is "<prefix>-1".
func NewHandleRecorder(prefix string) *HandleRecorder {
	return &HandleRecorder{prefix: prefix}
}

// Next records name and returns a fresh handle.
func (r *HandleRecorder) Next(name string) ir.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return ir.Handle(fmt.Sprintf("%s-%d", r.prefix, len(r.names)))
}

// Names returns the recorded names in call order.
func (r *HandleRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// Reset forgets every recorded name; the next handle is "<prefix>-1" again.
func (r *HandleRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = nil
}
