package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// marshalBound converts a bound to TEXT: "+inf", "-inf" or the shortest
// round-trip decimal.
func marshalBound(f float64) (string, error) {
	if math.IsNaN(f) {
		return "", fmt.Errorf("marshal bound: NaN")
	}
	return ir.FormatNumber(f), nil
}

// unmarshalBound parses TEXT written by marshalBound.
func unmarshalBound(s string) (float64, error) {
	switch s {
	case "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unmarshal bound %q: %w", s, err)
	}
	return f, nil
}

// marshalWeights converts knapsack weights to canonical JSON TEXT.
// Exact-mode models store "[]".
func marshalWeights(w []float64) (string, error) {
	if w == nil {
		w = []float64{}
	}
	data, err := ir.MarshalCanonical(w)
	if err != nil {
		return "", fmt.Errorf("marshal weights: %w", err)
	}
	return string(data), nil
}

func unmarshalWeights(data string) ([]float64, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var w []float64
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, fmt.Errorf("unmarshal weights: %w", err)
	}
	return w, nil
}

// marshalBody converts a constraint to canonical JSON TEXT.
func marshalBody(c ir.Constraint) (string, error) {
	data, err := ir.MarshalCanonical(c.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("marshal constraint %s: %w", c.Name, err)
	}
	return string(data), nil
}

// unmarshalBody parses a body written by marshalBody. Bounds and handle are
// stored in their own columns and must be filled in by the caller.
func unmarshalBody(data string) (ir.Constraint, error) {
	var c ir.Constraint
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return ir.Constraint{}, fmt.Errorf("unmarshal constraint: %w", err)
	}
	if len(c.Linear) == 0 {
		c.Linear = nil
	}
	return c, nil
}
