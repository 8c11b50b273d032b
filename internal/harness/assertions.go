package harness

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lidingxu/D-optimal-design/internal/certify"
	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext carries what assertions are evaluated against.
type AssertionContext struct {
	Ctx   context.Context
	Spec  *problem.Spec
	Model *ir.Model
	Hash  string

	// Recompile builds the model again from Spec with the same options.
	Recompile func() (*ir.Model, error)
}

// EvaluateAssertions evaluates every assertion and returns the failure
// messages in assertion order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertVariableCount:
		return assertVariableCount(actx.Model, a)
	case AssertConstraintCount:
		return assertConstraintCount(actx.Model, a)
	case AssertBounds:
		return assertBounds(actx.Model, a)
	case AssertConstraintPresent:
		return assertConstraintPresent(actx.Model, a)
	case AssertSelectionMode:
		return assertSelectionMode(actx.Model, a)
	case AssertWarmStart:
		return assertWarmStart(actx, a)
	case AssertHashStable:
		return assertHashStable(actx)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertVariableCount checks the number of variables with the given role.
func assertVariableCount(m *ir.Model, a Assertion) error {
	got := m.CountRole(ir.Role(a.Role))
	if got != a.Count {
		return &AssertionError{
			Type:     AssertVariableCount,
			Expected: fmt.Sprintf("%d %s variables", a.Count, a.Role),
			Actual:   fmt.Sprintf("%d %s variables", got, a.Role),
		}
	}
	return nil
}

// assertConstraintCount checks the number of constraints of the given
// kind. The pseudo-kind "cut" counts removable constraints of any kind.
func assertConstraintCount(m *ir.Model, a Assertion) error {
	var got int
	if a.Kind == "cut" {
		for _, c := range m.Constraints {
			if c.Flags.Removable {
				got++
			}
		}
	} else {
		got = m.CountKind(ir.ConstraintKind(a.Kind))
	}

	if got != a.Count {
		return &AssertionError{
			Type:     AssertConstraintCount,
			Expected: fmt.Sprintf("%d %s constraints", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d %s constraints", got, a.Kind),
		}
	}
	return nil
}

// assertBounds checks the bounds of a named variable, or of a named
// constraint when no variable has that name.
func assertBounds(m *ir.Model, a Assertion) error {
	lower, err := parseBound(a.Lower)
	if err != nil {
		return err
	}
	upper, err := parseBound(a.Upper)
	if err != nil {
		return err
	}

	var gotLower, gotUpper float64
	if v, ok := m.Variable(a.Name); ok {
		gotLower, gotUpper = v.Lower, v.Upper
	} else if c, ok := m.Constraint(a.Name); ok {
		gotLower, gotUpper = c.Lower, c.Upper
	} else {
		return &AssertionError{
			Type:     AssertBounds,
			Expected: fmt.Sprintf("entity %s", a.Name),
			Actual:   "not found in model",
		}
	}

	if gotLower != lower || gotUpper != upper {
		return &AssertionError{
			Type:     AssertBounds,
			Expected: fmt.Sprintf("%s in [%s, %s]", a.Name, ir.FormatNumber(lower), ir.FormatNumber(upper)),
			Actual:   fmt.Sprintf("%s in [%s, %s]", a.Name, ir.FormatNumber(gotLower), ir.FormatNumber(gotUpper)),
		}
	}
	return nil
}

// assertConstraintPresent checks that a constraint with the name exists.
func assertConstraintPresent(m *ir.Model, a Assertion) error {
	if _, ok := m.Constraint(a.Name); !ok {
		return &AssertionError{
			Type:     AssertConstraintPresent,
			Expected: fmt.Sprintf("constraint %s", a.Name),
			Actual:   "not found in model",
		}
	}
	return nil
}

// assertSelectionMode checks the selection mode of the model.
func assertSelectionMode(m *ir.Model, a Assertion) error {
	if string(m.Mode) != a.Mode {
		return &AssertionError{
			Type:     AssertSelectionMode,
			Expected: a.Mode,
			Actual:   string(m.Mode),
		}
	}
	return nil
}

// assertWarmStart certifies the selection and requires the warm start to
// satisfy every bound and constraint of the model.
func assertWarmStart(actx *AssertionContext, a Assertion) error {
	sel, err := certify.SelectionFromIndices(actx.Spec.N, a.Select)
	if err != nil {
		return err
	}
	rep, err := certify.Certify(actx.Spec, actx.Model, sel, certify.DefaultTolerance)
	if err != nil {
		return err
	}
	if !rep.Feasible() {
		msgs := make([]string, len(rep.Violations))
		for i, v := range rep.Violations {
			msgs[i] = v.String()
		}
		return &AssertionError{
			Type:     AssertWarmStart,
			Expected: fmt.Sprintf("feasible warm start for %v", a.Select),
			Actual:   strings.Join(msgs, "; "),
		}
	}
	return nil
}

// assertHashStable recompiles the instance and clones the model with fresh
// handles; both must reproduce the model hash.
func assertHashStable(actx *AssertionContext) error {
	again, err := actx.Recompile()
	if err != nil {
		return fmt.Errorf("recompile: %w", err)
	}
	hash, err := ir.ModelHash(again)
	if err != nil {
		return err
	}
	if hash != actx.Hash {
		return &AssertionError{
			Type:     AssertHashStable,
			Expected: fmt.Sprintf("recompiled hash %s", actx.Hash),
			Actual:   hash,
		}
	}

	clone, err := compiler.Clone(actx.Ctx, actx.Model, func(_ context.Context, _ compiler.Entity) (ir.Handle, error) {
		return ir.Handle(uuid.NewString()), nil
	})
	if err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	hash, err = ir.ModelHash(clone)
	if err != nil {
		return err
	}
	if hash != actx.Hash {
		return &AssertionError{
			Type:     AssertHashStable,
			Expected: fmt.Sprintf("cloned hash %s", actx.Hash),
			Actual:   hash,
		}
	}
	return nil
}

// parseBound parses a bound written as a number, "+inf", "inf" or "-inf".
func parseBound(s string) (float64, error) {
	switch strings.TrimSpace(s) {
	case "":
		return 0, fmt.Errorf("bound is required")
	case "+inf", "inf", ".inf", "+.inf":
		return math.Inf(1), nil
	case "-inf", "-.inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bound %q", s)
	}
	return f, nil
}
