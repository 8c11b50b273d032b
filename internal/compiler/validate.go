package compiler

import (
	"fmt"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// Model validation error codes (E100-E199)
const (
	ErrFamilyCount       = "E100" // variable family has the wrong size
	ErrDuplicateName     = "E101" // variable or constraint name used twice
	ErrOperandRange      = "E102" // constraint references a missing variable
	ErrStructuralZero    = "E103" // J_{p,q} above the diagonal not fixed at 0
	ErrDiagonalSign      = "E104" // J_{p,p} lower bound is not 0
	ErrSelectorDomain    = "E105" // b_i is not binary in [0,1]
	ErrSelectionCount    = "E106" // not exactly one selection constraint
	ErrObjectiveCoef     = "E107" // objective coefficient outside y
	ErrInvertedBounds    = "E108" // lower bound above upper bound
	ErrMissingConstraint = "E109" // required constraint absent
)

// ValidationError describes one structural defect of a model.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a model against the structure every compiled model has.
// Models built by this package always pass; the check exists for models
// that come back from storage or another process.
// Returns all errors found (does not fail-fast).
func Validate(m *ir.Model) []ValidationError {
	var errs []ValidationError
	n, d := m.N, m.D

	// E100: family sizes
	want := map[ir.Role]int{
		ir.RoleSelector:       n,
		ir.RoleFactor:         n * d,
		ir.RoleEpigraph:       n * d,
		ir.RoleRidgeEpigraph:  d,
		ir.RoleCertificate:    d * d,
		ir.RoleResidual:       d * d,
		ir.RoleResidualSquare: d * d,
		ir.RoleObjective:      1,
	}
	for _, role := range ir.ValidRoles {
		if got := m.CountRole(role); got != want[role] {
			errs = append(errs, ValidationError{
				Field:   "variables",
				Message: fmt.Sprintf("%d %s variables, want %d", got, role, want[role]),
				Code:    ErrFamilyCount,
			})
		}
	}

	names := make(map[string]bool)
	for i, v := range m.Variables {
		field := fmt.Sprintf("variables[%d]", i)

		// E101: duplicate variable name
		if names[v.Name] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate name %q", v.Name), Code: ErrDuplicateName})
		}
		names[v.Name] = true

		// E108: inverted bounds
		if v.Lower > v.Upper {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s has lower bound above upper bound", v.Name), Code: ErrInvertedBounds})
		}

		// E107: only y carries an objective coefficient
		if (v.Role == ir.RoleObjective) != (v.Obj != 0) {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s has objective coefficient %v", v.Name, v.Obj), Code: ErrObjectiveCoef})
		}

		switch v.Role {
		case ir.RoleSelector:
			// E105
			if v.Domain != ir.DomainBinary || v.Lower != 0 || v.Upper != 1 {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("selector %s must be binary in [0,1]", v.Name), Code: ErrSelectorDomain})
			}
		case ir.RoleCertificate:
			// E103 / E104
			if v.J > v.I && (v.Lower != 0 || v.Upper != 0) {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s must be fixed at 0", v.Name), Code: ErrStructuralZero})
			}
			if v.J == v.I && v.Lower != 0 {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s must have lower bound 0", v.Name), Code: ErrDiagonalSign})
			}
		}
	}

	consNames := make(map[string]bool)
	selections := 0
	for i, c := range m.Constraints {
		field := fmt.Sprintf("constraints[%d]", i)

		// E101: duplicate constraint name
		if consNames[c.Name] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate name %q", c.Name), Code: ErrDuplicateName})
		}
		consNames[c.Name] = true

		// E102: operands in range
		for _, v := range c.Operands() {
			if v < 0 || v >= len(m.Variables) {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s references variable %d of %d", c.Name, v, len(m.Variables)), Code: ErrOperandRange})
			}
		}

		// E108
		if c.Lower > c.Upper {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s has lower bound above upper bound", c.Name), Code: ErrInvertedBounds})
		}

		if c.Name == "cardinality" || c.Name == "knapsack" {
			selections++
		}
	}

	// E106: exactly one selection constraint, matching the mode
	wantSel := "cardinality"
	if m.Mode == ir.ModeKnapsack {
		wantSel = "knapsack"
	}
	if selections != 1 || !consNames[wantSel] {
		errs = append(errs, ValidationError{
			Field:   "constraints",
			Message: fmt.Sprintf("want exactly one %s constraint, found %d selection constraints", wantSel, selections),
			Code:    ErrSelectionCount,
		})
	}

	// E109: objective rows
	for _, name := range []string{"objective", "objective_amgm"} {
		if !consNames[name] {
			errs = append(errs, ValidationError{Field: "constraints", Message: fmt.Sprintf("missing %s constraint", name), Code: ErrMissingConstraint})
		}
	}

	return errs
}
