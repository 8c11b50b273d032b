package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// Scenario defines a conformance test scenario: one instance, the strategy
// to compile it with, and the assertions the compiled model must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the model name and
	// the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Instance is the problem to compile.
	Instance Instance `yaml:"instance"`

	// Objective selects the objective strategy ("product" when empty).
	Objective string `yaml:"objective,omitempty"`

	// ExpectError is the error code compilation must fail with, e.g.
	// INVALID_CARDINALITY. Assertions are not evaluated when it is set.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the compiled model.
	Assertions []Assertion `yaml:"assertions"`
}

// Instance is the inline form of a problem specification. Points are the
// candidate points (columns of the design matrix). Exactly one of Ridge
// (ε) and RidgeRaw (ε², square-rooted on load) must be given.
type Instance struct {
	Points   [][]float64 `yaml:"points"`
	K        int         `yaml:"k"`
	Ridge    *float64    `yaml:"ridge,omitempty"`
	RidgeRaw *float64    `yaml:"ridge_raw,omitempty"`
	Weights  []float64   `yaml:"weights,omitempty"`
	Capacity *float64    `yaml:"capacity,omitempty"`
}

// Spec builds the validated problem specification of the instance.
func (in Instance) Spec() (*problem.Spec, error) {
	var ridge float64
	switch {
	case in.Ridge != nil:
		ridge = *in.Ridge
	case in.RidgeRaw != nil:
		ridge = math.Sqrt(*in.RidgeRaw)
	}

	s, err := problem.FromPoints(in.Points, in.K, ridge)
	if err != nil {
		return nil, err
	}
	if in.Weights != nil {
		s.Weights = append([]float64(nil), in.Weights...)
	}
	if in.Capacity != nil {
		s.Capacity = *in.Capacity
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Assertion validates the compiled model.
type Assertion struct {
	// Type specifies the assertion type:
	// - "variable_count": number of variables with Role equals Count
	// - "constraint_count": number of constraints of Kind equals Count
	// - "bounds": named variable or constraint has bounds [Lower, Upper]
	// - "constraint_present": constraint Name exists
	// - "selection_mode": model selection mode equals Mode
	// - "warm_start": the warm start of Select is feasible
	// - "hash_stable": recompiling and cloning reproduce the hash
	Type string `yaml:"type"`

	// Role is the variable role (used by variable_count).
	Role string `yaml:"role,omitempty"`

	// Kind is the constraint kind (used by constraint_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of entities.
	Count int `yaml:"count,omitempty"`

	// Name is the entity name (used by bounds and constraint_present).
	Name string `yaml:"name,omitempty"`

	// Lower and Upper are the expected bounds; "+inf" and "-inf" are
	// accepted.
	Lower string `yaml:"lower,omitempty"`
	Upper string `yaml:"upper,omitempty"`

	// Mode is the expected selection mode (used by selection_mode).
	Mode string `yaml:"mode,omitempty"`

	// Select lists the 1-based indices of the selected points (used by
	// warm_start).
	Select []int `yaml:"select,omitempty"`
}

// Assertion type constants.
const (
	AssertVariableCount     = "variable_count"
	AssertConstraintCount   = "constraint_count"
	AssertBounds            = "bounds"
	AssertConstraintPresent = "constraint_present"
	AssertSelectionMode     = "selection_mode"
	AssertWarmStart         = "warm_start"
	AssertHashStable        = "hash_stable"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir in lexical
// order. A non-empty filter is a glob matched against the file name
// without its extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Instance.Ridge != nil && s.Instance.RidgeRaw != nil {
		return fmt.Errorf("instance: ridge and ridge_raw are mutually exclusive")
	}
	if s.Instance.Ridge == nil && s.Instance.RidgeRaw == nil {
		return fmt.Errorf("instance: one of ridge or ridge_raw is required")
	}

	if s.Objective != "" {
		if _, err := compiler.StrategyByName(s.Objective); err != nil {
			return err
		}
	}

	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertVariableCount:
		if !validRole(ir.Role(a.Role)) {
			return fmt.Errorf("assertions[%d]: unknown role %q for variable_count", index, a.Role)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for variable_count", index)
		}
	case AssertConstraintCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for constraint_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for constraint_count", index)
		}
	case AssertBounds:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for bounds", index)
		}
		if _, err := parseBound(a.Lower); err != nil {
			return fmt.Errorf("assertions[%d]: lower: %w", index, err)
		}
		if _, err := parseBound(a.Upper); err != nil {
			return fmt.Errorf("assertions[%d]: upper: %w", index, err)
		}
	case AssertConstraintPresent:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for constraint_present", index)
		}
	case AssertSelectionMode:
		if ir.SelectionMode(a.Mode) != ir.ModeExact && ir.SelectionMode(a.Mode) != ir.ModeKnapsack {
			return fmt.Errorf("assertions[%d]: mode must be exact or knapsack, got %q", index, a.Mode)
		}
	case AssertWarmStart:
		if len(a.Select) == 0 {
			return fmt.Errorf("assertions[%d]: select list is required for warm_start", index)
		}
	case AssertHashStable:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validRole(r ir.Role) bool {
	for _, v := range ir.ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}
