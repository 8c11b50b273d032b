package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// RunWithGolden executes a scenario and compares the rendered model against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be executed or does not pass.
// Test failure (via goldie) occurs if the rendering doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed: %v", scenario.Name, result.Errors)
	}
	if result.Model == nil {
		return fmt.Errorf("scenario %s produced no model", scenario.Name)
	}

	return AssertGolden(t, scenario.Name, result.Model)
}

// AssertGolden compares the rendering of m against a golden file without
// running a scenario.
func AssertGolden(t *testing.T, name string, m *ir.Model) error {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(ir.RenderString(m)))

	return nil
}
