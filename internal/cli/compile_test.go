package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/store"
)

type compileResponse struct {
	Status string         `json:"status"`
	Data   CompileSummary `json:"data"`
	Error  *CLIError      `json:"error"`
}

func TestCompileSummary(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled model dopt")
	assert.Contains(t, out, "n=3 d=2 k=2 mode=exact")
	assert.Contains(t, out, "variables:   30")
	assert.Contains(t, out, "constraints: 40 (20 cuts)")
	assert.NotContains(t, out, "stored as")
}

func TestCompileSummaryJSON(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), instance)
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.N)
	assert.Equal(t, 2, resp.Data.D)
	assert.Equal(t, ir.ModeExact, resp.Data.Mode)
	assert.Equal(t, "product", resp.Data.Objective)
	assert.Equal(t, 30, resp.Data.Variables)
	assert.Equal(t, 40, resp.Data.Constraints)
	assert.Equal(t, 20, resp.Data.Cuts)
	assert.Len(t, resp.Data.Hash, 64)
}

func TestCompileEmitText(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "--emit", "text", "--name", "three")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "model three\n"), out)
	assert.Contains(t, out, "mode=exact k=2")
	assert.Contains(t, out, "cardinality")
}

func TestCompileEmitJSONToFile(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)
	output := filepath.Join(t.TempDir(), "model.json")

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "--emit", "json", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var model map[string]any
	require.NoError(t, json.Unmarshal(data, &model))
	assert.Equal(t, "exact", model["mode"])
	assert.Len(t, model["variables"], 30)
	assert.Len(t, model["constraints"], 40)
}

func TestCompileEmitIsDeterministic(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)

	first, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "--emit", "json")
	require.NoError(t, err)
	second, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "--emit", "json")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompileSummaryToFile(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)
	output := filepath.Join(t.TempDir(), "summary.txt")

	_, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "✓ Compiled model dopt")
}

func TestCompileIntoStore(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)
	db := filepath.Join(t.TempDir(), "models.sqlite")

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), instance, "--db", db, "--name", "stored")
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.ModelID)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	m, err := st.LoadModel(t.Context(), resp.Data.ModelID)
	require.NoError(t, err)
	assert.Equal(t, "stored", m.Name)

	hash, err := ir.ModelHash(m)
	require.NoError(t, err)
	assert.Equal(t, resp.Data.Hash, hash)
}

func TestCompileWithConfig(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePointsKnapsack)
	cfg := writeFile(t, "dopt.cue", `
name:      "weighted"
objective: "logsum"
knapsack: {
	capacity: 2
	weights: [2, 1, 1]
}
`)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "--config", cfg, "--emit", "text")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "model weighted\n"), out)
	assert.Contains(t, out, "mode=knapsack")
	assert.Contains(t, out, "capacity=2")
	assert.Contains(t, out, "objective=logsum")
}

func TestCompileNonExistentInstance(t *testing.T) {
	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Contains(t, out, "instance not found")
}

func TestCompileInvalidInstance(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"cardinality", "2 1 3 0.01\n1\n2\n", "INVALID_CARDINALITY"},
		{"regularization", "1 1 1 0\n5\n", "INVALID_REGULARIZATION"},
		{"dimension", "1 0 1 0.01\n", "INVALID_DIMENSION"},
		{"truncated", "2 2 1 0.01\n1 2 3\n", "INVALID_INSTANCE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance := writeFile(t, "instance.txt", tt.content)

			out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), instance)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompileInvalidConfig(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)
	cfg := writeFile(t, "dopt.cue", `objective: "trace"`)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
}

func TestCompileInvalidEmit(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)

	_, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), instance, "--emit", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid emit mode")
}

func TestCompileVerboseOutput(t *testing.T) {
	instance := writeFile(t, "instance.txt", threePoints)

	out, errOut, err := execute(NewCompileCommand(&RootOptions{Format: "json", Verbose: true}), instance)
	require.NoError(t, err)

	// Diagnostics stay off stdout so the JSON remains parseable.
	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, errOut, "Loaded instance")
	assert.Contains(t, errOut, "Compiled dopt")
}
