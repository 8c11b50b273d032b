package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// threePoints is the n=3 d=2 k=2 instance with points (1,0), (0,1), (1,1)
// and ε² = 0.01.
const threePoints = "3 2 2 0.01\n1 0\n0 1\n1 1\n"

// threePointsKnapsack is threePoints in knapsack mode.
const threePointsKnapsack = "3 2 -1 0.01\n1 0\n0 1\n1 1\n"

// writeFile writes content to name inside a fresh temp directory.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
