// Command dopt compiles D-optimal design instances into MISOCP models.
package main

import (
	"fmt"
	"os"

	"github.com/lidingxu/D-optimal-design/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
