package cli

import (
	"fmt"
	"os"

	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/config"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// loadedInstance is an instance file with its configuration applied.
type loadedInstance struct {
	Spec    *problem.Spec
	Options config.Options
}

// loadInstance reads the instance at path and applies the configuration
// file at configPath, or the defaults when configPath is empty. Missing
// files yield errors matching os.ErrNotExist.
func loadInstance(f *OutputFormatter, path, configPath string) (*loadedInstance, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("instance not found: %s: %w", path, os.ErrNotExist)
	}

	opts := config.Default()
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config not found: %s: %w", configPath, os.ErrNotExist)
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		opts = loaded
		f.VerboseLog("Loaded config %s (objective %s)", configPath, opts.Objective)
	}

	spec, err := problem.LoadInstance(path)
	if err != nil {
		return nil, err
	}
	if err := opts.Apply(spec); err != nil {
		return nil, err
	}
	f.VerboseLog("Loaded instance %s: n=%d d=%d k=%d", path, spec.N, spec.D, spec.K)

	return &loadedInstance{Spec: spec, Options: opts}, nil
}

// compilerOptions returns the configured compiler options plus the CLI
// logger.
func (li *loadedInstance) compilerOptions(f *OutputFormatter) ([]compiler.Option, error) {
	opts, err := li.Options.CompilerOptions()
	if err != nil {
		return nil, err
	}
	return append(opts, compiler.WithLogger(f.Logger())), nil
}
