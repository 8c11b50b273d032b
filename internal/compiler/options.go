package compiler

import (
	"io"
	"log/slog"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the structured logger (default discards).
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObjective selects the objective strategy (default ProductObjective).
func WithObjective(s ObjectiveStrategy) Option {
	return func(c *Compiler) {
		if s != nil {
			c.objective = s
		}
	}
}

// WithName sets the name recorded on compiled models (default "dopt").
func WithName(name string) Option {
	return func(c *Compiler) {
		if name != "" {
			c.name = name
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
