// Package config loads dopt configuration files.
//
// Files are CUE. They are unified with the embedded #Config schema, so
// defaults, enumerations and ranges are enforced by CUE itself; the decoded
// Options are then checked again with validator struct tags, which also
// covers Options built in code.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/go-playground/validator/v10"

	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

//go:embed schema.cue
var schemaSource string

// DefaultTolerance mirrors the schema default.
const DefaultTolerance = 1e-9

// optionsValidate is the validator instance for Options.
// Initialized in init() with custom validators.
var optionsValidate *validator.Validate

func init() {
	optionsValidate = validator.New()
	if err := optionsValidate.RegisterValidation("finite", validateFinite); err != nil {
		panic(fmt.Sprintf("config: register finite validator: %v", err))
	}
}

// validateFinite rejects NaN and infinite floats.
func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Knapsack overrides the knapsack-mode selection data of an instance.
type Knapsack struct {
	Capacity float64   `json:"capacity" validate:"finite,gte=0"`
	Weights  []float64 `json:"weights,omitempty" validate:"omitempty,dive,finite,gte=0"`
}

// Options is the decoded configuration.
type Options struct {
	Name      string    `json:"name,omitempty" validate:"max=128"`
	Objective string    `json:"objective" validate:"oneof=product logsum"`
	Tolerance float64   `json:"tolerance" validate:"gt=0,lt=1"`
	Knapsack  *Knapsack `json:"knapsack,omitempty"`
}

// Default returns the options used when no configuration file is given.
func Default() Options {
	return Options{Objective: compiler.ObjectiveProduct, Tolerance: DefaultTolerance}
}

// Validate checks the struct tags of o.
func (o Options) Validate() error {
	if err := optionsValidate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return &Error{Message: strings.Join(msgs, "; ")}
		}
		return err
	}
	return nil
}

// Error reports an invalid configuration, with the CUE position when known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: config: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return "config: " + e.Message
}

// Load reads and decodes the configuration file at path.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes CUE source. filename is used in error positions.
func Parse(src []byte, filename string) (Options, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Options{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Options{}, formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(); err != nil {
		return Options{}, formatCUEError(err)
	}

	var opts Options
	if err := unified.Decode(&opts); err != nil {
		return Options{}, formatCUEError(err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	out := &Error{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}

// Apply copies the knapsack overrides into s and revalidates it. The
// knapsack section is ignored for exact-mode instances.
func (o Options) Apply(s *problem.Spec) error {
	if o.Knapsack != nil && s.Mode() == ir.ModeKnapsack {
		s.Capacity = o.Knapsack.Capacity
		if o.Knapsack.Weights != nil {
			s.Weights = append([]float64(nil), o.Knapsack.Weights...)
		}
	}
	return s.Validate()
}

// CompilerOptions translates o into compiler options.
func (o Options) CompilerOptions() ([]compiler.Option, error) {
	strategy, err := compiler.StrategyByName(o.Objective)
	if err != nil {
		return nil, err
	}
	return []compiler.Option{compiler.WithObjective(strategy), compiler.WithName(o.Name)}, nil
}
