package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Config string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Variables   int                        `json:"variables,omitempty"`
	Constraints int                        `json:"constraints,omitempty"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <instance>",
		Short: "Validate an instance and the structure of its model",
		Long: `Validate a D-optimal design instance without creating any entities.

Checks the instance invariants (dimensions, cardinality, ridge), builds
the model in memory and runs the structural checks on it: family sizes,
unique names, operand ranges, bounds and the selection constraint.

Exit codes:
  0 - Instance and model are valid
  1 - Validation errors found
  2 - Command error (missing file, unreadable instance)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "configuration file (.cue)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Invariant violations are validation failures; unreadable input is a
	// command error.
	inst, err := loadInstance(formatter, path, opts.Config)
	if err != nil {
		if problem.ErrorCodeOf(err) == "" {
			return formatter.Fail(ExitCommandError, err)
		}
		return outputValidationResult(formatter, ValidationResult{
			Errors: []compiler.ValidationError{specValidationError(err)},
		})
	}
	copts, err := inst.compilerOptions(formatter)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	m, err := compiler.New(nil, copts...).Build(inst.Spec)
	if err != nil {
		return outputValidationResult(formatter, ValidationResult{
			Errors: []compiler.ValidationError{specValidationError(err)},
		})
	}

	formatter.VerboseLog("Built model %s: %d variables, %d constraints", m.Name, len(m.Variables), len(m.Constraints))

	return outputValidationResult(formatter, ValidationResult{
		Valid:       true,
		Variables:   len(m.Variables),
		Constraints: len(m.Constraints),
		Errors:      compiler.Validate(m),
	})
}

// specValidationError turns a problem error into a validation error.
func specValidationError(err error) compiler.ValidationError {
	ve := compiler.ValidationError{Field: "instance", Message: err.Error(), Code: errorCode(err)}
	var se *problem.SpecError
	if errors.As(err, &se) {
		ve.Field = se.Field
		ve.Message = se.Message
	}
	return ve
}

// outputValidationResult prints the result and maps it to an exit error.
func outputValidationResult(formatter *OutputFormatter, result ValidationResult) error {
	if len(result.Errors) > 0 {
		result.Valid = false
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    result.Errors[0].Code,
				Message: fmt.Sprintf("%d validation error(s)", len(result.Errors)),
			}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ Instance valid (%d variables, %d constraints)\n", result.Variables, result.Constraints)
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
