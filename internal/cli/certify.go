package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lidingxu/D-optimal-design/internal/backend"
	"github.com/lidingxu/D-optimal-design/internal/certify"
	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// CertifyOptions holds flags for the certify command.
type CertifyOptions struct {
	*RootOptions
	Config    string
	Select    []int   // 1-based point indices
	Tolerance float64 // overrides the configured tolerance when > 0
}

// CertifyResult is the outcome of certifying a selection. Violations are
// rendered as text since their bounds may be infinite.
type CertifyResult struct {
	Model      string   `json:"model"`
	Hash       string   `json:"hash"`
	Selected   []int    `json:"selected"`
	Criterion  float64  `json:"criterion"`
	Objective  float64  `json:"objective"`
	Feasible   bool     `json:"feasible"`
	Violations []string `json:"violations,omitempty"`
}

func newCertifyResult(model, hash string, rep *certify.Report) CertifyResult {
	r := CertifyResult{
		Model:     model,
		Hash:      hash,
		Selected:  rep.Selected,
		Criterion: rep.Criterion,
		Objective: rep.Objective,
		Feasible:  rep.Feasible(),
	}
	for _, v := range rep.Violations {
		r.Violations = append(r.Violations, v.String())
	}
	return r
}

// NewCertifyCommand creates the certify command.
func NewCertifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CertifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "certify <instance> --select i,j,...",
		Short: "Check the warm start of a selection against the model",
		Long: `Compile an instance, build the warm-start point of a selection of
candidate points and check it against every bound and constraint.

The warm start factors the regularized information matrix of the
selection; it is feasible whenever the selection satisfies the
cardinality (or knapsack) constraint. The command prints the exact
log-determinant criterion, the model objective at the warm start and
every violated requirement.

Exit codes:
  0 - Warm start feasible
  1 - Warm start violates the model
  2 - Command error (missing file, invalid instance or selection)

Examples:
  dopt certify instance.txt --select 1,3
  dopt certify instance.txt --select 2,4,5 --tolerance 1e-6 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCertify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "configuration file (.cue)")
	cmd.Flags().IntSliceVar(&opts.Select, "select", nil, "1-based indices of the selected points")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0, "relative feasibility tolerance (default from config)")
	_ = cmd.MarkFlagRequired("select")

	return cmd
}

func runCertify(opts *CertifyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	inst, err := loadInstance(formatter, path, opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	copts, err := inst.compilerOptions(formatter)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	sel, err := certify.SelectionFromIndices(inst.Spec.N, opts.Select)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	mem := backend.NewMemory()
	m, err := compiler.New(mem, copts...).Compile(ctx, inst.Spec)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer backend.ReleaseModel(ctx, mem, m)

	tol := inst.Options.Tolerance
	if opts.Tolerance > 0 {
		tol = opts.Tolerance
	}
	formatter.VerboseLog("Certifying selection %v with tolerance %g", opts.Select, tol)

	rep, err := certify.Certify(inst.Spec, m, sel, tol)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	hash, err := ir.ModelHash(m)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	return outputCertifyResult(formatter, newCertifyResult(m.Name, hash, rep))
}

func outputCertifyResult(formatter *OutputFormatter, result CertifyResult) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Feasible {
			fmt.Fprintf(w, "✓ Warm start feasible for %s\n\n", result.Model)
		} else {
			fmt.Fprintf(w, "✗ Warm start infeasible for %s\n\n", result.Model)
		}
		fmt.Fprintf(w, "  selected:  %v\n", result.Selected)
		fmt.Fprintf(w, "  criterion: %s\n", ir.FormatNumber(result.Criterion))
		fmt.Fprintf(w, "  objective: %s\n", ir.FormatNumber(result.Objective))
		if len(result.Violations) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Violations:")
			for _, v := range result.Violations {
				fmt.Fprintf(w, "  %s\n", v)
			}
		}
	}

	if !result.Feasible {
		return NewExitError(ExitFailure, fmt.Sprintf("%d violation(s)", len(result.Violations)))
	}
	return nil
}
