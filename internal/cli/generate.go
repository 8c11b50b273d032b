package cli

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lidingxu/D-optimal-design/internal/generate"
	"github.com/lidingxu/D-optimal-design/internal/problem"
)

// GenerateOptions holds flags shared by the generate subcommands.
type GenerateOptions struct {
	*RootOptions
	Extra    int     // k = d + Extra
	Knapsack bool    // write k = -1 instead
	EpsRaw   float64 // raw ridge parameter
	Output   string  // output file path
}

// GenerateResult describes a generated instance.
type GenerateResult struct {
	Family string  `json:"family"`
	N      int     `json:"n"`
	D      int     `json:"d"`
	K      int     `json:"k"`
	EpsRaw float64 `json:"eps_raw"`
	Seed   *uint64 `json:"seed,omitempty"`
	Output string  `json:"output,omitempty"`
}

// NewGenerateCommand creates the generate command and its family
// subcommands.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic instances",
		Long: `Generate a synthetic D-optimal design instance in the format read by
compile, validate and certify.

The cardinality written into the header is d plus --extra, or -1 (knapsack
mode) with --knapsack. Without -o the instance is written to stdout.

Exit codes:
  0 - Instance generated
  2 - Command error (invalid parameters, unwritable output)

Examples:
  dopt generate normal --n 50 --d 20 --seed 3 -o normal_50_20.txt
  dopt generate block --treatments 10 --extra 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().IntVar(&opts.Extra, "extra", 0, "cardinality above the dimension (k = d + extra)")
	cmd.PersistentFlags().BoolVar(&opts.Knapsack, "knapsack", false, "write a knapsack-mode instance (k = -1)")
	cmd.PersistentFlags().Float64Var(&opts.EpsRaw, "eps", generate.DefaultEpsRaw, "raw ridge parameter eps_raw")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	cmd.AddCommand(newGenerateNormalCommand(opts))
	cmd.AddCommand(newGenerateBlockCommand(opts))

	return cmd
}

func newGenerateNormalCommand(opts *GenerateOptions) *cobra.Command {
	var n, d int
	var seed uint64

	cmd := &cobra.Command{
		Use:           "normal",
		Short:         "Gaussian candidate points with N(0, 1/n) coordinates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := generate.Normal(rand.NewPCG(seed, seed), n, d)
			result := GenerateResult{Family: generate.FamilyNormal, Seed: &seed}
			return runGenerate(opts, cmd, result, points, err)
		},
	}

	cmd.Flags().IntVar(&n, "n", 50, "number of candidate points")
	cmd.Flags().IntVar(&d, "d", 20, "dimension of each point")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")

	return cmd
}

func newGenerateBlockCommand(opts *GenerateOptions) *cobra.Command {
	var treatments int

	cmd := &cobra.Command{
		Use:           "block",
		Short:         "Pairwise block design on t treatments",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := generate.Block(treatments)
			return runGenerate(opts, cmd, GenerateResult{Family: generate.FamilyBlock}, points, err)
		},
	}

	cmd.Flags().IntVar(&treatments, "treatments", 10, "number of treatments t (n = t(t-1)/2, d = t-1)")

	return cmd
}

// runGenerate finishes a generate subcommand: builds the Spec of points,
// then writes it to stdout or to --output and reports the result.
func runGenerate(opts *GenerateOptions, cmd *cobra.Command, result GenerateResult, points [][]float64, genErr error) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if genErr != nil {
		return formatter.Fail(ExitCommandError, genErr)
	}

	k := -1
	if !opts.Knapsack {
		k = len(points[0]) + opts.Extra
	}
	s, err := generate.Instance(points, k, opts.EpsRaw)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	result.N, result.D, result.K, result.EpsRaw = s.N, s.D, s.K, opts.EpsRaw
	formatter.VerboseLog("Generated %s instance: n=%d d=%d k=%d", result.Family, s.N, s.D, s.K)

	var buf bytes.Buffer
	if err := problem.WriteInstance(&buf, s); err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
	}
	result.Output = opts.Output

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Generated %s instance\n\n", result.Family)
	fmt.Fprintf(formatter.Writer, "  instance: n=%d d=%d k=%d\n", result.N, result.D, result.K)
	fmt.Fprintf(formatter.Writer, "  eps_raw:  %s\n", strconv.FormatFloat(result.EpsRaw, 'g', -1, 64))
	if result.Seed != nil {
		fmt.Fprintf(formatter.Writer, "  seed:     %d\n", *result.Seed)
	}
	fmt.Fprintf(formatter.Writer, "\nWrote %s\n", result.Output)
	return nil
}
