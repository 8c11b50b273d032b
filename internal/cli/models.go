package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/store"
)

// ModelsOptions holds flags for the models command.
type ModelsOptions struct {
	*RootOptions
	DB    string // model store
	Hash  string // only list models with this structure hash
	Check bool   // reload every model and re-run structural validation
}

// ModelEntry is one listed model.
type ModelEntry struct {
	store.ModelSummary
	HashOK *bool                      `json:"hash_ok,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// ModelsResult is the output of the models command.
type ModelsResult struct {
	Models []ModelEntry `json:"models"`
	Total  int          `json:"total"`
	Failed int          `json:"failed,omitempty"`
}

// NewModelsCommand creates the models command.
func NewModelsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModelsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "models --db <store>",
		Short: "List models persisted in a store",
		Long: `List the models persisted in a model store by compile --db.

With --check every model is read back, its structure hash recomputed
and compared with the stored one, and the structural checks of validate
are run on it.

Exit codes:
  0 - Listing succeeded (and every checked model is intact)
  1 - A checked model failed its hash or structural check
  2 - Command error (missing store)

Examples:
  dopt models --db models.sqlite
  dopt models --db models.sqlite --hash 3f2a...
  dopt models --db models.sqlite --check --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "model store (required)")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "only list models with this structure hash")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "reload and validate every listed model")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runModels(opts *ModelsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Opening a missing path would create an empty store.
	if _, err := os.Stat(opts.DB); err != nil {
		return formatter.Fail(ExitCommandError, fmt.Errorf("database not found: %s: %w", opts.DB, os.ErrNotExist))
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var summaries []store.ModelSummary
	if opts.Hash != "" {
		summaries, err = st.FindByHash(ctx, opts.Hash)
	} else {
		summaries, err = st.ListModels(ctx)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore, err)
	}

	result := ModelsResult{Models: make([]ModelEntry, 0, len(summaries)), Total: len(summaries)}
	for _, s := range summaries {
		entry := ModelEntry{ModelSummary: s}
		if opts.Check {
			if err := checkModel(ctx, st, &entry); err != nil {
				_ = formatter.Error(ErrCodeStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, ErrCodeStore, err)
			}
			if !*entry.HashOK || len(entry.Errors) > 0 {
				result.Failed++
			}
			formatter.VerboseLog("Checked %s: hash_ok=%t errors=%d", s.ID, *entry.HashOK, len(entry.Errors))
		}
		result.Models = append(result.Models, entry)
	}

	return outputModels(formatter, result, opts.Check)
}

// checkModel reloads a stored model and records its hash and structural
// check results on entry.
func checkModel(ctx context.Context, st *store.Store, entry *ModelEntry) error {
	m, err := st.LoadModel(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("loading model %s: %w", entry.ID, err)
	}
	hash, err := ir.ModelHash(m)
	if err != nil {
		return fmt.Errorf("hashing model %s: %w", entry.ID, err)
	}
	ok := hash == entry.Hash
	entry.HashOK = &ok
	entry.Errors = compiler.Validate(m)
	return nil
}

func outputModels(formatter *OutputFormatter, result ModelsResult, checked bool) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Total == 0 {
		fmt.Fprintln(formatter.Writer, "No models found.")
	} else {
		tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
		header := "SEQ\tID\tNAME\tN\tD\tK\tMODE\tOBJECTIVE\tVARS\tCONS\tHASH"
		if checked {
			header += "\tCHECK"
		}
		fmt.Fprintln(tw, header)
		for _, e := range result.Models {
			row := fmt.Sprintf("%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%d\t%d\t%s",
				e.Seq, e.ID, e.Name, e.N, e.D, e.K, e.Mode, e.Objective, e.Variables, e.Constraints, shortHash(e.Hash))
			if checked {
				row += "\t" + checkStatus(e)
			}
			fmt.Fprintln(tw, row)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "\n%d model(s)\n", result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d model(s) failed the check", result.Failed))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func checkStatus(e ModelEntry) string {
	switch {
	case e.HashOK != nil && !*e.HashOK:
		return "✗ hash mismatch"
	case len(e.Errors) > 0:
		return fmt.Sprintf("✗ %d error(s)", len(e.Errors))
	default:
		return "✓"
	}
}
