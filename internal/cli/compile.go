package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lidingxu/D-optimal-design/internal/backend"
	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/store"
)

// Emit modes of the compile command.
const (
	EmitSummary = "summary"
	EmitText    = "text"
	EmitJSON    = "json"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Config string // configuration file (.cue)
	DB     string // model store to persist into
	Emit   string // summary | text | json
	Name   string // model name override
	Output string // output file path
}

// CompileSummary describes a compiled model.
type CompileSummary struct {
	Name        string           `json:"name"`
	ModelID     string           `json:"model_id,omitempty"`
	Hash        string           `json:"hash"`
	N           int              `json:"n"`
	D           int              `json:"d"`
	K           int              `json:"k"`
	Mode        ir.SelectionMode `json:"mode"`
	Objective   string           `json:"objective"`
	Variables   int              `json:"variables"`
	Constraints int              `json:"constraints"`
	Cuts        int              `json:"cuts"`
	Output      string           `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <instance>",
		Short: "Compile an instance into a MISOCP model",
		Long: `Compile a D-optimal design instance into a mixed-integer second-order
cone model.

The instance file holds "n d k eps_raw" followed by the n·d point
coordinates. With --db the model is compiled inside a store session and
persisted; otherwise it is compiled against an in-memory backend.

Exit codes:
  0 - Model compiled
  2 - Command error (missing file, invalid instance or configuration)

Examples:
  dopt compile instance.txt
  dopt compile instance.txt --config dopt.cue --db models.sqlite
  dopt compile instance.txt --emit text -o model.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "configuration file (.cue)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "persist the model into this store")
	cmd.Flags().StringVar(&opts.Emit, "emit", EmitSummary, "what to emit (summary|text|json)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "model name (overrides the configuration)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	switch opts.Emit {
	case EmitSummary, EmitText, EmitJSON:
	default:
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("invalid emit mode %q", opts.Emit), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid emit mode %q", opts.Emit))
	}

	inst, err := loadInstance(formatter, path, opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	copts, err := inst.compilerOptions(formatter)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	if opts.Name != "" {
		copts = append(copts, compiler.WithName(opts.Name))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		m       *ir.Model
		modelID string
	)
	if opts.DB != "" {
		m, modelID, err = compileIntoStore(ctx, opts.DB, copts, inst)
	} else {
		m, err = compiler.New(backend.NewMemory(), copts...).Compile(ctx, inst.Spec)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	hash, err := ir.ModelHash(m)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	summary := summarize(m, hash, modelID)
	formatter.VerboseLog("Compiled %s: %d variables, %d constraints", m.Name, summary.Variables, summary.Constraints)

	if opts.Emit != EmitSummary {
		body, err := emitModel(m, opts.Emit)
		if err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
		if opts.Output == "" {
			_, err := cmd.OutOrStdout().Write(body)
			return err
		}
		if err := os.WriteFile(opts.Output, body, 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		summary.Output = opts.Output
	} else if opts.Output != "" {
		if err := writeSummary(opts.Output, summary); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		summary.Output = opts.Output
	}

	return outputCompileSuccess(formatter, summary)
}

// compileIntoStore compiles through a store session and commits the
// model. The session is rolled back if compilation or commit fails.
func compileIntoStore(ctx context.Context, dbPath string, copts []compiler.Option, inst *loadedInstance) (*ir.Model, string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, "", err
	}
	defer st.Close()

	sess, err := st.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	m, err := compiler.New(sess, copts...).Compile(ctx, inst.Spec)
	if err != nil {
		_ = sess.Rollback()
		return nil, "", err
	}
	if err := sess.Commit(ctx, m); err != nil {
		_ = sess.Rollback()
		return nil, "", err
	}
	return m, sess.ID(), nil
}

func summarize(m *ir.Model, hash, modelID string) CompileSummary {
	s := CompileSummary{
		Name:        m.Name,
		ModelID:     modelID,
		Hash:        hash,
		N:           m.N,
		D:           m.D,
		K:           m.K,
		Mode:        m.Mode,
		Objective:   m.Objective,
		Variables:   len(m.Variables),
		Constraints: len(m.Constraints),
	}
	for _, c := range m.Constraints {
		if c.Flags.Removable {
			s.Cuts++
		}
	}
	return s
}

// emitModel renders the model as text or canonical JSON.
func emitModel(m *ir.Model, emit string) ([]byte, error) {
	if emit == EmitText {
		return []byte(ir.RenderString(m)), nil
	}
	data, err := ir.MarshalCanonical(m.CanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("marshaling model: %w", err)
	}
	return append(data, '\n'), nil
}

func writeSummary(path string, s CompileSummary) error {
	return os.WriteFile(path, []byte(summaryText(s)), 0644)
}

func summaryText(s CompileSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Compiled model %s\n\n", s.Name)
	fmt.Fprintf(&b, "  instance:    n=%d d=%d k=%d mode=%s\n", s.N, s.D, s.K, s.Mode)
	fmt.Fprintf(&b, "  objective:   %s\n", s.Objective)
	fmt.Fprintf(&b, "  variables:   %d\n", s.Variables)
	fmt.Fprintf(&b, "  constraints: %d (%d cuts)\n", s.Constraints, s.Cuts)
	fmt.Fprintf(&b, "  hash:        %s\n", s.Hash)
	if s.ModelID != "" {
		fmt.Fprintf(&b, "  stored as:   %s\n", s.ModelID)
	}
	return b.String()
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, s CompileSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(s)
	}

	fmt.Fprint(formatter.Writer, summaryText(s))
	if s.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote %s\n", s.Output)
	}
	return nil
}
