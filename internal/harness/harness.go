package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lidingxu/D-optimal-design/internal/compiler"
	"github.com/lidingxu/D-optimal-design/internal/ir"
	"github.com/lidingxu/D-optimal-design/internal/problem"
	"github.com/lidingxu/D-optimal-design/internal/store"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	store    *store.Store
	scenario *Scenario
	strategy compiler.ObjectiveStrategy
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Build the problem specification from the inline instance
// 2. Compile it through a store session and commit the model
// 3. Read the model back from the store
// 4. Evaluate assertions against the stored model
//
// The returned error reports harness failures (store setup, I/O); a
// scenario that fails its assertions or its expected error yields a
// non-passing Result and a nil error.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	name := scenario.Objective
	if name == "" {
		name = compiler.ObjectiveProduct
	}
	strategy, err := compiler.StrategyByName(name)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:    st,
		scenario: scenario,
		strategy: strategy,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult()

	spec, err := scenario.Instance.Spec()
	if err != nil {
		h.checkFailure(err, result)
		return result, nil
	}

	m, err := h.compile(ctx, spec)
	if err != nil {
		h.checkFailure(err, result)
		return result, nil
	}
	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error %s, compilation succeeded", scenario.ExpectError))
		return result, nil
	}

	hash, err := ir.ModelHash(m)
	if err != nil {
		return nil, fmt.Errorf("hash stored model: %w", err)
	}
	result.Model = m
	result.Hash = hash

	recompile := func() (*ir.Model, error) {
		return compiler.New(nil, h.options()...).Build(spec)
	}
	actx := &AssertionContext{
		Ctx:       ctx,
		Spec:      spec,
		Model:     m,
		Hash:      hash,
		Recompile: recompile,
	}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// RunFile loads the scenario at path and runs it.
func RunFile(path string) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(scenario)
	if err != nil {
		return scenario, nil, err
	}
	return scenario, result, nil
}

func (h *Harness) options() []compiler.Option {
	return []compiler.Option{
		compiler.WithName(h.scenario.Name),
		compiler.WithObjective(h.strategy),
		compiler.WithLogger(h.logger),
	}
}

// compile stages the model in a store session, commits it and reads it
// back. The session is rolled back when compilation fails.
func (h *Harness) compile(ctx context.Context, spec *problem.Spec) (*ir.Model, error) {
	sess, err := h.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}

	m, err := compiler.New(sess, h.options()...).Compile(ctx, spec)
	if err != nil {
		_ = sess.Rollback()
		return nil, err
	}
	if err := sess.Commit(ctx, m); err != nil {
		_ = sess.Rollback()
		return nil, err
	}

	stored, err := h.store.LoadModel(ctx, sess.ID())
	if err != nil {
		return nil, err
	}

	want, err := ir.ModelHash(m)
	if err != nil {
		return nil, err
	}
	got, err := ir.ModelHash(stored)
	if err != nil {
		return nil, err
	}
	if got != want {
		return nil, fmt.Errorf("stored model hash %s differs from compiled hash %s", got, want)
	}
	return stored, nil
}

// checkFailure records whether err is the failure the scenario expects.
func (h *Harness) checkFailure(err error, result *Result) {
	want := h.scenario.ExpectError
	if want == "" {
		result.AddError(fmt.Sprintf("compilation failed: %v", err))
		return
	}
	if got := problem.ErrorCodeOf(err); string(got) != want {
		result.AddError(fmt.Sprintf("expected error %s, got %v", want, err))
	}
}
