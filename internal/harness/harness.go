package harness

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sqlheur/internal/engine"
	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/store"
	"github.com/roach88/sqlheur/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against its own databases with a deterministic
// clock and id generator.
type Harness struct {
	db       *sql.DB      // scenario database, queried by the observer
	store    *store.Store // observation log
	acc      *engine.Accumulator
	observer *engine.Observer
	logger   *slog.Logger

	// steps maps observation ids to the step that produced them.
	steps map[string]int
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in fresh in-memory databases for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create the scenario database and the observation store
// 2. Execute setup statements
// 3. Execute steps, checking expect clauses
// 4. Read the trace back from the observation store
// 5. Evaluate assertions
//
// The returned error reports a harness failure (a setup statement failed,
// a database could not be opened). Scenario failures are reported in
// Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	db, err := store.OpenDB(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario database: %w", err)
	}
	defer db.Close()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	acc := engine.NewAccumulator()
	h := &Harness{
		db:    db,
		store: st,
		acc:   acc,
		observer: engine.NewObserver(db, acc,
			engine.WithRecorder(st),
			engine.WithClock(engine.NewClock()),
			engine.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		steps:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(ctx, scenario)
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger replaces the harness logger, which discards by default. Used by
// the CLI to surface step progress with --verbose.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)

	trace, err := h.readTrace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = trace
	result.ToMinimize = h.acc.Snapshot()

	actx := &AssertionContext{DB: h.db, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup runs all setup statements. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []string) error {
	for i, stmt := range setup {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		h.logger.Debug("setup statement executed", "step", i, "sql", stmt)
	}
	return nil
}

// executeSteps runs all steps, recording failed expectations in result.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	// Previous counted distance in the current epoch.
	var prev *float64

	for i, step := range steps {
		switch step.Kind() {
		case StepExec:
			if _, err := h.db.ExecContext(ctx, step.Exec); err != nil {
				result.AddError(fmt.Sprintf("steps[%d]: exec failed: %v", i, err))
				continue
			}
			h.logger.Debug("exec step executed", "step", i, "sql", step.Exec)

		case StepReset:
			epoch := h.acc.Reset()
			prev = nil
			h.logger.Debug("heuristics reset", "step", i, "epoch", epoch)

		case StepObserve:
			obs, err := h.observer.Observe(ctx, step.Observe, step.Args...)
			if obs == nil {
				result.AddError(fmt.Sprintf("steps[%d]: query was not observed (not a SELECT with a WHERE clause): %s", i, step.Observe))
				continue
			}
			h.steps[obs.ID] = i
			if err != nil && engine.IsRecordError(err) {
				result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			}

			for _, msg := range checkExpect(i, step.Expect, obs, prev) {
				result.AddError(msg)
			}
			if obs.Counted() {
				d := obs.Distance
				prev = &d
			}
			h.logger.Debug("observe step executed",
				"step", i,
				"outcome", obs.Outcome,
				"distance", obs.Distance)
		}
	}
}

// readTrace reads every recorded observation back, in seq order.
func (h *Harness) readTrace(ctx context.Context) ([]TraceEvent, error) {
	observations, err := h.store.ReadObservations(ctx)
	if err != nil {
		return nil, err
	}

	trace := make([]TraceEvent, 0, len(observations))
	for _, obs := range observations {
		trace = append(trace, traceEvent(h.steps[obs.ID], obs))
	}
	return trace, nil
}

func traceEvent(step int, obs ir.Observation) TraceEvent {
	return TraceEvent{
		Step:     step,
		Seq:      obs.Seq,
		Epoch:    obs.Epoch,
		SQL:      obs.SQL,
		Args:     obs.Args,
		Outcome:  obs.Outcome,
		Rows:     obs.Rows,
		Distance: obs.Distance,
		Error:    obs.Error,
	}
}
