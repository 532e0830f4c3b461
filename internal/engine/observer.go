package engine

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/roach88/sqlheur/internal/heuristic"
	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/queryir"
	"github.com/roach88/sqlheur/internal/sqltext"
	"github.com/roach88/sqlheur/internal/store"
)

// Querier runs candidate queries. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Recorder persists observations. *store.Store satisfies it.
type Recorder interface {
	RecordObservation(ctx context.Context, obs ir.Observation) error
}

// Sink is notified of every observation, after it is recorded.
type Sink interface {
	Observed(obs ir.Observation)
}

var _ Recorder = (*store.Store)(nil)

// Observer scores intercepted queries and appends their distances to an
// Accumulator.
//
// Thread-safety: Observe may be called from any goroutine. Sinks and the
// Recorder must be safe for concurrent use.
type Observer struct {
	db       Querier
	acc      *Accumulator
	clock    *Clock
	ids      IDGenerator
	recorder Recorder
	sinks    []Sink
}

// ObserverOption allows configuration of an Observer.
type ObserverOption func(*Observer)

// WithRecorder records every observation, including failed ones.
func WithRecorder(r Recorder) ObserverOption {
	return func(o *Observer) {
		o.recorder = r
	}
}

// WithClock sets the clock observations are stamped from.
// Default: a new clock starting at 0.
func WithClock(c *Clock) ObserverOption {
	return func(o *Observer) {
		o.clock = c
	}
}

// WithIDGenerator sets the observation id generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) ObserverOption {
	return func(o *Observer) {
		o.ids = g
	}
}

// WithSink adds a sink notified of every observation.
func WithSink(s Sink) ObserverOption {
	return func(o *Observer) {
		o.sinks = append(o.sinks, s)
	}
}

// NewObserver creates an Observer that runs candidate queries against db
// and appends to acc.
func NewObserver(db Querier, acc *Accumulator, opts ...ObserverOption) *Observer {
	o := &Observer{
		db:    db,
		acc:   acc,
		clock: NewClock(),
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Accumulator returns the accumulator the observer appends to.
func (o *Observer) Accumulator() *Accumulator {
	return o.acc
}

// Observe scores sql, executed with args, and appends the distance.
//
// Statements that are not a SELECT with a filter are ignored and return
// (nil, nil). Otherwise the returned observation describes what happened:
//   - OutcomeScored: the filter was evaluated over the candidate rows
//   - OutcomeFallback: the filter could not be scored and
//     heuristic.FallbackDistance was appended
//   - OutcomeFailed: the candidate query failed; nothing was appended and
//     the error is an *ObservationError
//
// Errors are logged here; callers on the query path may ignore them.
func (o *Observer) Observe(ctx context.Context, query string, args ...any) (*ir.Observation, error) {
	stmt, err := sqltext.Parse(query)
	if err != nil || !stmt.HasFilter() {
		slog.Debug("query not observed", "sql", query)
		return nil, nil
	}

	epoch := o.acc.Epoch()
	obs := ir.Observation{
		SQL:   query,
		Args:  args,
		Epoch: epoch,
	}

	var obsErr error
	result, err := o.evaluate(ctx, query, args, &obs)
	if err != nil {
		obsErr = err
		obs.Outcome = ir.OutcomeFailed
		obs.Distance = heuristic.FallbackDistance
		obs.Error = err.Error()
		slog.Warn("candidate query failed",
			"sql", query,
			"candidate", obs.CandidateSQL,
			"error", err)
	} else {
		obs.Rows = result.Size()
		if !o.acc.AppendAt(epoch, obs.Distance) {
			slog.Debug("observation discarded by reset",
				"sql", query,
				"epoch", epoch,
				"distance", obs.Distance)
		}
	}

	obs.ID = o.ids.Generate()
	obs.Seq = o.clock.Next()

	if o.recorder != nil {
		if err := o.recorder.RecordObservation(ctx, obs); err != nil {
			slog.Error("record observation failed",
				"id", obs.ID,
				"sql", query,
				"error", err)
			if obsErr == nil {
				obsErr = &ObservationError{Code: ErrCodeRecordFailed, SQL: query, Err: err}
			}
		}
	}

	for _, s := range o.sinks {
		s.Observed(obs)
	}

	slog.Debug("query observed",
		"id", obs.ID,
		"seq", obs.Seq,
		"outcome", obs.Outcome,
		"distance", obs.Distance)

	return &obs, obsErr
}

// evaluate fills in the candidate query, distance and outcome of obs.
// It returns an error only when the candidate could not be executed; an
// unscorable query yields an empty result and OutcomeFallback.
func (o *Observer) evaluate(ctx context.Context, query string, args []any, obs *ir.Observation) (*ir.QueryResult, error) {
	c, err := queryir.Prepare(query, args...)
	if err != nil {
		o.fallback(obs, err)
		return ir.MustQueryResult(), nil
	}
	obs.CandidateSQL = c.SQL

	rows, err := o.db.QueryContext(ctx, c.SQL, c.Args...)
	if err != nil {
		return nil, &ObservationError{Code: ErrCodeCandidateFailed, SQL: query, CandidateSQL: c.SQL, Err: err}
	}
	result, err := store.ScanResult(rows)
	if err != nil {
		return nil, &ObservationError{Code: ErrCodeScanFailed, SQL: query, CandidateSQL: c.SQL, Err: err}
	}

	d, err := heuristic.EvaluatePredicate(c.Filter, result)
	if err != nil {
		o.fallback(obs, err)
		return result, nil
	}
	obs.Distance = d
	obs.Outcome = ir.OutcomeScored
	return result, nil
}

func (o *Observer) fallback(obs *ir.Observation, err error) {
	slog.Warn("sql heuristic fallback",
		"sql", obs.SQL,
		"error", err,
		"distance", heuristic.FallbackDistance)
	obs.Distance = heuristic.FallbackDistance
	obs.Outcome = ir.OutcomeFallback
	obs.Error = err.Error()
}
