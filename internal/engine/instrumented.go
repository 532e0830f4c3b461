package engine

import (
	"context"
	"database/sql"
)

// InstrumentedDB wraps a *sql.DB so that every query is observed before it
// runs. Observation errors are logged by the Observer and never reach the
// caller; the wrapped query's own result and error are returned unchanged.
//
// Only the query methods are instrumented. Exec and the embedded methods
// pass straight through.
type InstrumentedDB struct {
	*sql.DB
	observer *Observer
}

// Instrument wraps db. Candidate queries run on db itself, so they are not
// observed again.
func Instrument(db *sql.DB, acc *Accumulator, opts ...ObserverOption) *InstrumentedDB {
	return &InstrumentedDB{
		DB:       db,
		observer: NewObserver(db, acc, opts...),
	}
}

// Observer returns the observer queries are reported to.
func (d *InstrumentedDB) Observer() *Observer {
	return d.observer
}

// QueryContext observes query and then executes it.
func (d *InstrumentedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	_, _ = d.observer.Observe(ctx, query, args...)
	return d.DB.QueryContext(ctx, query, args...)
}

// Query is QueryContext with a background context.
func (d *InstrumentedDB) Query(query string, args ...any) (*sql.Rows, error) {
	return d.QueryContext(context.Background(), query, args...)
}

// QueryRowContext observes query and then executes it.
func (d *InstrumentedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	_, _ = d.observer.Observe(ctx, query, args...)
	return d.DB.QueryRowContext(ctx, query, args...)
}

// QueryRow is QueryRowContext with a background context.
func (d *InstrumentedDB) QueryRow(query string, args ...any) *sql.Row {
	return d.QueryRowContext(context.Background(), query, args...)
}
