package harness

import "github.com/roach88/sqlheur/internal/ir"

// TraceEvent is one observation made while running a scenario.
type TraceEvent struct {
	Step     int        `json:"step"` // index into Scenario.Steps
	Seq      int64      `json:"seq"`
	Epoch    int64      `json:"epoch"`
	SQL      string     `json:"sql"`
	Args     []any      `json:"args,omitempty"`
	Outcome  ir.Outcome `json:"outcome"`
	Rows     int        `json:"rows"`
	Distance float64    `json:"distance"`
	Error    string     `json:"error,omitempty"`
}

// Counted reports whether the event contributed to the heuristic list.
func (e TraceEvent) Counted() bool {
	return e.Outcome == ir.OutcomeScored || e.Outcome == ir.OutcomeFallback
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all observations in seq order, as recorded in the
	// observation store.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// ToMinimize is the heuristic list at the end of the run.
	ToMinimize []float64 `json:"to_minimize"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Errors:     []string{},
		ToMinimize: []float64{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
