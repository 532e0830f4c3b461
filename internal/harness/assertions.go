package harness

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sqlheur/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s %s %s\n",
				event.Seq, event.Step, event.Outcome, formatDistance(event.Distance), event.SQL)
		}
	}

	return buf.String()
}

// AssertionContext carries what assertions need beyond the result.
type AssertionContext struct {
	DB  *sql.DB
	Ctx context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertDecreasing:
			err = assertDecreasing(result, a)
		case AssertObservationCount:
			err = assertObservationCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertDecreasing checks that the final heuristic list strictly decreases.
func assertDecreasing(result *Result, _ Assertion) error {
	values := result.ToMinimize
	for i := 1; i < len(values); i++ {
		if values[i] >= values[i-1] {
			return &AssertionError{
				Type:     AssertDecreasing,
				Expected: "strictly decreasing heuristic values",
				Actual: fmt.Sprintf("value %d (%s) is not below value %d (%s)",
					i, formatDistance(values[i]), i-1, formatDistance(values[i-1])),
				Trace: result.Trace,
			}
		}
	}
	return nil
}

// assertObservationCount checks the number of observations, of one outcome
// when the assertion names one.
func assertObservationCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.Outcome == "" || string(event.Outcome) == assertion.Outcome {
			count++
		}
	}

	if count != assertion.Count {
		what := "observations"
		if assertion.Outcome != "" {
			what = assertion.Outcome + " observations"
		}
		return &AssertionError{
			Type:     AssertObservationCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the row count of a table in the scenario database.
//
// Security: the table name is validated against a whitelist pattern since
// identifiers cannot be parameterized.
func assertFinalState(actx *AssertionContext, assertion Assertion) error {
	if actx == nil || actx.DB == nil {
		return fmt.Errorf("final_state assertion requires a database")
	}
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", assertion.Table)
	if err := actx.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%d rows in %s", assertion.Count, assertion.Table),
			Actual:   fmt.Sprintf("%d rows", count),
		}
	}
	return nil
}

// checkExpect compares an observation against the expect clause of its
// step. prev is the previous counted distance in the same epoch, if any.
func checkExpect(step int, e *Expect, obs *ir.Observation, prev *float64) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("steps[%d]: ", step)+fmt.Sprintf(format, args...))
	}

	if e == nil || e.Outcome == "" {
		if !obs.Counted() {
			fail("observation %s: %s", obs.Outcome, obs.Error)
			return errs
		}
	} else if string(obs.Outcome) != e.Outcome {
		fail("expected outcome %s, got %s", e.Outcome, obs.Outcome)
	}
	if e == nil {
		return errs
	}

	if e.Zero && obs.Distance != 0 {
		fail("expected zero distance, got %s", formatDistance(obs.Distance))
	}
	if e.Positive && !(obs.Distance > 0) {
		fail("expected positive distance, got %s", formatDistance(obs.Distance))
	}
	if e.LessThanPrevious {
		switch {
		case prev == nil:
			fail("expected distance below the previous one, but no earlier observation counted")
		case !(obs.Distance < *prev):
			fail("expected distance below %s, got %s", formatDistance(*prev), formatDistance(obs.Distance))
		}
	}
	if e.Rows != nil && obs.Rows != *e.Rows {
		fail("expected %d candidate rows, got %d", *e.Rows, obs.Rows)
	}
	return errs
}

// formatDistance renders a distance with ten significant digits, so traces
// compare byte for byte across platforms.
func formatDistance(d float64) string {
	return strconv.FormatFloat(d, 'g', 10, 64)
}
