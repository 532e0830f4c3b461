package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// UnsupportedPredicateError reports a filter construct outside the grammar
// the distance evaluator understands (LIKE, sub-queries, function calls,
// arithmetic, unbound placeholders).
//
// It is recoverable: the evaluator turns it into a fallback distance.
type UnsupportedPredicateError struct {
	// Filter is the filter clause text.
	Filter string

	// Construct names what was not understood.
	Construct string

	// Offset is the byte offset in the statement (-1 if unknown).
	Offset int
}

// Error implements the error interface.
func (e *UnsupportedPredicateError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("unsupported predicate: %s at offset %d in %q", e.Construct, e.Offset, e.Filter)
	}
	return fmt.Sprintf("unsupported predicate: %s in %q", e.Construct, e.Filter)
}

// IsUnsupported returns true if err is (or wraps) an UnsupportedPredicateError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedPredicateError
	return errors.As(err, &ue)
}

// ResolutionError reports a column reference that does not map to any
// column of the result set being evaluated.
type ResolutionError struct {
	Ref     ColumnRef
	Columns []string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve column %s (label %q) against result columns [%s]",
		e.Ref, e.Ref.Label, strings.Join(e.Columns, ", "))
}

// IsResolution returns true if err is (or wraps) a ResolutionError.
func IsResolution(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
