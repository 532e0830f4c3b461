package sqltext

import (
	"errors"
	"fmt"
)

// MalformedQueryError reports text that is not recognizable as a SELECT
// statement with a source clause.
//
// It is raised by Parse and StripFilter and is never recovered locally:
// it indicates a usage or configuration bug, not a runtime condition of the
// system under test.
type MalformedQueryError struct {
	// SQL is the offending statement.
	SQL string

	// Reason describes what was expected.
	Reason string

	// Offset is the byte offset where the problem was detected (-1 if unknown).
	Offset int
}

// Error implements the error interface.
func (e *MalformedQueryError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("malformed query: %s (offset %d): %q", e.Reason, e.Offset, e.SQL)
	}
	return fmt.Sprintf("malformed query: %s: %q", e.Reason, e.SQL)
}

// IsMalformed returns true if err is (or wraps) a MalformedQueryError.
func IsMalformed(err error) bool {
	var me *MalformedQueryError
	return errors.As(err, &me)
}

func malformed(sql, reason string, offset int) *MalformedQueryError {
	return &MalformedQueryError{SQL: sql, Reason: reason, Offset: offset}
}
