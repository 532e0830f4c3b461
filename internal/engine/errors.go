package engine

import (
	"errors"
	"fmt"
)

// ObservationError represents a failure while observing a query.
//
// Observation errors include:
//   - Candidate failed: the candidate query could not be executed
//   - Scan failed: the candidate rows could not be read
//   - Record failed: the observation could not be written to the store
//
// Queries that cannot be scored (unsupported filters, unresolvable columns)
// are not errors; they score the fallback distance.
type ObservationError struct {
	// Code identifies the error category.
	Code ObservationErrorCode

	// SQL is the observed query.
	SQL string

	// CandidateSQL is the query that was executed in its place, if any.
	CandidateSQL string

	// Err is the underlying error.
	Err error
}

// ObservationErrorCode categorizes observation errors.
type ObservationErrorCode string

const (
	// ErrCodeCandidateFailed indicates the candidate query returned an error.
	ErrCodeCandidateFailed ObservationErrorCode = "CANDIDATE_FAILED"

	// ErrCodeScanFailed indicates the candidate rows could not be scanned.
	ErrCodeScanFailed ObservationErrorCode = "SCAN_FAILED"

	// ErrCodeRecordFailed indicates the observation was scored but not stored.
	ErrCodeRecordFailed ObservationErrorCode = "RECORD_FAILED"
)

// Error implements the error interface.
func (e *ObservationError) Error() string {
	if e.CandidateSQL != "" {
		return fmt.Sprintf("%s: %v (candidate=%q)", e.Code, e.Err, e.CandidateSQL)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *ObservationError) Unwrap() error {
	return e.Err
}

// IsCandidateError returns true if the candidate query could not be run or
// read. Uses errors.As to handle wrapped errors.
func IsCandidateError(err error) bool {
	var oe *ObservationError
	if errors.As(err, &oe) {
		return oe.Code == ErrCodeCandidateFailed || oe.Code == ErrCodeScanFailed
	}
	return false
}

// IsRecordError returns true if the error is a store write failure.
func IsRecordError(err error) bool {
	var oe *ObservationError
	if errors.As(err, &oe) {
		return oe.Code == ErrCodeRecordFailed
	}
	return false
}
