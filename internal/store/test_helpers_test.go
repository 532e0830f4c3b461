package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sqlheur/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestObservation creates a scored observation with minimal required fields.
func createTestObservation(id string, seq, epoch int64, distance float64) ir.Observation {
	return ir.Observation{
		ID:       id,
		Seq:      seq,
		Epoch:    epoch,
		SQL:      "select x from Foo where x = 5",
		Distance: distance,
		Outcome:  ir.OutcomeScored,
	}
}
