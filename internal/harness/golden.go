package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file form of a run. Distances are rendered
// with fixed precision so snapshots do not depend on float formatting.
type TraceSnapshot struct {
	Scenario   string          `json:"scenario"`
	Trace      []SnapshotEvent `json:"trace"`
	ToMinimize []string        `json:"to_minimize"`
}

// SnapshotEvent is one observation in a TraceSnapshot.
type SnapshotEvent struct {
	Step     int    `json:"step"`
	Seq      int64  `json:"seq"`
	Epoch    int64  `json:"epoch"`
	SQL      string `json:"sql"`
	Outcome  string `json:"outcome"`
	Rows     int    `json:"rows"`
	Distance string `json:"distance"`
}

// NewTraceSnapshot builds the snapshot of a result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	s := TraceSnapshot{
		Scenario:   name,
		Trace:      make([]SnapshotEvent, len(result.Trace)),
		ToMinimize: make([]string, len(result.ToMinimize)),
	}
	for i, e := range result.Trace {
		s.Trace[i] = SnapshotEvent{
			Step:     e.Step,
			Seq:      e.Seq,
			Epoch:    e.Epoch,
			SQL:      e.SQL,
			Outcome:  string(e.Outcome),
			Rows:     e.Rows,
			Distance: formatDistance(e.Distance),
		}
	}
	for i, v := range result.ToMinimize {
		s.ToMinimize[i] = formatDistance(v)
	}
	return s
}

// MarshalSnapshot renders the snapshot of a result as indented JSON with a
// trailing newline. SQL text is not HTML-escaped.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewTraceSnapshot(name, result)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
