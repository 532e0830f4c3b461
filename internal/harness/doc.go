// Package harness runs scripted SQL scenarios through the query observer and
// checks the heuristic values it produces.
//
// A scenario builds a schema in a fresh in-memory SQLite database, then
// alternates between changing the data and observing queries, asserting how
// the distance of each observed query moves.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - CREATE TABLE Foo(x INT)
//	steps:
//	  - observe: select x from Foo where x = ?
//	    args: [5]
//	    expect: { positive: true, rows: 0 }
//	  - exec: INSERT INTO Foo VALUES (6)
//	  - observe: select x from Foo where x = ?
//	    args: [5]
//	    expect: { less_than_previous: true }
//	  - reset: true
//	assertions:
//	  - type: decreasing
//	  - type: observation_count
//	    count: 2
//	  - type: final_state
//	    table: Foo
//	    count: 1
//
// Files are decoded strictly (unknown fields are errors) and checked against
// an embedded CUE schema before the cross-field rules in validateScenario.
//
// # Expectations
//
// Each observe step may carry an expect clause:
//
//   - zero: the distance is exactly 0
//   - positive: the distance is above 0
//   - less_than_previous: the distance is below the previous counted
//     distance since the last reset
//   - rows: the candidate query returned this many rows
//   - outcome: scored, fallback or failed (default: scored or fallback)
//
// # Assertion Types
//
//   - decreasing: the heuristic list at the end of the run strictly decreases
//   - observation_count: the number of observations, optionally of one outcome
//   - final_state: the row count of a table in the scenario database
//
// # Deterministic Testing
//
// Every run uses a fresh logical clock, sequential observation ids and an
// in-memory observation store, so the trace of a scenario is identical
// across runs and can be compared against a golden file (see RunWithGolden).
package harness
