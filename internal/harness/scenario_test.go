package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_AllTestdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Name)
			assert.NotEmpty(t, scenario.Steps)
		})
	}
}

func TestLoadScenario_Fields(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/inner_join.yaml")
	require.NoError(t, err)

	assert.Equal(t, "inner_join", scenario.Name)
	assert.Len(t, scenario.Setup, 2)
	require.Len(t, scenario.Steps, 6)

	first := scenario.Steps[0]
	assert.Equal(t, StepObserve, first.Kind())
	assert.Equal(t, []any{10}, first.Args)
	require.NotNil(t, first.Expect)
	assert.True(t, first.Expect.Positive)
	require.NotNil(t, first.Expect.Rows)
	assert.Equal(t, 0, *first.Expect.Rows)

	assert.Equal(t, StepExec, scenario.Steps[1].Kind())

	require.Len(t, scenario.Assertions, 3)
	assert.Equal(t, AssertObservationCount, scenario.Assertions[1].Type)
	assert.Equal(t, "scored", scenario.Assertions[1].Outcome)
	assert.Equal(t, "Child", scenario.Assertions[2].Table)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	content := `
name: tmp
description: from a file
steps:
  - observe: select x from Foo where x = 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "tmp", scenario.Name)
	assert.Nil(t, scenario.Steps[0].Expect)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "name: [unclosed",
			wantErr: "failed to parse YAML",
		},
		{
			name: "unknown field",
			yaml: `
name: typo
description: d
step:
  - exec: select 1
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing steps",
			yaml: `
name: empty
description: d
`,
			wantErr: "invalid scenario",
		},
		{
			name: "two kinds in one step",
			yaml: `
name: both
description: d
steps:
  - exec: INSERT INTO Foo VALUES (1)
    observe: select x from Foo where x = 1
`,
			wantErr: "invalid scenario",
		},
		{
			name: "unknown outcome",
			yaml: `
name: outcome
description: d
steps:
  - observe: select x from Foo where x = 1
    expect: { outcome: bogus }
`,
			wantErr: "schema",
		},
		{
			name: "negative rows",
			yaml: `
name: rows
description: d
steps:
  - observe: select x from Foo where x = 1
    expect: { rows: -1 }
`,
			wantErr: "schema",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: assertion
description: d
steps:
  - observe: select x from Foo where x = 1
assertions:
  - type: trace_contains
`,
			wantErr: "schema",
		},
		{
			name: "bad table name",
			yaml: `
name: table
description: d
steps:
  - observe: select x from Foo where x = 1
assertions:
  - type: final_state
    table: "Foo; DROP TABLE Foo"
    count: 1
`,
			wantErr: "schema",
		},
		{
			name: "less_than_previous on first observe",
			yaml: `
name: first
description: d
steps:
  - observe: select x from Foo where x = 1
    expect: { less_than_previous: true }
`,
			wantErr: "less_than_previous",
		},
		{
			name: "zero and positive",
			yaml: `
name: both_expect
description: d
steps:
  - observe: select x from Foo where x = 1
    expect: { zero: true, positive: true }
`,
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateScenario_StepRules(t *testing.T) {
	base := func(steps ...Step) *Scenario {
		return &Scenario{Name: "s", Description: "d", Steps: steps}
	}

	err := validateScenario(base(Step{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]: exactly one of exec, observe or reset")

	err = validateScenario(base(Step{Exec: "DELETE FROM Foo", Args: []any{1}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "args are only allowed on observe steps")

	err = validateScenario(base(Step{Reset: true, Expect: &Expect{Zero: true}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expect is only allowed on observe steps")

	// A reset clears the earlier observation.
	err = validateScenario(base(
		Step{Observe: "select x from Foo where x = 1"},
		Step{Reset: true},
		Step{Observe: "select x from Foo where x = 1", Expect: &Expect{LessThanPrevious: true}},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[2].expect")

	err = validateScenario(base(
		Step{Observe: "select x from Foo where x = 1"},
		Step{Exec: "INSERT INTO Foo VALUES (1)"},
		Step{Observe: "select x from Foo where x = 1", Expect: &Expect{LessThanPrevious: true}},
	))
	assert.NoError(t, err)
}

func TestValidateScenario_RequiredFields(t *testing.T) {
	steps := []Step{{Observe: "select x from Foo where x = 1"}}

	assert.ErrorContains(t, validateScenario(&Scenario{Description: "d", Steps: steps}), "name is required")
	assert.ErrorContains(t, validateScenario(&Scenario{Name: "n", Steps: steps}), "description is required")
	assert.ErrorContains(t, validateScenario(&Scenario{Name: "n", Description: "d"}), "steps list is required")
	assert.ErrorContains(t, validateScenario(&Scenario{Name: "n", Description: "d", Setup: []string{""}, Steps: steps}), "setup[0]")
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"decreasing", Assertion{Type: AssertDecreasing}, ""},
		{"count", Assertion{Type: AssertObservationCount, Count: 2}, ""},
		{"count with outcome", Assertion{Type: AssertObservationCount, Count: 2, Outcome: "fallback"}, ""},
		{"count bad outcome", Assertion{Type: AssertObservationCount, Outcome: "nope"}, "unknown outcome"},
		{"count negative", Assertion{Type: AssertObservationCount, Count: -1}, "non-negative"},
		{"final_state", Assertion{Type: AssertFinalState, Table: "Foo", Count: 1}, ""},
		{"final_state no table", Assertion{Type: AssertFinalState}, "table is required"},
		{"final_state injection", Assertion{Type: AssertFinalState, Table: "Foo--"}, "invalid table name"},
		{"missing type", Assertion{}, "type is required"},
		{"unknown type", Assertion{Type: "trace_order"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(3, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "assertions[3]")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSchema_AcceptsArgsOfEveryKind(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: args
description: d
steps:
  - observe: select x from Foo where a = ? and b = ? and c = ? and d is ?
    args: [1, 2.5, "text", true]
  - reset: true
`))
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2.5, "text", true}, scenario.Steps[0].Args)
	assert.Equal(t, StepReset, scenario.Steps[1].Kind())
}
