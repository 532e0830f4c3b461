package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlheur/internal/ir"
)

//go:embed schema.cue
var schemaSource []byte

// validIdentifier matches valid SQL identifiers (table names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Scenario defines a heuristic test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup contains SQL statements executed before the steps, typically
	// CREATE TABLE. Setup statements must succeed.
	Setup []string `yaml:"setup,omitempty"`

	// Steps run in order. Each step is exactly one of exec, observe or reset.
	Steps []Step `yaml:"steps"`

	// Assertions validate the run as a whole.
	// Supported types: decreasing, observation_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario step.
type Step struct {
	// Exec is a SQL statement changing the data. It is not observed.
	Exec string `yaml:"exec,omitempty"`

	// Observe is a query passed to the observer.
	Observe string `yaml:"observe,omitempty"`

	// Args are the arguments Observe is executed with.
	Args []any `yaml:"args,omitempty"`

	// Reset clears the heuristic list and starts a new epoch.
	Reset bool `yaml:"reset,omitempty"`

	// Expect checks the observation made by an observe step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step kinds, as returned by Step.Kind.
const (
	StepExec    = "exec"
	StepObserve = "observe"
	StepReset   = "reset"
)

// Kind returns which of exec, observe or reset the step is, or "" when it
// is none of them.
func (s Step) Kind() string {
	switch {
	case s.Exec != "":
		return StepExec
	case s.Observe != "":
		return StepObserve
	case s.Reset:
		return StepReset
	default:
		return ""
	}
}

// Expect specifies the expected observation of an observe step.
// Unset fields are not checked.
type Expect struct {
	Zero             bool   `yaml:"zero,omitempty"`
	Positive         bool   `yaml:"positive,omitempty"`
	LessThanPrevious bool   `yaml:"less_than_previous,omitempty"`
	Rows             *int   `yaml:"rows,omitempty"`
	Outcome          string `yaml:"outcome,omitempty"`
}

// Assertion validates the run as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "decreasing": the final heuristic list strictly decreases
	// - "observation_count": Count observations were made, of Outcome if set
	// - "final_state": Table holds Count rows at the end of the run
	Type string `yaml:"type"`

	// Count is the expected number of observations or rows.
	Count int `yaml:"count,omitempty"`

	// Outcome restricts observation_count to one outcome.
	Outcome string `yaml:"outcome,omitempty"`

	// Table is the table name (used by final_state).
	Table string `yaml:"table,omitempty"`
}

// Assertion type constants.
const (
	AssertDecreasing       = "decreasing"
	AssertObservationCount = "observation_count"
	AssertFinalState       = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateSchema checks the decoded document against #Scenario in
// schema.cue. A cue.Context is not safe for concurrent use, so each call
// compiles the schema in its own context.
func validateSchema(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Scenario"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	value := schema.Unify(ctx.Encode(doc))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// validateScenario checks the rules the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, stmt := range s.Setup {
		if stmt == "" {
			return fmt.Errorf("setup[%d]: statement is required", i)
		}
	}

	observed := false // an observe step since the last reset
	for i, step := range s.Steps {
		if err := validateStep(i, &step, observed); err != nil {
			return err
		}
		switch step.Kind() {
		case StepObserve:
			observed = true
		case StepReset:
			observed = false
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step. observed tells whether an earlier
// observe step shares its epoch.
func validateStep(index int, step *Step, observed bool) error {
	set := 0
	for _, b := range []bool{step.Exec != "", step.Observe != "", step.Reset} {
		if b {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of exec, observe or reset is required", index)
	}

	if step.Kind() != StepObserve {
		if step.Args != nil {
			return fmt.Errorf("steps[%d]: args are only allowed on observe steps", index)
		}
		if step.Expect != nil {
			return fmt.Errorf("steps[%d]: expect is only allowed on observe steps", index)
		}
		return nil
	}

	e := step.Expect
	if e == nil {
		return nil
	}
	if e.Zero && e.Positive {
		return fmt.Errorf("steps[%d].expect: zero and positive are mutually exclusive", index)
	}
	if e.LessThanPrevious && !observed {
		return fmt.Errorf("steps[%d].expect: less_than_previous needs an earlier observe step since the last reset", index)
	}
	if e.Rows != nil && *e.Rows < 0 {
		return fmt.Errorf("steps[%d].expect: rows must be non-negative", index)
	}
	if e.Outcome != "" && !validOutcome(e.Outcome) {
		return fmt.Errorf("steps[%d].expect: unknown outcome %q", index, e.Outcome)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDecreasing:
	case AssertObservationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for observation_count", index)
		}
		if a.Outcome != "" && !validOutcome(a.Outcome) {
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if !validIdentifier.MatchString(a.Table) {
			return fmt.Errorf("assertions[%d]: invalid table name %q", index, a.Table)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validOutcome(s string) bool {
	switch ir.Outcome(s) {
	case ir.OutcomeScored, ir.OutcomeFallback, ir.OutcomeFailed:
		return true
	}
	return false
}
