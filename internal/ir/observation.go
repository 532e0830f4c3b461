package ir

// Outcome classifies how an observed query was scored.
type Outcome string

const (
	// OutcomeScored means the filter was evaluated over the candidate rows.
	OutcomeScored Outcome = "scored"

	// OutcomeFallback means the query could not be scored and received the
	// fallback distance.
	OutcomeFallback Outcome = "fallback"

	// OutcomeFailed means the candidate query itself failed to execute.
	// Nothing is appended to the heuristic list for such a query.
	OutcomeFailed Outcome = "failed"
)

// Observation is one scored query, as recorded by the observer.
//
// Seq orders observations within a process. Epoch is the accumulator
// epoch the observation was appended in; a reset starts a new epoch.
type Observation struct {
	ID           string  `json:"id"`
	Seq          int64   `json:"seq"`
	Epoch        int64   `json:"epoch"`
	SQL          string  `json:"sql"`
	Args         []any   `json:"args,omitempty"`
	CandidateSQL string  `json:"candidate_sql,omitempty"`
	Rows         int     `json:"rows"`
	Distance     float64 `json:"distance"`
	Outcome      Outcome `json:"outcome"`
	Error        string  `json:"error,omitempty"`
}

// Counted reports whether the observation contributes a value to the
// heuristic list.
func (o Observation) Counted() bool {
	return o.Outcome == OutcomeScored || o.Outcome == OutcomeFallback
}
