package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlheur/internal/queryir"
)

// CandidateOptions holds flags for the candidate command.
type CandidateOptions struct {
	*RootOptions
	Args []string // raw --arg values
}

// CandidateResult is the output of the candidate command.
type CandidateResult struct {
	SQL     string   `json:"sql"`
	Args    []any    `json:"args"`
	Widened []string `json:"widened"`
}

// Text implements TextRenderer.
func (r CandidateResult) Text() string {
	var b strings.Builder
	b.WriteString(r.SQL)
	b.WriteByte('\n')
	if len(r.Args) > 0 {
		fmt.Fprintf(&b, "args: %v\n", r.Args)
	}
	if len(r.Widened) > 0 {
		fmt.Fprintf(&b, "widened: %s\n", strings.Join(r.Widened, ", "))
	}
	return b.String()
}

// NewCandidateCommand creates the candidate command.
func NewCandidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CandidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "candidate <sql>",
		Short: "Print the candidate query of a query",
		Long: `Print the query executed to score a filter: the original without its
WHERE clause and row limits, with every filter column the projection does
not expose added to the select list.

Exit codes:
  0 - Success
  1 - The query is malformed or its filter is not supported

Examples:
  sqlheur candidate "SELECT name FROM users WHERE age > 30 LIMIT 1"
  sqlheur candidate --arg 5 "SELECT * FROM t WHERE x = ?"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCandidate(opts, args[0], cmd)
		},
	}

	addArgFlag(cmd, &opts.Args)
	return cmd
}

func runCandidate(opts *CandidateOptions, sql string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	c, err := queryir.Prepare(sql, parseArgs(opts.Args)...)
	if err != nil {
		return f.Fail(ExitFailure, "failed to derive candidate query", err)
	}

	result := CandidateResult{SQL: c.SQL, Args: c.Args, Widened: c.Widened}
	if result.Args == nil {
		result.Args = []any{}
	}
	if result.Widened == nil {
		result.Widened = []string{}
	}
	return f.Success(result)
}
