package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlheur/internal/queryir"
	"github.com/roach88/sqlheur/internal/querysql"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Args []string // raw --arg values
}

// ExplainResult is the output of the explain command.
type ExplainResult struct {
	Filter     string         `json:"filter"`
	Candidate  string         `json:"candidate"`
	Columns    []ColumnOrigin `json:"columns"`
	Count      CompiledQuery  `json:"count"`
	Continuous bool           `json:"continuous"`
	Warnings   []string       `json:"warnings"`
}

// ColumnOrigin describes one column the filter reads.
type ColumnOrigin struct {
	Ref     string `json:"ref"`
	Label   string `json:"label"`             // result column in the candidate query
	Origin  string `json:"origin,omitempty"`  // table.column, when traceable
	Widened bool   `json:"widened,omitempty"` // added to the candidate projection
}

// CompiledQuery is parameterized SQL with its arguments.
type CompiledQuery struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// Text implements TextRenderer.
func (r ExplainResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "filter:    %s\n", r.Filter)
	fmt.Fprintf(&b, "candidate: %s\n", r.Candidate)
	if len(r.Columns) > 0 {
		b.WriteString("columns:\n")
		for _, c := range r.Columns {
			fmt.Fprintf(&b, "  %s -> %s", c.Ref, c.Label)
			if c.Origin != "" {
				fmt.Fprintf(&b, " (%s)", c.Origin)
			}
			if c.Widened {
				b.WriteString(" [widened]")
			}
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "count:     %s\n", r.Count.SQL)
	if len(r.Count.Args) > 0 {
		fmt.Fprintf(&b, "args:      %v\n", r.Count.Args)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <sql>",
		Short: "Show how the filter of a query is scored",
		Long: `Show the predicate tree of a query's filter, the candidate query and the
columns it reads, and the filter compiled over the candidate query as a
parameterized COUNT. Leaves whose distance has no gradient are reported
as warnings.

Exit codes:
  0 - Success
  1 - The query is malformed or its filter is not supported

Examples:
  sqlheur explain "SELECT * FROM t WHERE a = 1 AND (b < 2 OR c IS NULL)"
  sqlheur explain --arg 'x' --format json "SELECT * FROM t WHERE s = ?"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	addArgFlag(cmd, &opts.Args)
	return cmd
}

func runExplain(opts *ExplainOptions, sql string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	c, err := queryir.Prepare(sql, parseArgs(opts.Args)...)
	if err != nil {
		return f.Fail(ExitFailure, "failed to analyze query", err)
	}

	countSQL, countArgs, err := querysql.NewSQLCompiler().Compile(queryir.Count{
		From:     c.SQL,
		FromArgs: c.Args,
		Filter:   c.Filter,
	})
	if err != nil {
		return f.Fail(ExitFailure, "failed to compile filter", err)
	}
	if countArgs == nil {
		countArgs = []any{}
	}

	validation := queryir.Validate(c.Filter)
	result := ExplainResult{
		Filter:     queryir.Format(c.Filter),
		Candidate:  c.SQL,
		Columns:    []ColumnOrigin{},
		Count:      CompiledQuery{SQL: countSQL, Args: countArgs},
		Continuous: validation.Continuous,
		Warnings:   validation.Warnings,
	}

	widened := make(map[string]bool, len(c.Widened))
	for _, label := range c.Widened {
		widened[label] = true
	}
	for _, ref := range queryir.Columns(c.Filter) {
		label := ref.Label
		if label == "" {
			label = c.Aliases.Label(ref)
		}
		col := ColumnOrigin{Ref: ref.String(), Label: label, Widened: widened[label]}
		if table, column, ok := c.Aliases.Origin(ref); ok {
			col.Origin = table + "." + column
		}
		result.Columns = append(result.Columns, col)
	}

	f.VerboseLog("candidate args: %v", c.Args)
	return f.Success(result)
}
