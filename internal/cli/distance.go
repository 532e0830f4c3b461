package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlheur/internal/engine"
	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/queryir"
	"github.com/roach88/sqlheur/internal/querysql"
	"github.com/roach88/sqlheur/internal/store"
)

// DistanceOptions holds flags for the distance command.
type DistanceOptions struct {
	*RootOptions
	DBPath string   // SQLite database the query is evaluated against
	Args   []string // raw --arg values
}

// DistanceResult is the output of the distance command.
type DistanceResult struct {
	SQL          string     `json:"sql"`
	CandidateSQL string     `json:"candidate_sql,omitempty"`
	Outcome      ir.Outcome `json:"outcome"`
	Rows         int        `json:"rows"`
	Matching     *int       `json:"matching,omitempty"`
	Distance     float64    `json:"distance"`
	Error        string     `json:"error,omitempty"`
}

// Text implements TextRenderer.
func (r DistanceResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "distance:  %s\n", formatDistance(r.Distance))
	fmt.Fprintf(&b, "outcome:   %s\n", r.Outcome)
	if r.CandidateSQL != "" {
		fmt.Fprintf(&b, "candidate: %s\n", r.CandidateSQL)
	}
	fmt.Fprintf(&b, "rows:      %d\n", r.Rows)
	if r.Matching != nil {
		fmt.Fprintf(&b, "matching:  %d\n", *r.Matching)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "error:     %s\n", r.Error)
	}
	return b.String()
}

// NewDistanceCommand creates the distance command.
func NewDistanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DistanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "distance <sql>",
		Short: "Score a query against a SQLite database",
		Long: `Evaluate the filter of a SELECT query over the rows of its candidate
query and print the distance. Zero means some row satisfies the filter.

Queries whose filter cannot be scored get the fallback distance 1.

Exit codes:
  0 - Success (including fallback)
  1 - The query has no WHERE clause or its candidate query failed
  2 - Command error (database not found, etc.)

Examples:
  sqlheur distance --db app.db "SELECT * FROM users WHERE age > 30"
  sqlheur distance --db app.db --arg 'bob' "SELECT * FROM users WHERE name = ?"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDistance(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database path (required)")
	_ = cmd.MarkFlagRequired("db")
	addArgFlag(cmd, &opts.Args)

	return cmd
}

func runDistance(ctx context.Context, opts *DistanceOptions, query string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	// store.OpenDB would create a missing file.
	if _, err := os.Stat(opts.DBPath); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.DBPath))
	}
	db, err := store.OpenDB(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	args := parseArgs(opts.Args)
	f.VerboseLog("evaluating %s with args %v", query, args)

	observer := engine.NewObserver(db, engine.NewAccumulator())
	obs, err := observer.Observe(ctx, query, args...)
	if obs == nil {
		if outErr := f.Error(ErrCodeNotObserved, "query is not a SELECT with a WHERE clause", nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, "query not observed")
	}
	if err != nil {
		return f.Fail(ExitFailure, "failed to score query", err)
	}

	result := DistanceResult{
		SQL:          obs.SQL,
		CandidateSQL: obs.CandidateSQL,
		Outcome:      obs.Outcome,
		Rows:         obs.Rows,
		Distance:     obs.Distance,
		Error:        obs.Error,
	}
	if obs.Outcome == ir.OutcomeScored {
		if n, err := countMatching(ctx, db, query, args); err == nil {
			result.Matching = &n
		} else {
			slog.Debug("count matching rows failed", "sql", query, "error", err)
		}
	}
	return f.Success(result)
}

// countMatching counts the candidate rows satisfying the filter of query.
func countMatching(ctx context.Context, db *sql.DB, query string, args []any) (int, error) {
	c, err := queryir.Prepare(query, args...)
	if err != nil {
		return 0, err
	}
	countSQL, countArgs, err := querysql.NewSQLCompiler().Compile(queryir.Count{
		From:     c.SQL,
		FromArgs: c.Args,
		Filter:   c.Filter,
	})
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

// formatDistance renders a distance with ten significant digits.
func formatDistance(d float64) string {
	return strconv.FormatFloat(d, 'g', 10, 64)
}
