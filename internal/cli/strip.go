package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/sqlheur/internal/sqltext"
)

// StripResult is the output of the strip command.
type StripResult struct {
	SQL string `json:"sql"`
}

// Text implements TextRenderer.
func (r StripResult) Text() string {
	return r.SQL + "\n"
}

// NewStripCommand creates the strip command.
func NewStripCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strip <sql>",
		Short: "Remove the WHERE clause of a query",
		Long: `Remove the top-level WHERE clause of a SELECT query, keeping everything
else byte for byte. Queries without a WHERE clause are printed unchanged.

Exit codes:
  0 - Success
  1 - The query is malformed

Examples:
  sqlheur strip "SELECT * FROM t WHERE a = 1 ORDER BY b"
  sqlheur strip --format json "SELECT x FROM t WHERE x > 0"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrip(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStrip(opts *RootOptions, sql string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	stripped, err := sqltext.StripFilter(sql)
	if err != nil {
		return f.Fail(ExitFailure, "failed to strip query", err)
	}
	return f.Success(StripResult{SQL: stripped})
}
