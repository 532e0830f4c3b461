package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlheur/internal/ir"
)

// addArgFlag registers the repeatable --arg flag for query arguments.
func addArgFlag(cmd *cobra.Command, target *[]string) {
	cmd.Flags().StringArrayVar(target, "arg", nil,
		"positional query argument, repeatable (null, true, false, a number, or text; quote text as 'text' to keep it a string)")
}

// parseArgs converts --arg values into driver values.
func parseArgs(raw []string) []any {
	args := make([]any, len(raw))
	for i, s := range raw {
		args[i] = parseArg(s)
	}
	return args
}

// parseArg reads one argument:
//   - null, true and false (any case) become nil and booleans
//   - numeric literals become int64 or float64
//   - 'text' becomes text without the quotes
//   - anything else is text as given
func parseArg(s string) any {
	switch strings.ToLower(s) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}

	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}

	if looksNumeric(s) {
		if v, err := ir.ParseNumber(s); err == nil {
			return ir.Native(v)
		}
	}
	return s
}

// looksNumeric rejects words strconv would accept as floats, like NaN and Inf.
func looksNumeric(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return s != "" && (s[0] == '.' || (s[0] >= '0' && s[0] <= '9'))
}
