package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: All literal values are parameterized (never interpolated).
// Column references render by label, since compiled queries read from a
// candidate query wrapped as a derived table.
type SQLCompiler struct {
	// Alias names the derived table the candidate query is wrapped in.
	Alias string
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Alias: "candidate"}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple. The parameters of the wrapped query
// come first, followed by those of the filter.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Count:
		return c.compileCount(query)
	case *queryir.Count:
		return c.compileCount(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if strings.TrimSpace(q.From) == "" {
		return "", nil, fmt.Errorf("select requires a source query")
	}

	selectClause := c.compileColumns(q.Columns)
	fromClause := fmt.Sprintf("(%s) AS %s", q.From, c.Alias)

	whereClause, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s", selectClause, fromClause, whereClause)
	return sql, joinParams(q.FromArgs, params), nil
}

// compileCount compiles a queryir.Count to SQL.
func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	if strings.TrimSpace(q.From) == "" {
		return "", nil, fmt.Errorf("count requires a source query")
	}

	whereClause, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS %s%s", q.From, c.Alias, whereClause)
	return sql, joinParams(q.FromArgs, params), nil
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	if _, ok := p.(queryir.True); ok {
		return "", nil, nil
	}
	filterSQL, params, err := c.CompilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + filterSQL, params, nil
}

// compileColumns converts the column list to a SELECT column list.
// Example: ["a", "__f__y"] → `"a", "__f__y"`
func (c *SQLCompiler) compileColumns(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}

	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = quoteIdent(col)
	}
	return strings.Join(parts, ", ")
}

// CompilePredicate compiles a queryir.Predicate to a SQL condition.
// Returns (sql, params, error).
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.True:
		return "1 = 1", nil, nil
	case queryir.Comparison:
		return c.compileComparison(pred)
	case queryir.And:
		return c.compileBinary("AND", pred.Left, pred.Right)
	case queryir.Or:
		return c.compileBinary("OR", pred.Left, pred.Right)
	case queryir.Not:
		inner, params, err := c.CompilePredicate(pred.Inner)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileBinary compiles a connective, parenthesizing both sides.
func (c *SQLCompiler) compileBinary(op string, l, r queryir.Predicate) (string, []any, error) {
	left, leftParams, err := c.CompilePredicate(l)
	if err != nil {
		return "", nil, err
	}
	right, rightParams, err := c.CompilePredicate(r)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("(%s %s %s)", left, op, right)
	return sql, joinParams(leftParams, rightParams), nil
}

// compileComparison compiles a comparison to "left op right".
// Null checks against a NULL literal compile to IS [NOT] NULL.
func (c *SQLCompiler) compileComparison(cmp queryir.Comparison) (string, []any, error) {
	left, leftParams, err := c.compileOperand(cmp.Left)
	if err != nil {
		return "", nil, err
	}

	if lit, ok := cmp.Right.(queryir.Literal); ok && ir.IsNull(lit.Value) {
		switch cmp.Op {
		case queryir.OpIs:
			return left + " IS NULL", leftParams, nil
		case queryir.OpIsNot:
			return left + " IS NOT NULL", leftParams, nil
		}
	}

	right, rightParams, err := c.compileOperand(cmp.Right)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("%s %s %s", left, cmp.Op, right)
	return sql, joinParams(leftParams, rightParams), nil
}

// compileOperand renders a column by its label and a literal as a
// placeholder.
func (c *SQLCompiler) compileOperand(o queryir.Operand) (string, []any, error) {
	switch op := o.(type) {
	case queryir.ColumnRef:
		name := op.Label
		if name == "" {
			name = op.Name
		}
		return quoteIdent(name), nil, nil
	case queryir.Literal:
		return "?", []any{ir.Native(op.Value)}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operand type: %T", o)
	}
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// joinParams concatenates parameter lists without aliasing either input.
func joinParams(lists ...[]any) []any {
	var out []any
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
