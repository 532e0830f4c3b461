package queryir

import (
	"strings"
	"unicode"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/sqltext"
)

// Candidate is the filter-free variant of a query that is executed to
// obtain the rows a distance is computed over.
type Candidate struct {
	// Original is the query as issued.
	Original string

	// SQL is the candidate query: the original without its top-level
	// filter and row limits, with every filter column the projection does
	// not expose appended to the select list under its WidenedLabel.
	SQL string

	// Args are the original arguments still referenced by SQL.
	Args []any

	// Widened lists the labels appended to the select list.
	Widened []string

	// Filter is the original filter with labels pointing at candidate
	// result columns.
	Filter Predicate

	// Statement and Aliases are the parsed original.
	Statement *sqltext.Statement
	Aliases   *AliasTable
}

// Prepare derives the candidate query of sql.
//
// Returns a *sqltext.MalformedQueryError when sql is not a SELECT with a
// source clause, or an *UnsupportedPredicateError when the filter is outside
// the supported grammar.
func Prepare(sql string, args ...any) (*Candidate, error) {
	stmt, err := sqltext.Parse(sql)
	if err != nil {
		return nil, err
	}
	aliases := NewAliasTable(stmt)

	values := make([]ir.Value, len(args))
	for i, a := range args {
		values[i] = ir.Of(a)
	}
	filter, err := Build(stmt, aliases, values...)
	if err != nil {
		return nil, err
	}

	c := &Candidate{Original: sql, Filter: filter, Statement: stmt, Aliases: aliases}

	// Widening a compound statement would change the column count of one
	// branch only.
	var extra []string
	if !stmt.Compound {
		for _, ref := range Columns(filter) {
			if _, ok := aliases.Lookup(ref); ok {
				continue
			}
			label := WidenedLabel(ref)
			extra = append(extra, quoteRef(ref)+" AS "+quoteIdent(label))
			c.Widened = append(c.Widened, label)
		}
	}

	out := stmt.Rewrite(sqltext.RewriteOptions{DropFilter: true, DropLimit: true, Extra: extra})
	c.SQL = out.SQL
	for _, i := range out.Params {
		if i < len(args) {
			c.Args = append(c.Args, args[i])
		}
	}
	return c, nil
}

func quoteRef(ref ColumnRef) string {
	if ref.Qualifier == "" {
		return quoteIdent(ref.Name)
	}
	return quoteIdent(ref.Qualifier) + "." + quoteIdent(ref.Name)
}

// quoteIdent double-quotes an identifier unless it is a plain word.
func quoteIdent(s string) string {
	plain := s != ""
	for i, r := range s {
		if !(r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))) {
			plain = false
			break
		}
	}
	if plain {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
