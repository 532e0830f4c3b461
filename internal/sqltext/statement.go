package sqltext

import (
	"sort"
	"strings"

	"github.com/roach88/sqlheur/internal/ir"
)

// Statement is a SELECT statement segmented into its projection list,
// source clause and optional filter clause.
//
// Only the outermost statement is segmented clause by clause. Derived tables
// in the source clause are parsed recursively into Source.Subquery; anything
// else inside parentheses is left untouched.
type Statement struct {
	// SQL is the original statement text.
	SQL string

	// Distinct is true for SELECT DISTINCT.
	Distinct bool

	// Projection is the select list in declaration order.
	Projection []SelectItem

	// Sources holds the FROM item followed by every joined item.
	Sources []Source

	// Compound is true when the statement continues with UNION, INTERSECT
	// or EXCEPT. Only the first branch is segmented.
	Compound bool

	tokens   []Token
	fromIdx  int
	hasWhere bool
	where    span
	limits   []span
}

// span is a half-open range of token indices.
type span struct {
	start, end int
}

// SelectItem is one entry of the projection list.
type SelectItem struct {
	// Text is the expression as written, without its alias.
	Text string

	// Alias is the declared alias, if any.
	Alias string

	// Qualifier is the table qualifier of a column reference or of a
	// qualified star (t.*).
	Qualifier string

	// Column is set when the expression is a plain column reference.
	Column string

	// Star is true for * and t.*.
	Star bool

	// Literal is set when the expression is a constant.
	Literal ir.Value
}

// Label returns the name the item's value carries in a result set.
func (it SelectItem) Label() string {
	switch {
	case it.Alias != "":
		return it.Alias
	case it.Column != "":
		return it.Column
	default:
		return it.Text
	}
}

// Source is one item of the source clause.
type Source struct {
	// Table is the table name (possibly schema-qualified). Empty for
	// derived tables.
	Table string

	// Alias is the declared alias, if any.
	Alias string

	// Subquery is the parsed derived table for "(SELECT ...) alias".
	Subquery *Statement

	// Join is how this item attaches to the previous one: "" for the first
	// item, "," for a comma join, otherwise the join keywords ("LEFT JOIN").
	Join string

	// On is the join condition text (ON or USING), if any.
	On string
}

// Name returns the name the source is referenced by in the statement.
func (s Source) Name() string {
	if s.Alias != "" {
		return s.Alias
	}
	if i := strings.LastIndex(s.Table, "."); i >= 0 {
		return s.Table[i+1:]
	}
	return s.Table
}

// clauseKeywords end the source clause (and each other) at nesting depth 0.
var clauseKeywords = map[string]bool{
	"WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true,
	"LIMIT": true, "OFFSET": true, "FETCH": true, "WINDOW": true, "FOR": true,
}

var setOperators = map[string]bool{
	"UNION": true, "INTERSECT": true, "EXCEPT": true,
}

// Parse segments a SELECT statement.
//
// Returns a MalformedQueryError when the text does not start with SELECT,
// has no source clause, has an empty select list, an empty filter, or
// unbalanced parentheses. Parse never executes anything.
func Parse(sql string) (*Statement, error) {
	toks, err := Tokenize(sql)
	if err != nil {
		return nil, malformed(sql, err.Error(), -1)
	}
	if !toks[0].Is("SELECT") {
		return nil, malformed(sql, "expected SELECT", toks[0].Pos)
	}

	stmt := &Statement{SQL: sql, tokens: toks, fromIdx: -1}
	eof := len(toks) - 1

	// Find FROM and the clause boundaries that follow it. Keywords inside
	// parentheses belong to nested statements or expressions.
	var bounds []int
	depth := 0
	for i := 1; i < eof; i++ {
		t := toks[i]
		switch {
		case t.Is("("):
			depth++
		case t.Is(")"):
			depth--
			if depth < 0 {
				return nil, malformed(sql, "unbalanced ')'", t.Pos)
			}
		case depth != 0 || stmt.Compound:
			// nested or past the first branch of a compound statement
		case t.Is("FROM") && stmt.fromIdx < 0:
			stmt.fromIdx = i
		case stmt.fromIdx < 0:
			// still in the select list
		case t.Type == Keyword && setOperators[t.Val]:
			stmt.Compound = true
			bounds = append(bounds, i)
		case (t.Type == Keyword && clauseKeywords[t.Val]) || t.Is(";"):
			bounds = append(bounds, i)
		}
	}
	if depth != 0 {
		return nil, malformed(sql, "unbalanced '('", -1)
	}
	if stmt.fromIdx < 0 {
		return nil, malformed(sql, "missing FROM clause", -1)
	}
	bounds = append(bounds, eof)

	sourceEnd := bounds[0]
	if sourceEnd == stmt.fromIdx+1 {
		return nil, malformed(sql, "missing source after FROM", toks[sourceEnd].Pos)
	}

clauses:
	for k := 0; k < len(bounds)-1; k++ {
		b := bounds[k]
		sp := span{start: b, end: bounds[k+1]}
		switch {
		case toks[b].Is("WHERE") && !stmt.hasWhere:
			if sp.end == sp.start+1 {
				return nil, malformed(sql, "empty WHERE clause", toks[b].Pos)
			}
			stmt.hasWhere = true
			stmt.where = sp
		case toks[b].Is("LIMIT") || toks[b].Is("OFFSET") || toks[b].Is("FETCH"):
			stmt.limits = append(stmt.limits, sp)
		case toks[b].Type == Keyword && setOperators[toks[b].Val]:
			break clauses // the rest belongs to the next branch
		}
	}

	if err := stmt.parseProjection(toks[1:stmt.fromIdx]); err != nil {
		return nil, err
	}

	sources, err := parseSources(sql, toks[stmt.fromIdx+1:sourceEnd])
	if err != nil {
		return nil, err
	}
	stmt.Sources = sources

	return stmt, nil
}

// HasFilter reports whether the statement has a top-level WHERE clause.
func (s *Statement) HasFilter() bool {
	return s.hasWhere
}

// Filter returns the text of the top-level WHERE condition, or "".
func (s *Statement) Filter() string {
	if !s.hasWhere {
		return ""
	}
	from := s.tokens[s.where.start].End
	to := s.tokens[s.where.end].Pos
	return strings.TrimSpace(s.SQL[from:to])
}

// FilterTokens returns the tokens of the top-level WHERE condition followed
// by an EOF token. It returns nil when there is no filter.
func (s *Statement) FilterTokens() []Token {
	if !s.hasWhere {
		return nil
	}
	body := s.tokens[s.where.start+1 : s.where.end]
	out := make([]Token, 0, len(body)+1)
	out = append(out, body...)
	end := s.tokens[s.where.end].Pos
	return append(out, Token{Type: EOF, Pos: end, End: end})
}

// Placeholders returns the number of '?' placeholders in the statement.
func (s *Statement) Placeholders() int {
	n := 0
	for _, t := range s.tokens {
		if t.Type == Param {
			n++
		}
	}
	return n
}

// HasLimit reports whether the statement has LIMIT, OFFSET or FETCH.
func (s *Statement) HasLimit() bool {
	return len(s.limits) > 0
}

// StripFilter returns the statement without its top-level WHERE clause.
func (s *Statement) StripFilter() string {
	return s.Rewrite(RewriteOptions{DropFilter: true}).SQL
}

// StripFilter removes the outermost WHERE clause of a SELECT statement,
// leaving the projection, the source clause (including filters of nested
// sub-selects) and any trailing clauses intact.
//
// A statement without a filter comes back unchanged.
func StripFilter(sql string) (string, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return "", err
	}
	return stmt.StripFilter(), nil
}

// RewriteOptions selects the edits Rewrite applies.
type RewriteOptions struct {
	// DropFilter removes the top-level WHERE clause.
	DropFilter bool

	// DropLimit removes LIMIT, OFFSET and FETCH clauses.
	DropLimit bool

	// Extra expressions are appended to the select list, in order.
	Extra []string
}

// Rewritten is the output of Rewrite.
type Rewritten struct {
	// SQL is the rewritten statement.
	SQL string

	// Params lists the ordinals of the original '?' placeholders that
	// survive in SQL, in order.
	Params []int
}

type edit struct {
	from, to int // byte range replaced
	text     string
	cut      bool
}

// Rewrite applies the selected edits to the statement text. Text outside
// the edited ranges is copied verbatim.
func (s *Statement) Rewrite(opts RewriteOptions) Rewritten {
	var edits []edit
	var dropped []span

	if len(opts.Extra) > 0 {
		at := s.tokens[s.fromIdx-1].End
		edits = append(edits, edit{from: at, to: at, text: ", " + strings.Join(opts.Extra, ", ")})
	}
	if opts.DropFilter && s.hasWhere {
		dropped = append(dropped, s.where)
	}
	if opts.DropLimit {
		dropped = append(dropped, s.limits...)
	}
	for _, sp := range dropped {
		edits = append(edits, edit{from: s.tokens[sp.start].Pos, to: s.tokens[sp.end].Pos, cut: true})
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].from < edits[j].from })

	out := ""
	cursor := 0
	for _, e := range edits {
		out += s.SQL[cursor:e.from]
		if e.cut {
			out = strings.TrimRight(out, " \t\r\n")
			if rest := s.SQL[e.to:]; rest != "" && rest[0] != ';' && rest[0] != ')' {
				out += " "
			}
		} else {
			out += e.text
		}
		cursor = e.to
	}
	out += s.SQL[cursor:]

	var params []int
	for i, t := range s.tokens {
		if t.Type == Param && !inSpans(i, dropped) {
			params = append(params, t.Ordinal)
		}
	}

	return Rewritten{SQL: strings.TrimSpace(out), Params: params}
}

func inSpans(i int, spans []span) bool {
	for _, sp := range spans {
		if i >= sp.start && i < sp.end {
			return true
		}
	}
	return false
}

func (s *Statement) parseProjection(toks []Token) error {
	if len(toks) > 0 && (toks[0].Is("DISTINCT") || toks[0].Is("ALL")) {
		s.Distinct = toks[0].Is("DISTINCT")
		toks = toks[1:]
	}
	if len(toks) == 0 {
		return malformed(s.SQL, "empty select list", s.tokens[s.fromIdx].Pos)
	}

	for _, part := range splitTopLevel(toks) {
		if len(part) == 0 {
			return malformed(s.SQL, "empty select list item", -1)
		}
		item, err := parseSelectItem(s.SQL, part)
		if err != nil {
			return err
		}
		s.Projection = append(s.Projection, item)
	}
	return nil
}

// aliasable reports whether a token may directly precede an implicit alias
// (an alias written without AS).
func aliasable(t Token) bool {
	switch t.Type {
	case Ident, Number, String, Param:
		return true
	case Symbol:
		return t.Val == ")"
	case Keyword:
		return t.Val == "NULL" || t.Val == "TRUE" || t.Val == "FALSE" || t.Val == "END"
	default:
		return false
	}
}

func parseSelectItem(sql string, toks []Token) (SelectItem, error) {
	var item SelectItem
	n := len(toks)
	if n >= 2 {
		last, prev := toks[n-1], toks[n-2]
		switch {
		case prev.Is("AS") && (last.Type == Ident || last.Type == String):
			item.Alias = last.Val
			toks = toks[:n-2]
		case last.Type == Ident && aliasable(prev):
			item.Alias = last.Val
			toks = toks[:n-1]
		}
	}
	if len(toks) == 0 {
		return item, malformed(sql, "select list item has no expression", -1)
	}
	item.Text = sql[toks[0].Pos:toks[len(toks)-1].End]

	switch {
	case len(toks) == 1 && toks[0].Is("*"):
		item.Star = true
	case len(toks) == 3 && toks[0].Type == Ident && toks[1].Is(".") && toks[2].Is("*"):
		item.Star = true
		item.Qualifier = toks[0].Val
	case len(toks) == 1 && toks[0].Type == Ident:
		item.Column = toks[0].Val
	case isDottedName(toks):
		item.Qualifier = toks[len(toks)-3].Val
		item.Column = toks[len(toks)-1].Val
	default:
		if v, ok := literalOf(toks); ok {
			item.Literal = v
		}
	}
	return item, nil
}

// isDottedName matches a.b and s.a.b.
func isDottedName(toks []Token) bool {
	if len(toks) != 3 && len(toks) != 5 {
		return false
	}
	for i, t := range toks {
		if i%2 == 0 && t.Type != Ident {
			return false
		}
		if i%2 == 1 && !t.Is(".") {
			return false
		}
	}
	return true
}

// literalOf recognizes a constant select list expression.
func literalOf(toks []Token) (ir.Value, bool) {
	neg := false
	if len(toks) == 2 && toks[0].Is("-") && toks[1].Type == Number {
		neg = true
		toks = toks[1:]
	}
	if len(toks) != 1 {
		return nil, false
	}
	t := toks[0]
	switch {
	case t.Type == Number:
		v, err := ir.ParseNumber(t.Val)
		if err != nil {
			return nil, false
		}
		if neg {
			switch n := v.(type) {
			case ir.Int:
				return -n, true
			case ir.Float:
				return -n, true
			}
		}
		return v, true
	case t.Type == String:
		return ir.NewString(t.Val), true
	case t.Is("NULL"):
		return ir.Null{}, true
	case t.Is("TRUE"):
		return ir.Bool(true), true
	case t.Is("FALSE"):
		return ir.Bool(false), true
	default:
		return nil, false
	}
}

// splitTopLevel splits tokens on commas that are not nested in parentheses.
func splitTopLevel(toks []Token) [][]Token {
	var parts [][]Token
	depth, start := 0, 0
	for i, t := range toks {
		switch {
		case t.Is("("):
			depth++
		case t.Is(")"):
			depth--
		case depth == 0 && t.Is(","):
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}

// matchParen returns the index of the ')' closing the '(' at open, or -1.
func matchParen(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].Is("("):
			depth++
		case toks[i].Is(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var joinWords = map[string]bool{
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "CROSS": true, "NATURAL": true, "OUTER": true,
}

// readJoin reads a join keyword sequence starting at i and returns it in
// normalized form together with the index after JOIN.
func readJoin(toks []Token, i int) (string, int, bool) {
	var words []string
	for i < len(toks) && toks[i].Type == Keyword && joinWords[toks[i].Val] {
		words = append(words, toks[i].Val)
		i++
		if words[len(words)-1] == "JOIN" {
			return strings.Join(words, " "), i, true
		}
	}
	return "", i, false
}

func parseSources(sql string, toks []Token) ([]Source, error) {
	var sources []Source
	join := ""
	i := 0
	for {
		if i >= len(toks) {
			return nil, malformed(sql, "missing source after "+join, -1)
		}
		src := Source{Join: join}
		t := toks[i]
		switch {
		case t.Is("("):
			closing := matchParen(toks, i)
			if closing < 0 {
				return nil, malformed(sql, "unbalanced '(' in FROM clause", t.Pos)
			}
			if closing > i+1 && toks[i+1].Is("SELECT") {
				sub, err := Parse(sql[t.End:toks[closing].Pos])
				if err != nil {
					return nil, err
				}
				src.Subquery = sub
			} else {
				src.Table = sql[t.Pos:toks[closing].End]
			}
			i = closing + 1
		case t.Type == Ident:
			name := t.Val
			for i+2 < len(toks) && toks[i+1].Is(".") && toks[i+2].Type == Ident {
				name += "." + toks[i+2].Val
				i += 2
			}
			i++
			if i < len(toks) && toks[i].Is("(") {
				// table-valued function call
				closing := matchParen(toks, i)
				if closing < 0 {
					return nil, malformed(sql, "unbalanced '(' in FROM clause", toks[i].Pos)
				}
				name = sql[t.Pos:toks[closing].End]
				i = closing + 1
			}
			src.Table = name
		default:
			return nil, malformed(sql, "expected table name or sub-select in FROM clause", t.Pos)
		}

		if i < len(toks) && toks[i].Is("AS") {
			if i+1 >= len(toks) || toks[i+1].Type != Ident {
				return nil, malformed(sql, "expected alias after AS", toks[i].Pos)
			}
			src.Alias = toks[i+1].Val
			i += 2
		} else if i < len(toks) && toks[i].Type == Ident {
			src.Alias = toks[i].Val
			i++
		}

		if i < len(toks) && (toks[i].Is("ON") || toks[i].Is("USING")) {
			start := i + 1
			i = skipJoinCondition(toks, start)
			if i == start {
				return nil, malformed(sql, "empty join condition", toks[start-1].Pos)
			}
			src.On = sql[toks[start].Pos:toks[i-1].End]
		}

		sources = append(sources, src)

		if i >= len(toks) {
			return sources, nil
		}
		if toks[i].Is(",") {
			join = ","
			i++
			continue
		}
		kw, next, ok := readJoin(toks, i)
		if !ok {
			return nil, malformed(sql, "unexpected "+toks[i].Val+" in FROM clause", toks[i].Pos)
		}
		join = kw
		i = next
	}
}

// skipJoinCondition returns the index of the first token after a join
// condition that starts at i.
func skipJoinCondition(toks []Token, i int) int {
	depth := 0
	for ; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Is("("):
			depth++
		case t.Is(")"):
			depth--
		case depth == 0 && t.Is(","):
			return i
		case depth == 0 && t.Type == Keyword && joinWords[t.Val] && t.Val != "OUTER":
			return i
		}
	}
	return i
}
