package queryir

import (
	"fmt"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/sqltext"
)

// Build converts the top-level filter of stmt into a predicate tree.
//
// Column references are labelled through aliases so that the evaluator can
// read their values from a row keyed by result column names. Placeholders
// bind positionally to args. A statement without a filter yields True.
//
// Supported grammar: comparisons (= <> != < <= > >=) between columns and
// integer, float, text, boolean or NULL literals; IS [NOT] NULL;
// [NOT] BETWEEN; [NOT] IN with a literal list; AND, OR, NOT and
// parentheses. Anything else yields an UnsupportedPredicateError.
func Build(stmt *sqltext.Statement, aliases *AliasTable, args ...ir.Value) (Predicate, error) {
	toks := stmt.FilterTokens()
	if toks == nil {
		return True{}, nil
	}

	p := &parser{filter: stmt.Filter(), toks: toks, aliases: aliases, args: args}
	pred, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != sqltext.EOF {
		return nil, p.unsupported(p.peek(), "unexpected "+describe(p.peek()))
	}
	return pred, nil
}

type parser struct {
	filter  string
	toks    []sqltext.Token
	pos     int
	aliases *AliasTable
	args    []ir.Value
}

func (p *parser) peek() sqltext.Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) sqltext.Token {
	if p.pos+off >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+off]
}

func (p *parser) next() sqltext.Token {
	t := p.toks[p.pos]
	if t.Type != sqltext.EOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(val string) bool {
	if p.peek().Is(val) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(val string) error {
	if !p.accept(val) {
		return p.unsupported(p.peek(), fmt.Sprintf("expected %s, found %s", val, describe(p.peek())))
	}
	return nil
}

func (p *parser) unsupported(at sqltext.Token, construct string) *UnsupportedPredicateError {
	return &UnsupportedPredicateError{Filter: p.filter, Construct: construct, Offset: at.Pos}
}

func (p *parser) or() (Predicate, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) and() (Predicate, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.accept("AND") {
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) not() (Predicate, error) {
	if p.accept("NOT") {
		inner, err := p.not()
		if err != nil {
			return nil, err
		}
		return Negate(inner), nil
	}
	return p.primary()
}

func (p *parser) primary() (Predicate, error) {
	t := p.peek()

	switch {
	case t.Is("EXISTS"):
		return nil, p.unsupported(t, "EXISTS sub-query")
	case t.Is("("):
		// Either a parenthesized condition or a parenthesized operand of a
		// comparison, as in (x) = 5. Try the condition first.
		save := p.pos
		p.pos++
		inner, err := p.or()
		if err == nil && p.accept(")") && !startsComparison(p.peek()) {
			return inner, nil
		}
		p.pos = save
	case (t.Is("TRUE") || t.Is("FALSE")) && endsCondition(p.peekAt(1)):
		p.pos++
		if t.Is("TRUE") {
			return True{}, nil
		}
		return Not{Inner: True{}}, nil
	}

	return p.comparison()
}

func (p *parser) comparison() (Predicate, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}

	negated := false
	if p.peek().Is("NOT") {
		switch next := p.peekAt(1); {
		case next.Is("BETWEEN"), next.Is("IN"), next.Is("LIKE"):
			p.pos++
			negated = true
		}
	}

	t := p.peek()
	switch {
	case t.Is("IS"):
		p.pos++
		op := OpIs
		if p.accept("NOT") {
			op = OpIsNot
		}
		if err := p.expect("NULL"); err != nil {
			return nil, err
		}
		return p.compare(left, op, Literal{Value: ir.Null{}}), nil

	case t.Is("BETWEEN"):
		p.pos++
		low, err := p.operand()
		if err != nil {
			return nil, err
		}
		if err := p.expect("AND"); err != nil {
			return nil, err
		}
		high, err := p.operand()
		if err != nil {
			return nil, err
		}
		pred := Predicate(And{Left: p.compare(left, OpGe, low), Right: p.compare(left, OpLe, high)})
		if negated {
			pred = Negate(pred)
		}
		return pred, nil

	case t.Is("IN"):
		p.pos++
		pred, err := p.in(left)
		if err != nil {
			return nil, err
		}
		if negated {
			pred = Negate(pred)
		}
		return pred, nil

	case t.Is("LIKE"):
		return nil, p.unsupported(t, "LIKE")
	}

	op, ok := comparisonOp(t)
	if !ok {
		return nil, p.unsupported(t, "expected comparison operator, found "+describe(t))
	}
	p.pos++

	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	return p.compare(left, op, right), nil
}

func (p *parser) in(left Operand) (Predicate, error) {
	open := p.peek()
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if p.peek().Is("SELECT") {
		return nil, p.unsupported(open, "IN sub-query")
	}

	var pred Predicate
	for {
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		eq := p.compare(left, OpEq, right)
		if pred == nil {
			pred = eq
		} else {
			pred = Or{Left: pred, Right: eq}
		}
		if !p.accept(",") {
			break
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return pred, nil
}

// compare builds a comparison with a column on the left whenever one side
// is a column.
func (p *parser) compare(left Operand, op Op, right Operand) Comparison {
	_, leftLit := left.(Literal)
	_, rightCol := right.(ColumnRef)
	if leftLit && rightCol {
		return Comparison{Left: right, Op: op.Flip(), Right: left}
	}
	return Comparison{Left: left, Op: op, Right: right}
}

func (p *parser) operand() (Operand, error) {
	t := p.peek()

	var out Operand
	switch {
	case t.Is("("):
		if p.peekAt(1).Is("SELECT") {
			return nil, p.unsupported(t, "sub-query")
		}
		p.pos++
		inner, err := p.operand()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		out = inner

	case t.Type == sqltext.Ident:
		ref, err := p.columnRef()
		if err != nil {
			return nil, err
		}
		out = ref

	case t.Type == sqltext.Number:
		p.pos++
		v, err := ir.ParseNumber(t.Val)
		if err != nil {
			return nil, p.unsupported(t, "numeric literal "+t.Val)
		}
		out = Literal{Value: v}

	case (t.Is("-") || t.Is("+")) && p.peekAt(1).Type == sqltext.Number:
		p.pos++
		num := p.next()
		v, err := ir.ParseNumber(num.Val)
		if err != nil {
			return nil, p.unsupported(num, "numeric literal "+num.Val)
		}
		if t.Is("-") {
			v = negateNumber(v)
		}
		out = Literal{Value: v}

	case t.Type == sqltext.String:
		p.pos++
		out = Literal{Value: ir.NewString(t.Val)}

	case t.Is("NULL"):
		p.pos++
		out = Literal{Value: ir.Null{}}

	case t.Is("TRUE"), t.Is("FALSE"):
		p.pos++
		out = Literal{Value: ir.Bool(t.Is("TRUE"))}

	case t.Type == sqltext.Param:
		p.pos++
		if t.Ordinal >= len(p.args) {
			return nil, p.unsupported(t, fmt.Sprintf("unbound placeholder #%d", t.Ordinal+1))
		}
		v := p.args[t.Ordinal]
		if v == nil {
			v = ir.Null{}
		}
		out = Literal{Value: v}

	case t.Is("CASE"):
		return nil, p.unsupported(t, "CASE expression")

	default:
		return nil, p.unsupported(t, "expected column or literal, found "+describe(t))
	}

	if next := p.peek(); isArithmetic(next) {
		return nil, p.unsupported(next, "arithmetic operator "+next.Val)
	}
	return out, nil
}

func (p *parser) columnRef() (ColumnRef, error) {
	start := p.peek()
	parts := []string{p.next().Val}
	for p.peek().Is(".") && p.peekAt(1).Type == sqltext.Ident {
		p.pos++
		parts = append(parts, p.next().Val)
	}
	if p.peek().Is("(") {
		return ColumnRef{}, p.unsupported(start, "function call "+parts[len(parts)-1])
	}
	if p.peek().Is(".") {
		return ColumnRef{}, p.unsupported(p.peek(), "malformed column reference")
	}

	ref := ColumnRef{Name: parts[len(parts)-1]}
	if len(parts) > 1 {
		ref.Qualifier = parts[len(parts)-2]
	}
	if p.aliases != nil {
		ref.Label = p.aliases.Label(ref)
	}
	return ref, nil
}

// Negate returns the predicate that holds exactly when p does not, with the
// negation pushed down to the comparisons (De Morgan).
//
// Comparisons against null values hold neither way under SQL semantics, so
// negating a comparison flips the operator but keeps the null behavior:
// NOT (x < 5) is x >= 5, and neither holds for a null x. IS NULL and
// IS NOT NULL negate into each other.
func Negate(p Predicate) Predicate {
	switch pred := p.(type) {
	case Comparison:
		return Comparison{Left: pred.Left, Op: pred.Op.Negate(), Right: pred.Right}
	case And:
		return Or{Left: Negate(pred.Left), Right: Negate(pred.Right)}
	case Or:
		return And{Left: Negate(pred.Left), Right: Negate(pred.Right)}
	case Not:
		return pred.Inner
	default:
		return Not{Inner: p}
	}
}

func negateNumber(v ir.Value) ir.Value {
	switch n := v.(type) {
	case ir.Int:
		return -n
	case ir.Float:
		return -n
	default:
		return v
	}
}

func isNullLiteral(l Literal) bool {
	return ir.IsNull(l.Value)
}

func comparisonOp(t sqltext.Token) (Op, bool) {
	if t.Type != sqltext.Symbol {
		return "", false
	}
	switch t.Val {
	case "=", "==":
		return OpEq, true
	case "<>", "!=":
		return OpNe, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLe, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGe, true
	default:
		return "", false
	}
}

func startsComparison(t sqltext.Token) bool {
	if _, ok := comparisonOp(t); ok {
		return true
	}
	return t.Is("IS") || t.Is("BETWEEN") || t.Is("IN") || t.Is("LIKE") || t.Is("NOT") || isArithmetic(t)
}

func endsCondition(t sqltext.Token) bool {
	return t.Type == sqltext.EOF || t.Is(")") || t.Is("AND") || t.Is("OR")
}

func isArithmetic(t sqltext.Token) bool {
	if t.Type != sqltext.Symbol {
		return false
	}
	switch t.Val {
	case "+", "-", "*", "/", "%", "||", "::":
		return true
	default:
		return false
	}
}

func describe(t sqltext.Token) string {
	if t.Type == sqltext.EOF {
		return "end of filter"
	}
	return fmt.Sprintf("%s %q", t.Type, t.Val)
}
