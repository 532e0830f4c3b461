package queryir

import (
	"fmt"
	"strings"
)

// String renders the reference as written in SQL.
func (c ColumnRef) String() string {
	if c.Qualifier != "" {
		return c.Qualifier + "." + c.Name
	}
	return c.Name
}

// String renders the literal as SQL.
func (l Literal) String() string {
	if l.Value == nil {
		return "NULL"
	}
	return l.Value.SQL()
}

// Format renders a predicate tree as a fully parenthesized SQL condition
// with literals inlined. It is meant for logs and diagnostics; querysql
// produces the executable, parameterized form.
func Format(p Predicate) string {
	var b strings.Builder
	format(&b, p)
	return b.String()
}

func format(b *strings.Builder, p Predicate) {
	switch pred := p.(type) {
	case nil:
		b.WriteString("TRUE")
	case True:
		b.WriteString("TRUE")
	case Comparison:
		b.WriteString(formatComparison(pred))
	case And:
		b.WriteString("(")
		format(b, pred.Left)
		b.WriteString(" AND ")
		format(b, pred.Right)
		b.WriteString(")")
	case Or:
		b.WriteString("(")
		format(b, pred.Left)
		b.WriteString(" OR ")
		format(b, pred.Right)
		b.WriteString(")")
	case Not:
		b.WriteString("NOT ")
		format(b, pred.Inner)
	default:
		fmt.Fprintf(b, "<%T>", p)
	}
}

func formatComparison(c Comparison) string {
	if lit, ok := c.Right.(Literal); ok && isNullLiteral(lit) {
		switch c.Op {
		case OpIs:
			return formatOperand(c.Left) + " IS NULL"
		case OpIsNot:
			return formatOperand(c.Left) + " IS NOT NULL"
		}
	}
	return formatOperand(c.Left) + " " + string(c.Op) + " " + formatOperand(c.Right)
}

func formatOperand(o Operand) string {
	switch op := o.(type) {
	case ColumnRef:
		return op.String()
	case Literal:
		return op.String()
	default:
		return fmt.Sprintf("<%T>", o)
	}
}
