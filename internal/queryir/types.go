package queryir

import "github.com/roach88/sqlheur/internal/ir"

// Predicate is a node of a filter predicate tree.
//
// This is a sealed interface - only types in this package implement it.
// The node set is closed so evaluators and compilers can dispatch with one
// exhaustive type switch:
//
//	switch p := pred.(type) {
//	case Comparison:
//	case And:
//	case Or:
//	case Not:
//	case True:
//	}
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Operand is one side of a Comparison.
//
// This is a sealed interface: ColumnRef or Literal.
type Operand interface {
	operandNode()
}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="

	// OpIs and OpIsNot are the null-safe equality of IS [NOT] NULL.
	OpIs    Op = "IS"
	OpIsNot Op = "IS NOT"
)

// Negate returns the operator that holds exactly when op does not.
func (op Op) Negate() Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	case OpIs:
		return OpIsNot
	case OpIsNot:
		return OpIs
	default:
		return op
	}
}

// Flip returns the operator to use when the operands swap sides.
func (op Op) Flip() Op {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op
	}
}

// Holds reports whether op is satisfied by a three-way comparison result
// (negative, zero, positive for left <, =, > right).
func (op Op) Holds(cmp int) bool {
	switch op {
	case OpEq, OpIs:
		return cmp == 0
	case OpNe, OpIsNot:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// Comparison compares two operands.
//
// OpIs and OpIsNot treat two nulls as equal. Any other comparison involving
// a null value does not hold, and neither does its negation: x = NULL and
// x <> NULL never hold.
type Comparison struct {
	Left  Operand
	Op    Op
	Right Operand
}

func (Comparison) predicateNode() {}

// And holds when both sides hold.
type And struct {
	Left  Predicate
	Right Predicate
}

func (And) predicateNode() {}

// Or holds when either side holds.
type Or struct {
	Left  Predicate
	Right Predicate
}

func (Or) predicateNode() {}

// Not holds when Inner does not.
//
// Build pushes negation down into comparisons, so a Not produced by the
// builder only ever wraps True (a FALSE filter).
type Not struct {
	Inner Predicate
}

func (Not) predicateNode() {}

// True always holds. It is the predicate of a statement without a filter.
type True struct{}

func (True) predicateNode() {}

// ColumnRef references a column as written in the filter.
//
// Label is the result-set column that carries the referenced value. Build
// fills it in from the alias table; Bind rewrites it to the exact column
// name of a concrete result.
type ColumnRef struct {
	Qualifier string
	Name      string
	Label     string
}

func (ColumnRef) operandNode() {}

// Literal is a constant operand. Placeholders are bound to literals when the
// predicate is built.
type Literal struct {
	Value ir.Value
}

func (Literal) operandNode() {}

// Query is a statement over an already-executed candidate query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Select reads the rows of From that satisfy Filter.
//
// From is executable SQL (usually a candidate query) and is wrapped as a
// derived table; FromArgs are its positional arguments. An empty Columns
// list selects every column.
type Select struct {
	From     string
	FromArgs []any
	Columns  []string
	Filter   Predicate
}

func (Select) queryNode() {}

// Count counts the rows of From that satisfy Filter.
type Count struct {
	From     string
	FromArgs []any
	Filter   Predicate
}

func (Count) queryNode() {}
