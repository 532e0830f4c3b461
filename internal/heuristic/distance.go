package heuristic

import (
	"math"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/queryir"
)

const (
	// Epsilon is added to the raw distance of a strict inequality that fails
	// at its boundary, so that x < 5 is not scored as satisfied by x = 5.
	Epsilon = 1e-3

	// NullDistance is the leaf distance of a comparison that fails because
	// of a null value, or a null check that fails.
	NullDistance = 1.0

	// NotDistance is the distance of a Not whose inner predicate holds.
	NotDistance = 1.0

	// EmptyTableDistance is the distance of an empty result set. Row
	// distances are capped at MaxRowDistance, so it exceeds every one.
	EmptyTableDistance = math.MaxFloat64

	// MaxRowDistance caps a row distance that overflows or is undefined.
	MaxRowDistance = math.MaxFloat64 / 2

	// FallbackDistance is returned when a query cannot be scored: its
	// filter is unsupported, a column cannot be resolved, or the text is not
	// a SELECT at all.
	FallbackDistance = 1.0
)

// QueryDistance returns the minimum row distance over result, or
// EmptyTableDistance when result has no rows.
//
// Column references in pred are read by label; run queryir.Bind first to
// match labels to the result's columns. A label missing from a row reads as
// null.
func QueryDistance(pred queryir.Predicate, result *ir.QueryResult) float64 {
	if result == nil || result.IsEmpty() {
		return EmptyTableDistance
	}

	best := math.Inf(1)
	for _, row := range result.Rows() {
		d := RowDistance(pred, row)
		if d < best {
			best = d
		}
		if best == 0 {
			break
		}
	}
	return best
}

// RowDistance returns the distance of one row from satisfying pred, in
// [0, MaxRowDistance]. It is zero exactly when the row satisfies pred.
//
// Distances are not rescaled, so gaps stay exact as long as float64 can
// hold them.
func RowDistance(pred queryir.Predicate, row ir.DataRow) float64 {
	d := distance(pred, row)
	if math.IsNaN(d) || d > MaxRowDistance {
		return MaxRowDistance
	}
	return d
}

// distance evaluates the predicate tree over raw leaf distances.
func distance(pred queryir.Predicate, row ir.DataRow) float64 {
	switch p := pred.(type) {
	case nil:
		return 0
	case queryir.True:
		return 0
	case queryir.Comparison:
		return comparisonDistance(p, row)
	case queryir.And:
		return distance(p.Left, row) + distance(p.Right, row)
	case queryir.Or:
		return math.Min(distance(p.Left, row), distance(p.Right, row))
	case queryir.Not:
		if distance(p.Inner, row) > 0 {
			return 0
		}
		return NotDistance
	default:
		return FallbackDistance
	}
}

func operandValue(o queryir.Operand, row ir.DataRow) ir.Value {
	switch op := o.(type) {
	case queryir.Literal:
		if op.Value == nil {
			return ir.Null{}
		}
		return op.Value
	case queryir.ColumnRef:
		label := op.Label
		if label == "" {
			label = op.Name
		}
		if v, ok := row.Get(label); ok {
			return v
		}
		return ir.Null{}
	default:
		return ir.Null{}
	}
}

func comparisonDistance(c queryir.Comparison, row ir.DataRow) float64 {
	left := operandValue(c.Left, row)
	right := operandValue(c.Right, row)

	if c.Op == queryir.OpIs || c.Op == queryir.OpIsNot {
		return nullSafeDistance(left, c.Op, right)
	}
	if ir.IsNull(left) || ir.IsNull(right) {
		return NullDistance
	}

	return valueDistance(left, c.Op, right)
}

// nullSafeDistance scores IS and IS NOT, under which two nulls are equal and
// a null differs from every other value.
func nullSafeDistance(left ir.Value, op queryir.Op, right ir.Value) float64 {
	leftNull, rightNull := ir.IsNull(left), ir.IsNull(right)
	if leftNull || rightNull {
		cmp := 0
		if leftNull != rightNull {
			cmp = 1
		}
		if op.Holds(cmp) {
			return 0
		}
		return NullDistance
	}
	if op == queryir.OpIs {
		return valueDistance(left, queryir.OpEq, right)
	}
	return valueDistance(left, queryir.OpNe, right)
}

// valueDistance returns the raw distance of left op right.
//
// Two texts always compare as text. Text is read as a number only when the
// other side is numeric and the text parses as a finite decimal; otherwise
// the number orders before the text, as in SQLite.
func valueDistance(left ir.Value, op queryir.Op, right ir.Value) float64 {
	if a, ok := left.(ir.Int); ok {
		if b, ok := right.(ir.Int); ok {
			return intDistance(a, op, b)
		}
	}

	leftNum, rightNum := isNumeric(left), isNumeric(right)
	if !leftNum && !rightNum {
		return textDistance(ir.Text(left), op, ir.Text(right))
	}
	if a, aok := ir.AsFloat(left); aok {
		if b, bok := ir.AsFloat(right); bok {
			return numericDistance(a, op, b)
		}
	}

	cmp := -1
	if rightNum {
		cmp = 1
	}
	gap := math.Max(StringDistance(ir.Text(left), ir.Text(right)), 1)
	return branchDistance(op, cmp, gap)
}

func isNumeric(v ir.Value) bool {
	switch ir.KindOf(v) {
	case ir.KindInt, ir.KindFloat, ir.KindBool:
		return true
	default:
		return false
	}
}

// numericDistance implements the branch distance of a numeric comparison.
func numericDistance(v float64, op queryir.Op, k float64) float64 {
	if math.IsNaN(v) || math.IsNaN(k) {
		return math.Inf(1)
	}
	cmp := 0
	switch {
	case v < k:
		cmp = -1
	case v > k:
		cmp = 1
	}
	return branchDistance(op, cmp, math.Abs(v-k))
}

// intDistance compares integers exactly. The gap is taken in integer
// arithmetic when it fits in an int64, and distinct integers are always at
// least 1 apart.
func intDistance(v ir.Int, op queryir.Op, k ir.Int) float64 {
	cmp := 0
	switch {
	case v < k:
		cmp = -1
	case v > k:
		cmp = 1
	}
	var gap float64
	lo, hi := min(v, k), max(v, k)
	if diff := hi - lo; diff >= 0 {
		gap = float64(diff)
	} else {
		// overflowed
		gap = float64(hi) - float64(lo)
	}
	if cmp != 0 && gap < 1 {
		gap = 1
	}
	return branchDistance(op, cmp, gap)
}

// branchDistance scores op given the three-way comparison of the operands
// and the gap between them. gap must be positive whenever cmp is nonzero.
//
//	=       gap
//	<>      Epsilon when equal
//	< >     gap + Epsilon
//	<= >=   gap
func branchDistance(op queryir.Op, cmp int, gap float64) float64 {
	if op.Holds(cmp) {
		return 0
	}
	switch op {
	case queryir.OpNe:
		return Epsilon
	case queryir.OpLt, queryir.OpGt:
		return gap + Epsilon
	default:
		return gap
	}
}
