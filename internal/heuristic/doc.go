// Package heuristic scores how close a result set comes to satisfying the
// filter of a SELECT statement.
//
// The score is a branch distance: a nonnegative number that is exactly zero
// when some row satisfies the filter and shrinks as rows move toward
// satisfying it. A search algorithm minimizes it.
//
// DISTANCE MODEL:
//
//	Comparison   raw gap, |v-k| for numbers (plus Epsilon on a strict bound)
//	And(l, r)    l + r
//	Or(l, r)     min(l, r)
//	Not(inner)   0 if inner > 0, else NotDistance
//	True         0
//
// Distances are never rescaled, so two gaps float64 can tell apart always
// score differently. RowDistance caps a row at MaxRowDistance, QueryDistance
// takes the minimum over rows, and an empty result scores
// EmptyTableDistance, which exceeds every row distance.
//
// Everything in this package except ComputeDistance is a pure function of
// its inputs and safe for concurrent use.
package heuristic
