package heuristic

import (
	"log/slog"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/queryir"
	"github.com/roach88/sqlheur/internal/sqltext"
)

// ComputeDistance scores how close result comes to satisfying the filter of
// sql. result is expected to hold the rows of the candidate query of sql
// (see queryir.Prepare); args are the arguments sql was executed with.
//
// ComputeDistance never fails. Queries that cannot be scored (malformed
// text, unsupported filters, columns missing from result) are logged and
// score FallbackDistance.
func ComputeDistance(sql string, result *ir.QueryResult, args ...any) float64 {
	d, err := Evaluate(sql, result, args...)
	if err != nil {
		slog.Warn("sql heuristic fallback",
			"sql", sql,
			"error", err,
			"distance", FallbackDistance)
		return FallbackDistance
	}
	return d
}

// Evaluate is ComputeDistance with the failure reported instead of
// replaced by FallbackDistance. The error is a *sqltext.MalformedQueryError,
// a *queryir.UnsupportedPredicateError or a *queryir.ResolutionError.
func Evaluate(sql string, result *ir.QueryResult, args ...any) (float64, error) {
	stmt, err := sqltext.Parse(sql)
	if err != nil {
		return FallbackDistance, err
	}

	values := make([]ir.Value, len(args))
	for i, a := range args {
		values[i] = ir.Of(a)
	}
	pred, err := queryir.Build(stmt, queryir.NewAliasTable(stmt), values...)
	if err != nil {
		return FallbackDistance, err
	}
	return EvaluatePredicate(pred, result)
}

// EvaluatePredicate binds pred to the columns of result and returns the
// query distance.
func EvaluatePredicate(pred queryir.Predicate, result *ir.QueryResult) (float64, error) {
	if result == nil || result.IsEmpty() {
		return EmptyTableDistance, nil
	}
	bound, err := queryir.Bind(pred, result.Columns())
	if err != nil {
		return FallbackDistance, err
	}
	return QueryDistance(bound, result), nil
}
