// Package engine turns intercepted SQL into heuristic values.
//
// ARCHITECTURE:
//
// Observation Flow:
// 1. A filtering SELECT reaches Observer.Observe (directly, or through
// InstrumentedDB before the query itself runs)
// 2. queryir.Prepare derives the candidate query: no filter, no row limit,
// hidden filter columns projected
// 3. The candidate runs against the same database and its rows are scanned
// into an ir.QueryResult
// 4. heuristic.EvaluatePredicate scores the original filter over those rows
// 5. The distance is appended to the Accumulator and the observation is
// recorded and reported to sinks
//
// Observation never fails the query being observed. Errors are logged with
// the query text and, where the query could not be scored, the fallback
// distance is appended instead.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every observation is stamped with a monotonic seq from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Reset Wins:
// The Accumulator is split into epochs. Reset starts a new epoch, and an
// observation that started before a reset is not appended after it, so a
// snapshot never mixes values from two test cases.
package engine
