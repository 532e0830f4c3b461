// Package store provides SQLite-backed storage for scored query
// observations, and the SQLite plumbing shared with the databases being
// observed.
//
// The store implements an append-only log of observations. Each row
// records the query as issued, its arguments, the candidate query that was
// executed in its place, and the distance it scored.
//
// # Critical Patterns
//
// Logical ordering:
//   - Observations are ordered by seq INTEGER (logical clock), never by
//     wall time
//   - All queries include: ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Epochs:
//   - Every observation carries the accumulator epoch it was appended in
//   - A reset of the heuristic list starts a new epoch; rows from older
//     epochs stay in the log
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// OpenDB applies the same configuration to a database without the
// observation schema, such as the system under test.
package store
