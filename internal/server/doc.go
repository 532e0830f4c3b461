// Package server exposes the heuristic list over HTTP.
//
// Endpoints:
//
//	GET    /controller/api/extraHeuristics  {"toMinimize": [...]} in append order
//	DELETE /controller/api/extraHeuristics  clears the list (204)
//	GET    /controller/api/observations     recorded observations, optionally ?epoch=N
//	POST   /controller/api/queries          score an intercepted query {"sql", "args"}
//	GET    /metrics                         Prometheus metrics
//
// The server owns no heuristic state. It reads and resets the
// engine.Accumulator it is given, reads observations from the store, and
// hands submitted queries to an engine.Observer.
package server
