// Package queryir provides the predicate tree a SQL filter is lowered into,
// together with the alias resolution and candidate-query derivation that the
// distance evaluator depends on.
//
// ARCHITECTURE:
//
//	[SQL text] → sqltext.Parse → [Statement]
//	                               ├─ NewAliasTable → [AliasTable]
//	                               └─ Build ────────→ [Predicate] → Bind → evaluator
//	                                                             → querysql (SQL rendering)
//
// Build runs on the original statement; the rows it is evaluated against
// come from the candidate query (Prepare), which is the same statement with
// its top-level filter and row limits removed and any filter column that the
// projection hides added back to the select list.
//
// SEALED INTERFACES:
//
// Predicate, Operand and Query are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so consumers handle
// the whole node set with one exhaustive type switch.
//
// Predicate nodes:
//   - Comparison(left, op, right) - op is one of = <> < <= > >=
//   - And(left, right), Or(left, right)
//   - Not(inner) - only over True after Build pushes negation down
//   - True - the filter of an unfiltered statement
//
// LOWERING:
//
// The SQL surface is lowered onto the node set above:
//
//	x IS NULL            → x = NULL
//	x IS NOT NULL        → x <> NULL
//	x BETWEEN a AND b    → x >= a AND x <= b
//	x IN (a, b)          → x = a OR x = b
//	NOT (x < 5 AND y=1)  → x >= 5 OR y <> 1
//	5 < x                → x > 5
//	x != 5               → x <> 5
//
// ALIAS RESOLUTION:
//
// A filter may reference a column by the alias the projection gives it
// (select t.a as x ... where x > 3), by qualified name (t.a), through a
// derived table ((select ...) t), or through a star. The AliasTable maps
// each reference to the result-set label that carries its value, once per
// statement. References the projection does not expose get a widened label
// (__t__a) that the candidate query projects explicitly.
package queryir
