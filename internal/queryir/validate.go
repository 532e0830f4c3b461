package queryir

import (
	"fmt"
)

// ValidationResult contains a gradient analysis of a predicate.
//
// Some predicate shapes are scored correctly (zero exactly when satisfied)
// but give the search no slope to follow: their distance jumps from a fixed
// penalty straight to zero. Validate reports them so the explain command can
// point them out.
type ValidationResult struct {
	// Continuous is true when every leaf of the predicate has a distance
	// that shrinks as the row approaches satisfying it.
	Continuous bool

	// Warnings lists the leaves without a gradient.
	// Empty when Continuous is true.
	Warnings []string
}

// Validate checks a predicate for leaves whose distance has no gradient.
//
// Flat leaves:
//  1. Null checks (IS NULL, IS NOT NULL) - fixed penalty when violated
//  2. Inequality (<>) - epsilon when violated
//  3. Constant comparisons and constant FALSE - cannot be influenced by data
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validatePredicate(p)

	return ValidationResult{
		Continuous: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil, True:
		// always satisfied
	case Comparison:
		v.validateComparison(pred)
	case And:
		v.validatePredicate(pred.Left)
		v.validatePredicate(pred.Right)
	case Or:
		v.validatePredicate(pred.Left)
		v.validatePredicate(pred.Right)
	case Not:
		if _, ok := pred.Inner.(True); ok {
			v.addWarning("Constant FALSE filter - no row can satisfy it")
			return
		}
		v.addWarning("Negation of %s - distance is a fixed penalty when violated", Format(pred.Inner))
	default:
		v.addWarning("Unknown predicate type: %T - distance cannot be analyzed", p)
	}
}

// validateComparison validates a single comparison leaf.
func (v *validator) validateComparison(c Comparison) {
	_, leftCol := c.Left.(ColumnRef)
	_, rightCol := c.Right.(ColumnRef)
	if !leftCol && !rightCol {
		v.addWarning("Constant comparison %s - result does not depend on data", formatComparison(c))
		return
	}

	if c.Op == OpIs || c.Op == OpIsNot {
		v.addWarning("Null check %s - distance is a fixed penalty when violated", formatComparison(c))
		return
	}

	if lit, ok := c.Right.(Literal); ok && isNullLiteral(lit) {
		v.addWarning("Comparison with NULL %s - never holds", formatComparison(c))
		return
	}

	if c.Op == OpNe {
		v.addWarning("Inequality %s - distance is epsilon when violated", formatComparison(c))
	}
}
