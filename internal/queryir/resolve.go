package queryir

import "strings"

// Bind resolves every column reference of p against the columns of a
// concrete result set, rewriting labels to the exact column names.
//
// Labels match case-insensitively, as SQL identifiers do. A reference
// whose label is missing from columns yields a ResolutionError.
func Bind(p Predicate, columns []string) (Predicate, error) {
	switch pred := p.(type) {
	case nil:
		return True{}, nil
	case Comparison:
		left, err := bindOperand(pred.Left, columns)
		if err != nil {
			return nil, err
		}
		right, err := bindOperand(pred.Right, columns)
		if err != nil {
			return nil, err
		}
		return Comparison{Left: left, Op: pred.Op, Right: right}, nil
	case And:
		left, right, err := bindPair(pred.Left, pred.Right, columns)
		if err != nil {
			return nil, err
		}
		return And{Left: left, Right: right}, nil
	case Or:
		left, right, err := bindPair(pred.Left, pred.Right, columns)
		if err != nil {
			return nil, err
		}
		return Or{Left: left, Right: right}, nil
	case Not:
		inner, err := Bind(pred.Inner, columns)
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	default:
		return p, nil
	}
}

func bindPair(l, r Predicate, columns []string) (Predicate, Predicate, error) {
	left, err := Bind(l, columns)
	if err != nil {
		return nil, nil, err
	}
	right, err := Bind(r, columns)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func bindOperand(o Operand, columns []string) (Operand, error) {
	ref, ok := o.(ColumnRef)
	if !ok {
		return o, nil
	}
	label := ref.Label
	if label == "" {
		label = ref.Name
	}
	for _, c := range columns {
		if strings.EqualFold(c, label) {
			ref.Label = c
			return ref, nil
		}
	}
	return nil, &ResolutionError{Ref: ref, Columns: columns}
}

// Columns returns the distinct column references of p in first-use order.
func Columns(p Predicate) []ColumnRef {
	var out []ColumnRef
	seen := make(map[string]bool)
	var walk func(Predicate)
	add := func(o Operand) {
		ref, ok := o.(ColumnRef)
		if !ok {
			return
		}
		key := strings.ToLower(ref.Qualifier + "." + ref.Name)
		if !seen[key] {
			seen[key] = true
			out = append(out, ref)
		}
	}
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Comparison:
			add(pred.Left)
			add(pred.Right)
		case And:
			walk(pred.Left)
			walk(pred.Right)
		case Or:
			walk(pred.Left)
			walk(pred.Right)
		case Not:
			walk(pred.Inner)
		}
	}
	walk(p)
	return out
}
