package queryir

import (
	"strings"

	"github.com/roach88/sqlheur/internal/sqltext"
)

// AliasTable maps the names a filter may use to the result-set columns that
// carry their values.
//
// It is built once per statement from the projection list and the source
// clause and is immutable afterwards. Derived tables carry the alias table of
// their own sub-select, so references can be traced through any number of
// nesting levels.
type AliasTable struct {
	items   []sqltext.SelectItem
	sources []aliasSource
}

type aliasSource struct {
	name  string
	table string
	sub   *AliasTable
}

// NewAliasTable builds the alias table of a parsed statement.
func NewAliasTable(stmt *sqltext.Statement) *AliasTable {
	a := &AliasTable{items: stmt.Projection}
	for _, src := range stmt.Sources {
		entry := aliasSource{name: src.Name(), table: src.Table}
		if src.Subquery != nil {
			entry.sub = NewAliasTable(src.Subquery)
		}
		a.sources = append(a.sources, entry)
	}
	return a
}

// Lookup returns the result column label that carries the value of ref when
// the projection list exposes it.
//
// Resolution order: a projection alias (t.a AS x, referenced as x), then a
// projected column matching name and qualifier, then a star that covers the
// reference unambiguously.
//
// A label the projection repeats (select a.id, b.id) does not identify one
// result column, so references to it are not exposed.
func (a *AliasTable) Lookup(ref ColumnRef) (string, bool) {
	if ref.Qualifier == "" {
		for _, it := range a.items {
			if it.Alias != "" && strings.EqualFold(it.Alias, ref.Name) {
				if a.repeated(it.Alias) {
					return "", false
				}
				return it.Alias, true
			}
		}
	}

	for _, it := range a.items {
		if it.Column == "" || !strings.EqualFold(it.Column, ref.Name) {
			continue
		}
		if a.sameSource(it.Qualifier, ref.Qualifier) {
			if a.repeated(it.Label()) {
				return "", false
			}
			return it.Label(), true
		}
	}

	stars := 0
	for _, it := range a.items {
		if it.Star {
			stars++
		}
	}
	if stars != 1 {
		return "", false
	}
	for _, it := range a.items {
		if !it.Star {
			continue
		}
		switch {
		case it.Qualifier == "" && (ref.Qualifier == "" ||
			len(a.sources) == 1 && a.sameSource(a.sources[0].name, ref.Qualifier)):
			if !a.exposes(ref.Name) {
				return "", false
			}
			return ref.Name, true
		case it.Qualifier != "" && strings.EqualFold(it.Qualifier, ref.Qualifier):
			src, ok := a.source(it.Qualifier)
			if ok && src.sub != nil && !src.sub.Exposes(ref.Name) {
				return "", false
			}
			return ref.Name, true
		}
	}
	return "", false
}

// repeated reports whether more than one projected item carries label.
func (a *AliasTable) repeated(label string) bool {
	n := 0
	for _, it := range a.items {
		if strings.EqualFold(it.Label(), label) {
			n++
		}
	}
	return n > 1
}

// Label returns the result column label for ref: the projected label when
// the projection exposes it, otherwise the label a candidate query adds for
// it (see WidenedLabel).
func (a *AliasTable) Label(ref ColumnRef) string {
	if label, ok := a.Lookup(ref); ok {
		return label
	}
	return WidenedLabel(ref)
}

// WidenedLabel is the label under which a candidate query projects a
// filter column that the original projection does not expose.
func WidenedLabel(ref ColumnRef) string {
	if ref.Qualifier == "" {
		return "__" + ref.Name
	}
	return "__" + ref.Qualifier + "__" + ref.Name
}

// Exposes reports whether the statement's result has a column called name.
// A star over base tables is assumed to expose any name.
func (a *AliasTable) Exposes(name string) bool {
	for _, it := range a.items {
		if strings.EqualFold(it.Label(), name) {
			return true
		}
	}
	for _, it := range a.items {
		if it.Star {
			return a.exposes(name)
		}
	}
	return false
}

// exposes checks a star-projected name against derived sources. Base tables
// have no known column list and are assumed to have the column.
func (a *AliasTable) exposes(name string) bool {
	for _, src := range a.sources {
		if src.sub == nil || src.sub.Exposes(name) {
			return true
		}
	}
	return false
}

// Origin traces a reference down to the base table column it reads.
//
// It follows projection aliases and derived tables recursively. ok is false
// when the reference ends in an expression (a literal, a function call) or
// cannot be attributed to a single source.
func (a *AliasTable) Origin(ref ColumnRef) (table, column string, ok bool) {
	name, qualifier := ref.Name, ref.Qualifier

	if qualifier == "" {
		for _, it := range a.items {
			if it.Alias != "" && strings.EqualFold(it.Alias, name) {
				if it.Column == "" {
					return "", "", false
				}
				name, qualifier = it.Column, it.Qualifier
				break
			}
		}
	}

	var src aliasSource
	switch {
	case qualifier != "":
		s, found := a.source(qualifier)
		if !found {
			return "", "", false
		}
		src = s
	case len(a.sources) == 1:
		src = a.sources[0]
	default:
		return "", "", false
	}

	if src.sub != nil {
		return src.sub.Origin(ColumnRef{Name: name})
	}
	return src.table, name, true
}

// Sources returns the names the source clause declares, in order.
func (a *AliasTable) Sources() []string {
	out := make([]string, len(a.sources))
	for i, src := range a.sources {
		out[i] = src.name
	}
	return out
}

// Sub returns the alias table of the derived table called name.
func (a *AliasTable) Sub(name string) (*AliasTable, bool) {
	src, ok := a.source(name)
	if !ok || src.sub == nil {
		return nil, false
	}
	return src.sub, true
}

func (a *AliasTable) source(name string) (aliasSource, bool) {
	for _, src := range a.sources {
		if strings.EqualFold(src.name, name) || strings.EqualFold(src.table, name) {
			return src, true
		}
	}
	return aliasSource{}, false
}

// sameSource reports whether a projection qualifier and a filter qualifier
// designate the same source. An empty qualifier matches when the statement
// reads from a single source.
func (a *AliasTable) sameSource(itemQualifier, refQualifier string) bool {
	switch {
	case refQualifier == "" && itemQualifier == "":
		return true
	case refQualifier == "" || itemQualifier == "":
		return len(a.sources) == 1
	case strings.EqualFold(itemQualifier, refQualifier):
		return true
	default:
		left, lok := a.source(itemQualifier)
		right, rok := a.source(refQualifier)
		return lok && rok && left.name == right.name
	}
}
