package gis

import (
	"fmt"
	"strings"
)

// Filter expressions are the sole mechanism by which a downstream UI
// locates the features behind a warning. They are built as small trees so
// the engine can both render the host's attribute-query dialect (field
// names double-quoted, string literals single-quoted, "=" and "IN (...)")
// and evaluate them against a layer snapshot in tests.

// Expr is a boolean predicate over one feature of a specific layer.
type Expr interface {
	// String renders the predicate in the host's attribute-query dialect.
	String() string
	// Matches evaluates the predicate against one feature of the layer.
	Matches(l *Layer, f *Feature) bool
}

// Eq is equality on a single field.
type Eq struct {
	Field string
	Value any
}

func (e Eq) String() string {
	return fmt.Sprintf("%s = %s", quoteField(e.Field), quoteValue(e.Value))
}

func (e Eq) Matches(l *Layer, f *Feature) bool {
	fld, ok := l.ResolveField(e.Field)
	if !ok {
		return false
	}
	return RawValue(f.Attribute(fld.Name)) == RawValue(e.Value)
}

// In is set membership on a single field.
type In struct {
	Field  string
	Values []any
}

func (e In) String() string {
	parts := make([]string, len(e.Values))
	for i, v := range e.Values {
		parts[i] = quoteValue(v)
	}
	return fmt.Sprintf("%s IN (%s)", quoteField(e.Field), strings.Join(parts, ","))
}

func (e In) Matches(l *Layer, f *Feature) bool {
	fld, ok := l.ResolveField(e.Field)
	if !ok {
		return false
	}
	have := RawValue(f.Attribute(fld.Name))
	for _, v := range e.Values {
		if have == RawValue(v) {
			return true
		}
	}
	return false
}

// And is the conjunction of its operands.
type And []Expr

func (e And) String() string {
	parts := make([]string, len(e))
	for i, sub := range e {
		parts[i] = sub.String()
	}
	return strings.Join(parts, " AND ")
}

func (e And) Matches(l *Layer, f *Feature) bool {
	for _, sub := range e {
		if !sub.Matches(l, f) {
			return false
		}
	}
	return len(e) > 0
}

// FeatureIDs selects features by raw row id. Row ids are not stable across
// layer reloads, so callers prefer a label field when one exists.
type FeatureIDs []int64

func (e FeatureIDs) String() string {
	if len(e) == 1 {
		return fmt.Sprintf(`"fid" = %d`, e[0])
	}
	parts := make([]string, len(e))
	for i, id := range e {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf(`"fid" IN (%s)`, strings.Join(parts, ","))
}

func (e FeatureIDs) Matches(_ *Layer, f *Feature) bool {
	for _, id := range e {
		if f.ID == id {
			return true
		}
	}
	return false
}

func quoteField(name string) string {
	return `"` + name + `"`
}

// quoteValue renders a literal: strings single-quoted with '' escaping,
// numbers and other scalars verbatim.
func quoteValue(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(x)
	}
}
