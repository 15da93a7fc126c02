package gis

import (
	"fmt"
	"strings"
)

// Key bucketing turns cross-layer scans into per-bucket comparisons scoped
// by a shared relation or identifier value. Buckets are expected small
// (one survey point against a handful of related objects), so per-bucket
// pairwise work stays cheap.

// NormalizeValue renders an attribute value for key comparison: strings are
// trimmed and lower-cased, everything else keeps its plain string form.
// Nil and empty values normalize to "".
func NormalizeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(x))
	default:
		return fmt.Sprint(x)
	}
}

// RawValue renders an attribute value without normalization, for filter
// expressions and value-equality comparisons.
func RawValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// CompositeKey builds a normalized bucket key from attribute values.
func CompositeKey(values ...any) string {
	return compositeKey(NormalizeValue, values...)
}

// ExactCompositeKey builds a bucket key from the values' exact string
// forms. Two values that differ only in case or surrounding whitespace
// produce distinct keys.
func ExactCompositeKey(values ...any) string {
	return compositeKey(RawValue, values...)
}

func compositeKey(render func(any) string, values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = render(v)
	}
	return strings.Join(parts, "\x1f")
}

// BucketByFields groups a layer's features by the normalized composite key
// of the named fields. Features with a nil or empty value in any key field
// are left out. Returns the bucket map plus the keys in first-seen order so
// callers produce deterministic output.
func BucketByFields(l *Layer, fields ...string) (map[string][]*Feature, []string) {
	return bucketBy(l, NormalizeValue, fields)
}

// BucketByFieldsExact groups by the exact composite key instead of the
// normalized one, for checks where the key values must match verbatim.
func BucketByFieldsExact(l *Layer, fields ...string) (map[string][]*Feature, []string) {
	return bucketBy(l, RawValue, fields)
}

func bucketBy(l *Layer, render func(any) string, fields []string) (map[string][]*Feature, []string) {
	buckets := make(map[string][]*Feature)
	var order []string
	if l == nil {
		return buckets, order
	}

	canonical := make([]string, 0, len(fields))
	for _, name := range fields {
		f, ok := l.ResolveField(name)
		if !ok {
			return buckets, order
		}
		canonical = append(canonical, f.Name)
	}

	for _, feat := range l.Features {
		values := make([]any, 0, len(canonical))
		skip := false
		for _, name := range canonical {
			v := feat.Attribute(name)
			if render(v) == "" {
				skip = true
				break
			}
			values = append(values, v)
		}
		if skip {
			continue
		}
		key := compositeKey(render, values...)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], feat)
	}
	return buckets, order
}
