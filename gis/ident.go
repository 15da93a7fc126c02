package gis

import "strings"

// Field-inference heuristics. Relation metadata is not always present
// (temporary imported layers carry no declared relations), so detectors
// sometimes have to guess which field plays the join/identifier role.
// Both heuristics are deterministic and side-effect-free so policy can be
// unit-tested on its own.

var identifierPatterns = []string{"identifier", "identifiant", "code", "name", "nom"}

// CommonIdentifierField picks the best shared string-typed identifier field
// between two layers. Field names are matched case-insensitively; the
// returned spelling is the first layer's. Preference order: a name
// containing "id", then a conventional identifier name ("identifier",
// "identifiant", "code", "name", "nom", or a "_id"/"_code" suffix), then
// the first common string field in the first layer's native order.
func CommonIdentifierField(a, b *Layer) (string, bool) {
	if a == nil || b == nil {
		return "", false
	}
	other := make(map[string]bool)
	for _, f := range b.StringFields() {
		other[strings.ToLower(f.Name)] = true
	}
	var common []string
	for _, f := range a.StringFields() {
		if other[strings.ToLower(f.Name)] {
			common = append(common, f.Name)
		}
	}
	return pickIdentifier(common)
}

// IdentifierField guesses a string-typed identifier field on a single
// layer, with the same preference order as CommonIdentifierField.
func IdentifierField(l *Layer) (string, bool) {
	if l == nil {
		return "", false
	}
	var names []string
	for _, f := range l.StringFields() {
		names = append(names, f.Name)
	}
	return pickIdentifier(names)
}

func pickIdentifier(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, name := range candidates {
		if strings.Contains(strings.ToLower(name), "id") {
			return name, true
		}
	}
	for _, name := range candidates {
		if matchesIdentifierPattern(strings.ToLower(name)) {
			return name, true
		}
	}
	return candidates[0], true
}

func matchesIdentifierPattern(lower string) bool {
	for _, p := range identifierPatterns {
		if lower == p {
			return true
		}
	}
	return strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "_code")
}

var elevationVariants = []string{"z", "height", "elevation", "altitude", "z_coord", "z_coordinate"}

// ElevationField locates the Z-like elevation field of a points layer:
// exact "Z" first, then a case-insensitive "z", then the conventional
// variant names.
func ElevationField(l *Layer) (string, bool) {
	if l == nil {
		return "", false
	}
	if f, ok := l.ResolveField("Z"); ok {
		return f.Name, true
	}
	for _, f := range l.Fields {
		lower := strings.ToLower(f.Name)
		for _, v := range elevationVariants {
			if lower == v {
				return f.Name, true
			}
		}
	}
	return "", false
}
