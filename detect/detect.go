package detect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/geoarch/fieldqa/gis"
)

// layerPair bundles the two layers of interest for one logical entity
// type: the configured definitive layer and, when an import is pending,
// the conventionally named temporary layer.
type layerPair struct {
	definitive *gis.Layer
	temporary  *gis.Layer
}

// resolveLayers looks up the definitive layer by its configured stable id
// and the temporary layer by its conventional display name. Either side
// may be nil.
func resolveLayers(p gis.Provider, configuredID, tempName string) layerPair {
	var lp layerPair
	if configuredID != "" {
		if l, ok := p.LayerByID(configuredID); ok {
			lp.definitive = l
		}
	}
	if tempName != "" {
		if l, ok := p.LayerByName(tempName); ok {
			lp.temporary = l
		}
	}
	return lp
}

// preferTemporary returns the temporary layer when an import is pending,
// otherwise the definitive one.
func (lp layerPair) preferTemporary() *gis.Layer {
	if lp.temporary != nil {
		return lp.temporary
	}
	return lp.definitive
}

// both returns whichever of the two layers exist, definitive first.
func (lp layerPair) both() []*gis.Layer {
	var out []*gis.Layer
	if lp.definitive != nil {
		out = append(out, lp.definitive)
	}
	if lp.temporary != nil {
		out = append(out, lp.temporary)
	}
	return out
}

// Conventional identifier fields used only for human-readable labels in
// warning messages, never for joins.
var (
	pointLabelFields  = []string{"point_id", "station_id", "point_number", "id", "fid"}
	objectLabelFields = []string{"object_number", "number", "object_id", "id", "fid"}
	areaNameFields    = []string{"name", "label"}
)

// featureLabel builds a human-readable label like "Point TS-042" or
// "Object 17", falling back to the row id.
func featureLabel(l *gis.Layer, f *gis.Feature, kind string, candidates []string) string {
	for _, name := range candidates {
		fld, ok := l.ResolveField(name)
		if !ok {
			continue
		}
		if v := f.Attribute(fld.Name); v != nil && gis.RawValue(v) != "" {
			return fmt.Sprintf("%s %s", kind, gis.RawValue(v))
		}
	}
	return fmt.Sprintf("%s %d", kind, f.ID)
}

// areaName resolves a recording-area value to a display label: find the
// area feature whose referenced field carries the value, read a name-like
// field from it, fall back to the raw value.
func areaName(areas *gis.Layer, refField string, value any) string {
	raw := gis.RawValue(value)
	if areas == nil {
		return raw
	}
	fld, ok := areas.ResolveField(refField)
	if !ok {
		return raw
	}
	for _, feat := range areas.Features {
		if gis.RawValue(feat.Attribute(fld.Name)) != raw {
			continue
		}
		return displayName(areas, feat, raw)
	}
	return raw
}

// displayName reads the first non-empty name-like field of a feature.
func displayName(l *gis.Layer, f *gis.Feature, fallback string) string {
	for _, name := range areaNameFields {
		fld, ok := l.ResolveField(name)
		if !ok {
			continue
		}
		if v := f.Attribute(fld.Name); v != nil && gis.RawValue(v) != "" {
			return gis.RawValue(v)
		}
	}
	return fallback
}

// toFloat coerces string and numeric attribute values to float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	f, err := strconv.ParseFloat(gis.RawValue(v), 64)
	return f, err == nil
}

// toInt coerces string and numeric attribute values to int, rejecting
// fractional values.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	n, err := strconv.Atoi(gis.RawValue(v))
	return n, err == nil
}

// dedupeValues removes duplicate raw values while preserving first-seen
// order.
func dedupeValues(values []any) []any {
	seen := make(map[string]bool, len(values))
	var out []any
	for _, v := range values {
		raw := gis.RawValue(v)
		if seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, v)
	}
	return out
}
