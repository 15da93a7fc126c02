// Package gis holds the read-only layer snapshot model the detectors run
// against: features, layers, fields, declared relations, and the shared
// primitives built on top of them (relation resolution, field inference,
// key bucketing, spatial indexing, filter expressions).
//
// Snapshots are constructed by a Provider at the start of a detection run
// and never mutated by the engine.
package gis

import (
	"strings"

	"github.com/paulmach/orb"
)

// LayerRole distinguishes freshly imported data pending review from
// previously accepted data.
type LayerRole int

const (
	RoleDefinitive LayerRole = iota
	RoleTemporary
)

func (r LayerRole) String() string {
	if r == RoleTemporary {
		return "temporary"
	}
	return "definitive"
}

// Conventional display names under which temporary layers appear in a
// project. Imports create these; validation folds them into the
// definitive layers.
const (
	TempObjectsLayerName    = "New Objects"
	TempFeaturesLayerName   = "New Features"
	TempSmallFindsLayerName = "New Small Finds"
	TempPointsLayerName     = "Imported_CSV_Points"
)

// Field describes one attribute column of a layer.
type Field struct {
	Name     string
	Type     string // declared type as reported by the host, e.g. "string", "integer"
	IsString bool
}

// Feature is one row of a layer: a stable id, an optional geometry and an
// attribute map keyed by exact field name. Nil geometry means no geometry.
type Feature struct {
	ID         int64
	Geometry   orb.Geometry
	Attributes map[string]any
}

// HasGeometry reports whether the feature carries a non-empty geometry.
func (f *Feature) HasGeometry() bool {
	if f.Geometry == nil {
		return false
	}
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return len(g) > 0 && len(g[0]) > 0
	case orb.MultiPolygon:
		return len(g) > 0
	case orb.LineString:
		return len(g) > 0
	case orb.MultiPoint:
		return len(g) > 0
	}
	return true
}

// Attribute returns the value stored under the exact field name, or nil.
func (f *Feature) Attribute(field string) any {
	if f.Attributes == nil {
		return nil
	}
	return f.Attributes[field]
}

// Layer is an immutable snapshot of one vector layer.
type Layer struct {
	ID       string
	Name     string
	Role     LayerRole
	Fields   []Field
	Features []*Feature
}

// ResolveField finds a field by name, trying an exact match first and then
// a case-insensitive scan over all fields. The returned field carries the
// layer's canonical spelling of the name.
func (l *Layer) ResolveField(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range l.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// HasField reports whether ResolveField would succeed.
func (l *Layer) HasField(name string) bool {
	_, ok := l.ResolveField(name)
	return ok
}

// StringFields returns the string-typed fields in native layer order.
func (l *Layer) StringFields() []Field {
	var out []Field
	for _, f := range l.Fields {
		if f.IsString {
			out = append(out, f)
		}
	}
	return out
}

// FieldPair maps one referencing-layer field to one referenced-layer field.
type FieldPair struct {
	Referencing string
	Referenced  string
}

// Relation is a declared foreign-key-style link between two layers.
// Only the first field pair is meaningful to the engine.
type Relation struct {
	ID                 string
	Name               string
	ReferencingLayerID string
	ReferencedLayerID  string
	FieldPairs         []FieldPair
}

// FirstPair returns the first field pair, the only one the engine uses.
func (r *Relation) FirstPair() (FieldPair, bool) {
	if len(r.FieldPairs) == 0 {
		return FieldPair{}, false
	}
	return r.FieldPairs[0], true
}

// Provider is the host contract the engine consumes: layer lookup by stable
// id or display name, plus the project's declared relations.
type Provider interface {
	LayerByID(id string) (*Layer, bool)
	LayerByName(name string) (*Layer, bool)
	Relations() []*Relation
}
