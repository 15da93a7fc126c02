// Package gistest provides in-memory layer and provider builders for
// detector tests.
package gistest

import (
	"github.com/paulmach/orb"

	"github.com/geoarch/fieldqa/gis"
)

// Provider is an in-memory gis.Provider over a fixed set of layers and
// relations.
type Provider struct {
	layers    map[string]*gis.Layer
	byName    map[string]*gis.Layer
	relations []*gis.Relation
}

func NewProvider() *Provider {
	return &Provider{
		layers: make(map[string]*gis.Layer),
		byName: make(map[string]*gis.Layer),
	}
}

// AddLayer registers a layer under its ID and display name.
func (p *Provider) AddLayer(l *gis.Layer) *Provider {
	p.layers[l.ID] = l
	p.byName[l.Name] = l
	return p
}

// Relate declares a relation: referencing layer/field -> referenced
// layer/field.
func (p *Provider) Relate(referencingID, referencingField, referencedID, referencedField string) *Provider {
	p.relations = append(p.relations, &gis.Relation{
		ID:                 referencingID + "_" + referencedID,
		Name:               referencingID + " -> " + referencedID,
		ReferencingLayerID: referencingID,
		ReferencedLayerID:  referencedID,
		FieldPairs: []gis.FieldPair{
			{Referencing: referencingField, Referenced: referencedField},
		},
	})
	return p
}

func (p *Provider) LayerByID(id string) (*gis.Layer, bool) {
	l, ok := p.layers[id]
	return l, ok
}

func (p *Provider) LayerByName(name string) (*gis.Layer, bool) {
	l, ok := p.byName[name]
	return l, ok
}

func (p *Provider) Relations() []*gis.Relation {
	return p.relations
}

// StringField builds a string-typed field definition.
func StringField(name string) gis.Field {
	return gis.Field{Name: name, Type: "string", IsString: true}
}

// IntField builds an integer-typed field definition.
func IntField(name string) gis.Field {
	return gis.Field{Name: name, Type: "integer"}
}

// FloatField builds a float-typed field definition.
func FloatField(name string) gis.Field {
	return gis.Field{Name: name, Type: "double"}
}

// Layer builds a layer snapshot from field definitions and features.
func Layer(id, name string, role gis.LayerRole, fields []gis.Field, features ...*gis.Feature) *gis.Layer {
	return &gis.Layer{ID: id, Name: name, Role: role, Fields: fields, Features: features}
}

// Feat builds a feature with the given id, geometry (may be nil) and
// attribute map.
func Feat(id int64, geom orb.Geometry, attrs map[string]any) *gis.Feature {
	return &gis.Feature{ID: id, Geometry: geom, Attributes: attrs}
}

// Point is shorthand for an orb.Point geometry.
func Point(x, y float64) orb.Point {
	return orb.Point{x, y}
}

// Square builds a closed square polygon from (x, y) to (x+side, y+side).
func Square(x, y, side float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x, y}, {x + side, y}, {x + side, y + side}, {x, y + side}, {x, y},
	}}
}
