package gis

// RelationSides is the outcome of orienting a relation against a concrete
// pair of layers: which field belongs to which layer, and whether the first
// layer is the referencing side.
type RelationSides struct {
	Relation    *Relation
	Layer1Field string // field in the first layer passed to OrientRelation
	Layer2Field string // field in the second layer
	Layer1Refs  bool   // first layer is the referencing side
}

// RelationBetween finds the relation connecting two layers, checking both
// directions. Any lookup failure degrades to "not found" rather than an
// error: detectors treat an unresolvable relation as "nothing to check".
func RelationBetween(p Provider, layer1ID, layer2ID string) (*Relation, bool) {
	if p == nil || layer1ID == "" || layer2ID == "" {
		return nil, false
	}
	for _, rel := range p.Relations() {
		if rel == nil {
			continue
		}
		if (rel.ReferencingLayerID == layer1ID && rel.ReferencedLayerID == layer2ID) ||
			(rel.ReferencingLayerID == layer2ID && rel.ReferencedLayerID == layer1ID) {
			return rel, true
		}
	}
	return nil, false
}

// OrientRelation assigns the relation's first field pair to the two given
// layers and verifies both fields resolve (exact or case-insensitive) in
// their layer. Returns false when the relation cannot be applied.
//
// Temporary layers typically lack declared relations of their own; callers
// resolve the relation on the definitive layers and orient it against the
// temporary ones, which works as long as the fields exist there too.
func OrientRelation(rel *Relation, layer1, layer2 *Layer, layer1ID string) (RelationSides, bool) {
	pair, ok := rel.FirstPair()
	if !ok || layer1 == nil || layer2 == nil {
		return RelationSides{}, false
	}

	sides := RelationSides{Relation: rel}
	if rel.ReferencingLayerID == layer1ID {
		sides.Layer1Field = pair.Referencing
		sides.Layer2Field = pair.Referenced
		sides.Layer1Refs = true
	} else {
		sides.Layer1Field = pair.Referenced
		sides.Layer2Field = pair.Referencing
	}

	f1, ok := layer1.ResolveField(sides.Layer1Field)
	if !ok {
		return RelationSides{}, false
	}
	f2, ok := layer2.ResolveField(sides.Layer2Field)
	if !ok {
		return RelationSides{}, false
	}
	sides.Layer1Field = f1.Name
	sides.Layer2Field = f2.Name
	return sides, true
}

// ReferencingField returns the canonical referencing-side field name of the
// relation as spelled in the given referencing layer.
func ReferencingField(rel *Relation, referencing *Layer) (string, bool) {
	pair, ok := rel.FirstPair()
	if !ok || referencing == nil {
		return "", false
	}
	f, ok := referencing.ResolveField(pair.Referencing)
	if !ok {
		return "", false
	}
	return f.Name, true
}

// ReferencedField returns the canonical referenced-side field name of the
// relation as spelled in the given referenced layer.
func ReferencedField(rel *Relation, referenced *Layer) (string, bool) {
	pair, ok := rel.FirstPair()
	if !ok || referenced == nil {
		return "", false
	}
	f, ok := referenced.ResolveField(pair.Referenced)
	if !ok {
		return "", false
	}
	return f.Name, true
}
