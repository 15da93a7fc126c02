package detect

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// boundsTarget is one entity layer checked against the recording areas:
// objects, features or small finds, definitive or temporary.
type boundsTarget struct {
	kind  string // label prefix for warning messages
	layer *gis.Layer
	defID string // configured id of the definitive layer of this kind
}

// OutOfBoundsDetector flags entity features drawn outside their owning
// recording area by more than the allowed tolerance. Each entity layer is
// joined to the recording areas through its own relation; temporary layers
// reuse the definitive layer's relation metadata since they carry none.
type OutOfBoundsDetector struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewOutOfBoundsDetector(cfg *settings.Settings, provider gis.Provider) *OutOfBoundsDetector {
	return &OutOfBoundsDetector{
		cfg:      cfg,
		provider: provider,
		log:      logger.With(logger.FieldDetector, "out-of-bounds"),
	}
}

func (d *OutOfBoundsDetector) Name() string { return "out-of-bounds" }

func (d *OutOfBoundsDetector) Detect() (warnings []WarningData) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("out-of-bounds detection aborted", logger.FieldError, r)
		}
	}()

	if !d.cfg.EnableBoundsWarnings {
		return nil
	}
	if d.cfg.RecordingAreasLayer == "" {
		return nil
	}
	areas, ok := d.provider.LayerByID(d.cfg.RecordingAreasLayer)
	if !ok {
		return nil
	}

	for _, target := range d.targets() {
		warnings = append(warnings, d.checkLayer(target, areas)...)
	}

	d.log.Debugw("out-of-bounds detection complete", logger.FieldCount, len(warnings))
	return warnings
}

// targets enumerates the entity layers to check, definitive and temporary.
func (d *OutOfBoundsDetector) targets() []boundsTarget {
	kinds := []struct {
		kind     string
		defID    string
		tempName string
	}{
		{"Object", d.cfg.ObjectsLayer, gis.TempObjectsLayerName},
		{"Feature", d.cfg.FeaturesLayer, gis.TempFeaturesLayerName},
		{"Small Find", d.cfg.SmallFindsLayer, gis.TempSmallFindsLayerName},
	}

	var targets []boundsTarget
	for _, k := range kinds {
		if k.defID == "" {
			continue
		}
		pair := resolveLayers(d.provider, k.defID, k.tempName)
		for _, layer := range pair.both() {
			targets = append(targets, boundsTarget{kind: k.kind, layer: layer, defID: k.defID})
		}
	}
	return targets
}

func (d *OutOfBoundsDetector) checkLayer(target boundsTarget, areas *gis.Layer) []WarningData {
	layer := target.layer

	// The relation lives on the definitive layer; a temporary layer reuses
	// it as long as the referencing field exists there too.
	rel, ok := gis.RelationBetween(d.provider, target.defID, d.cfg.RecordingAreasLayer)
	if !ok {
		return nil
	}
	pair, ok := rel.FirstPair()
	if !ok {
		return nil
	}
	areaField, ok := layer.ResolveField(pair.Referencing)
	if !ok {
		return nil
	}
	refField, ok := areas.ResolveField(pair.Referenced)
	if !ok {
		return nil
	}

	// Area features by raw referenced value for O(1) owner lookup.
	areaByValue := make(map[string]*gis.Feature, len(areas.Features))
	for _, area := range areas.Features {
		v := gis.RawValue(area.Attribute(refField.Name))
		if v != "" {
			if _, dup := areaByValue[v]; !dup {
				areaByValue[v] = area
			}
		}
	}

	type group struct {
		name        string
		issues      []OutOfBoundsIssue
		features    []*gis.Feature
		maxDistance float64
	}
	groups := make(map[string]*group)
	var order []string

	for _, feat := range layer.Features {
		if !feat.HasGeometry() {
			continue
		}
		areaValue := gis.RawValue(feat.Attribute(areaField.Name))
		if areaValue == "" {
			continue
		}
		area := areaByValue[areaValue]
		if area == nil || !area.HasGeometry() {
			continue
		}
		if gis.Contains(area.Geometry, feat.Geometry) {
			continue
		}
		distance := gis.BoundaryDistance(area.Geometry, feat.Geometry)
		if distance <= d.cfg.BoundsMaxDistance {
			continue
		}

		grp := groups[areaValue]
		if grp == nil {
			grp = &group{name: displayName(areas, area, areaValue)}
			groups[areaValue] = grp
			order = append(order, areaValue)
		}
		if distance > grp.maxDistance {
			grp.maxDistance = distance
		}
		grp.features = append(grp.features, feat)
		grp.issues = append(grp.issues, OutOfBoundsIssue{
			FeatureID:         feat.ID,
			Label:             featureLabel(layer, feat, target.kind, objectLabelFields),
			RecordingAreaName: grp.name,
			RecordingAreaID:   areaValue,
			Distance:          distance,
		})
	}

	var warnings []WarningData
	for _, areaValue := range order {
		grp := groups[areaValue]
		warnings = append(warnings, WarningData{
			Message: fmt.Sprintf("Recording Area '%s' has %d %s feature(s) outside its bounds, up to %.2f m away",
				grp.name, len(grp.issues), target.kind, grp.maxDistance),
			RecordingAreaName: grp.name,
			LayerName:         layer.Name,
			FilterExpression:  boundsFilter(layer, grp.features),
			OutOfBoundsIssues: grp.issues,
		})
	}
	return warnings
}

// boundsFilter prefers a stable label field over raw row ids, which are
// not guaranteed stable across layer reloads.
func boundsFilter(layer *gis.Layer, features []*gis.Feature) string {
	if labelField, ok := layer.ResolveField("label"); ok {
		var values []any
		labelled := 0
		for _, feat := range features {
			if v := feat.Attribute(labelField.Name); v != nil && gis.RawValue(v) != "" {
				labelled++
				values = append(values, v)
			}
		}
		if labelled == len(features) {
			return gis.In{Field: labelField.Name, Values: dedupeValues(values)}.String()
		}
	}

	ids := make(gis.FeatureIDs, 0, len(features))
	for _, feat := range features {
		ids = append(ids, feat.ID)
	}
	return ids.String()
}
