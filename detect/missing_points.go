package detect

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// Fallback fields naming the owning recording area on an objects layer
// when no relation to the recording areas layer is declared.
var conventionalAreaFields = []string{"recording_area", "recording_area_id", "area"}

// MissingPointsDetector flags objects with no matching total station
// point. The point set is the union of the imported and definitive point
// layers; comparison of relation values is case- and
// whitespace-insensitive. Warnings are grouped by the object's recording
// area, the axis a surveyor actually cares about.
type MissingPointsDetector struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewMissingPointsDetector(cfg *settings.Settings, provider gis.Provider) *MissingPointsDetector {
	return &MissingPointsDetector{
		cfg:      cfg,
		provider: provider,
		log:      logger.With(logger.FieldDetector, "missing-points"),
	}
}

func (d *MissingPointsDetector) Name() string { return "missing-points" }

func (d *MissingPointsDetector) Detect() (warnings []WarningData) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("missing point detection aborted", logger.FieldError, r)
		}
	}()

	if !d.cfg.EnableMissingTotalStationWarnings {
		return nil
	}
	if d.cfg.TotalStationPointsLayer == "" || d.cfg.ObjectsLayer == "" {
		return nil
	}

	points := resolveLayers(d.provider, d.cfg.TotalStationPointsLayer, gis.TempPointsLayerName)
	objectPair := resolveLayers(d.provider, d.cfg.ObjectsLayer, gis.TempObjectsLayerName)
	objects := objectPair.preferTemporary()
	if objects == nil || (points.definitive == nil && points.temporary == nil) {
		return nil
	}

	rel, ok := gis.RelationBetween(d.provider, d.cfg.TotalStationPointsLayer, d.cfg.ObjectsLayer)
	if !ok {
		d.log.Debugw("no relation between points and objects layers")
		return nil
	}
	sides, ok := gis.OrientRelation(rel, points.preferTemporary(), objects, d.cfg.TotalStationPointsLayer)
	if !ok {
		return nil
	}

	// Relation values present among points, union of both point sources.
	present := make(map[string]bool)
	for _, pointsLayer := range points.both() {
		field, ok := pointsLayer.ResolveField(sides.Layer1Field)
		if !ok {
			continue
		}
		for _, feat := range pointsLayer.Features {
			if key := gis.NormalizeValue(feat.Attribute(field.Name)); key != "" {
				present[key] = true
			}
		}
	}

	objectsField, ok := objects.ResolveField(sides.Layer2Field)
	if !ok {
		return nil
	}

	areaOf := d.areaResolver(objects)

	type group struct {
		issues []MissingPointIssue
		values []any
		seen   map[string]bool
	}
	groups := make(map[string]*group)
	var order []string

	for _, feat := range objects.Features {
		value := feat.Attribute(objectsField.Name)
		key := gis.NormalizeValue(value)
		if key == "" || present[key] {
			continue
		}
		name := areaOf(feat)
		grp := groups[name]
		if grp == nil {
			grp = &group{seen: make(map[string]bool)}
			groups[name] = grp
			order = append(order, name)
		}
		grp.issues = append(grp.issues, MissingPointIssue{
			ObjectID:      feat.ID,
			ObjectLabel:   featureLabel(objects, feat, "Object", objectLabelFields),
			RelationValue: gis.RawValue(value),
		})
		if !grp.seen[key] {
			grp.seen[key] = true
			grp.values = append(grp.values, value)
		}
	}

	pointsLayer := points.preferTemporary()
	for _, name := range order {
		grp := groups[name]
		warnings = append(warnings, WarningData{
			Message:           d.warningMessage(grp.issues),
			RecordingAreaName: name,
			LayerName:         objects.Name,
			FilterExpression:  membershipFilter(objectsField.Name, grp.values),
			SecondLayerName:   pointsLayer.Name,
			SecondFilterExpression: membershipFilter(
				mustField(pointsLayer, sides.Layer1Field), grp.values),
			MissingPointIssues: grp.issues,
		})
	}

	d.log.Debugw("missing point detection complete", logger.FieldCount, len(warnings))
	return warnings
}

// areaResolver builds the recording-area lookup for grouping: through the
// objects layer's own relation to the recording areas when one is
// declared, otherwise through conventional field names, otherwise a
// constant bucket.
func (d *MissingPointsDetector) areaResolver(objects *gis.Layer) func(*gis.Feature) string {
	areas, haveAreas := (*gis.Layer)(nil), false
	if d.cfg.RecordingAreasLayer != "" {
		areas, haveAreas = d.provider.LayerByID(d.cfg.RecordingAreasLayer)
	}

	if haveAreas {
		if rel, ok := gis.RelationBetween(d.provider, d.cfg.ObjectsLayer, d.cfg.RecordingAreasLayer); ok {
			if pair, ok := rel.FirstPair(); ok {
				if areaField, ok := objects.ResolveField(pair.Referencing); ok {
					if refField, ok := areas.ResolveField(pair.Referenced); ok {
						return func(f *gis.Feature) string {
							return areaName(areas, refField.Name, f.Attribute(areaField.Name))
						}
					}
				}
			}
		}
	}

	for _, name := range conventionalAreaFields {
		if field, ok := objects.ResolveField(name); ok {
			return func(f *gis.Feature) string {
				if v := gis.RawValue(f.Attribute(field.Name)); v != "" {
					return v
				}
				return "Unknown Area"
			}
		}
	}

	return func(*gis.Feature) string { return "Unknown Area" }
}

func membershipFilter(field string, values []any) string {
	if len(values) == 1 {
		return gis.Eq{Field: field, Value: values[0]}.String()
	}
	return gis.In{Field: field, Values: values}.String()
}

func (d *MissingPointsDetector) warningMessage(issues []MissingPointIssue) string {
	if len(issues) == 1 {
		return fmt.Sprintf("%s has no matching total station point", issues[0].ObjectLabel)
	}
	return fmt.Sprintf("%d objects have no matching total station point", len(issues))
}
