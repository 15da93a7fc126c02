package detect

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// DistanceDetector flags total station points that sit too far from their
// related objects. Points and objects are joined through the declared
// relation between the definitive layers; every combination of
// temporary/definitive layers on either side is evaluated, so a pending
// import is checked against both new and accepted data.
type DistanceDetector struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewDistanceDetector(cfg *settings.Settings, provider gis.Provider) *DistanceDetector {
	return &DistanceDetector{
		cfg:      cfg,
		provider: provider,
		log:      logger.With(logger.FieldDetector, "distance"),
	}
}

func (d *DistanceDetector) Name() string { return "distance" }

func (d *DistanceDetector) Detect() (warnings []WarningData) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("distance detection aborted", logger.FieldError, r)
		}
	}()

	if !d.cfg.EnableDistanceWarnings {
		return nil
	}
	if d.cfg.TotalStationPointsLayer == "" || d.cfg.ObjectsLayer == "" {
		return nil
	}

	points := resolveLayers(d.provider, d.cfg.TotalStationPointsLayer, gis.TempPointsLayerName)
	objects := resolveLayers(d.provider, d.cfg.ObjectsLayer, gis.TempObjectsLayerName)
	if points.definitive == nil && points.temporary == nil {
		return nil
	}
	if objects.definitive == nil && objects.temporary == nil {
		return nil
	}

	// Temporary layers carry no declared relations; the relation is always
	// resolved on the definitive layer ids and oriented against whichever
	// layers the combination uses.
	rel, ok := gis.RelationBetween(d.provider, d.cfg.TotalStationPointsLayer, d.cfg.ObjectsLayer)
	if !ok {
		d.log.Debugw("no relation between points and objects layers")
		return nil
	}

	for _, pointsLayer := range points.both() {
		for _, objectsLayer := range objects.both() {
			sides, ok := gis.OrientRelation(rel, pointsLayer, objectsLayer, d.cfg.TotalStationPointsLayer)
			if !ok {
				continue
			}
			warnings = append(warnings, d.checkCombination(pointsLayer, objectsLayer, sides)...)
		}
	}

	d.log.Debugw("distance detection complete", logger.FieldCount, len(warnings))
	return warnings
}

// checkCombination buckets both layers by relation value and compares each
// point against each object in its bucket; buckets are expected small.
func (d *DistanceDetector) checkCombination(pointsLayer, objectsLayer *gis.Layer, sides gis.RelationSides) []WarningData {
	pointBuckets, pointOrder := gis.BucketByFields(pointsLayer, sides.Layer1Field)
	objectBuckets, _ := gis.BucketByFields(objectsLayer, sides.Layer2Field)

	type group struct {
		relationValue any
		issues        []DistanceIssue
		maxDistance   float64
	}
	var groups []*group

	for _, key := range pointOrder {
		objectFeatures := objectBuckets[key]
		if len(objectFeatures) == 0 {
			continue
		}
		var grp *group

		for _, point := range pointBuckets[key] {
			if !point.HasGeometry() {
				continue
			}
			for _, object := range objectFeatures {
				if !object.HasGeometry() {
					continue
				}
				// Overlap is acceptable, not a distance issue.
				if gis.Intersects(point.Geometry, object.Geometry) {
					continue
				}
				distance := gis.GeometryDistance(point.Geometry, object.Geometry)
				if distance <= d.cfg.DistanceMaxDistance {
					continue
				}
				if grp == nil {
					grp = &group{relationValue: point.Attribute(sides.Layer1Field)}
					groups = append(groups, grp)
				}
				if distance > grp.maxDistance {
					grp.maxDistance = distance
				}
				grp.issues = append(grp.issues, DistanceIssue{
					PointID:       point.ID,
					ObjectID:      object.ID,
					PointLabel:    featureLabel(pointsLayer, point, "Point", pointLabelFields),
					ObjectLabel:   featureLabel(objectsLayer, object, "Object", objectLabelFields),
					Distance:      distance,
					RelationValue: gis.RawValue(point.Attribute(sides.Layer1Field)),
				})
			}
		}
	}

	var warnings []WarningData
	for _, grp := range groups {
		warnings = append(warnings, WarningData{
			Message:           d.warningMessage(grp.issues, grp.maxDistance),
			RecordingAreaName: fmt.Sprintf("Relation %s", gis.RawValue(grp.relationValue)),
			LayerName:         pointsLayer.Name,
			FilterExpression: gis.Eq{
				Field: sides.Layer1Field, Value: grp.relationValue,
			}.String(),
			SecondLayerName: objectsLayer.Name,
			SecondFilterExpression: gis.Eq{
				Field: sides.Layer2Field, Value: grp.relationValue,
			}.String(),
			DistanceIssues: grp.issues,
		})
	}
	return warnings
}

func (d *DistanceDetector) warningMessage(issues []DistanceIssue, maxDistance float64) string {
	var featureText string
	if len(issues) == 1 {
		featureText = fmt.Sprintf("%s and %s", issues[0].PointLabel, issues[0].ObjectLabel)
	} else {
		points := make(map[int64]bool)
		objects := make(map[int64]bool)
		for _, issue := range issues {
			points[issue.PointID] = true
			objects[issue.ObjectID] = true
		}
		featureText = fmt.Sprintf("%d points and %d objects", len(points), len(objects))
	}
	return fmt.Sprintf("%s are separated by %.1f cm (maximum allowed: %.1f cm)",
		featureText, maxDistance*100, d.cfg.DistanceMaxDistance*100)
}
