package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoarch/fieldqa/detect"
	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/internal/gistest"
)

func pointsFields() []gis.Field {
	return []gis.Field{gistest.StringField("point_id"), gistest.FloatField("z")}
}

func relatedObjectsFields() []gis.Field {
	return []gis.Field{gistest.StringField("ts_point"), gistest.IntField("number")}
}

// distanceFixture wires points.point_id -> objects.ts_point.
func distanceFixture(points, objects *gis.Layer, extra ...*gis.Layer) *gistest.Provider {
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(objects).
		Relate("points", "point_id", "objects", "ts_point")
	for _, l := range extra {
		p.AddLayer(l)
	}
	return p
}

func TestDistance_FlagsSeparatedPairs(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, relatedObjectsFields(),
		gistest.Feat(1, gistest.Point(0.10, 0), map[string]any{"ts_point": "P1", "number": 7}),
	)

	warnings := detect.NewDistanceDetector(surveyConfig(), distanceFixture(points, objects)).Detect()
	require.Len(t, warnings, 1)

	w := warnings[0]
	assert.Contains(t, w.Message, "separated by 10.0 cm (maximum allowed: 5.0 cm)")
	assert.Equal(t, `"point_id" = 'P1'`, w.FilterExpression)
	assert.Equal(t, `"ts_point" = 'P1'`, w.SecondFilterExpression)
	require.Len(t, w.DistanceIssues, 1)
	assert.InDelta(t, 0.10, w.DistanceIssues[0].Distance, 1e-9)
}

func TestDistance_ThresholdIsStrict(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
		gistest.Feat(2, gistest.Point(10, 0), map[string]any{"point_id": "P2"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, relatedObjectsFields(),
		gistest.Feat(1, gistest.Point(0.05, 0), map[string]any{"ts_point": "P1"}),
		gistest.Feat(2, gistest.Point(10.050001, 0), map[string]any{"ts_point": "P2"}),
	)

	warnings := detect.NewDistanceDetector(surveyConfig(), distanceFixture(points, objects)).Detect()
	require.Len(t, warnings, 1, "Exactly at the threshold is acceptable; just past it is not")
	assert.Equal(t, `"point_id" = 'P2'`, warnings[0].FilterExpression)
}

func TestDistance_IntersectingGeometriesExempt(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(5, 5), map[string]any{"point_id": "P1"}),
	)
	// The object polygon contains its point, however large it is.
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, relatedObjectsFields(),
		gistest.Feat(1, gistest.Square(0, 0, 10), map[string]any{"ts_point": "P1"}),
	)

	warnings := detect.NewDistanceDetector(surveyConfig(), distanceFixture(points, objects)).Detect()
	assert.Empty(t, warnings, "Overlap means the point is where it should be")
}

func TestDistance_EvaluatesEveryLayerCombination(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
	)
	tempPoints := gistest.Layer("csv_points", "Imported_CSV_Points", gis.RoleTemporary, pointsFields(),
		gistest.Feat(1, gistest.Point(50, 0), map[string]any{"point_id": "P2"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, relatedObjectsFields(),
		gistest.Feat(1, gistest.Point(0.5, 0), map[string]any{"ts_point": "P1"}),
	)
	tempObjects := gistest.Layer("new_objects", "New Objects", gis.RoleTemporary, relatedObjectsFields(),
		gistest.Feat(1, gistest.Point(50.5, 0), map[string]any{"ts_point": "P2"}),
	)

	p := distanceFixture(points, objects, tempPoints, tempObjects)
	warnings := detect.NewDistanceDetector(surveyConfig(), p).Detect()

	// definitive/definitive yields P1, temporary/temporary yields P2; the
	// cross combinations share no relation values.
	require.Len(t, warnings, 2)
	layers := []string{warnings[0].LayerName, warnings[1].LayerName}
	assert.Contains(t, layers, "Total Station Points")
	assert.Contains(t, layers, "Imported_CSV_Points")
}

func TestDistance_GroupsPerRelationValue(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, relatedObjectsFields(),
		gistest.Feat(1, gistest.Point(0.2, 0), map[string]any{"ts_point": "P1"}),
		gistest.Feat(2, gistest.Point(0.4, 0), map[string]any{"ts_point": "P1"}),
	)

	warnings := detect.NewDistanceDetector(surveyConfig(), distanceFixture(points, objects)).Detect()
	require.Len(t, warnings, 1, "One warning per relation value, not per pair")
	assert.Len(t, warnings[0].DistanceIssues, 2)
	assert.Contains(t, warnings[0].Message, "separated by 40.0 cm", "Message reports the worst distance")
}

func TestDistance_FeaturesWithoutGeometrySkipped(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, nil, map[string]any{"point_id": "P1"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, relatedObjectsFields(),
		gistest.Feat(1, gistest.Point(100, 100), map[string]any{"ts_point": "P1"}),
	)

	assert.Empty(t, detect.NewDistanceDetector(surveyConfig(), distanceFixture(points, objects)).Detect())
}

func TestDistance_DisabledFlag(t *testing.T) {
	cfg := surveyConfig()
	cfg.EnableDistanceWarnings = false
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, relatedObjectsFields(),
		gistest.Feat(1, gistest.Point(99, 0), map[string]any{"ts_point": "P1"}),
	)

	assert.Nil(t, detect.NewDistanceDetector(cfg, distanceFixture(points, objects)).Detect())
}
