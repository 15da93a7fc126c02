package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoarch/fieldqa/detect"
	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/internal/gistest"
)

func missingPointsObjectsFields() []gis.Field {
	return []gis.Field{
		gistest.StringField("ts_point"),
		gistest.StringField("recording_area"),
		gistest.IntField("number"),
	}
}

func TestMissingPoints_FlagsObjectsWithoutAPoint(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
		gistest.Feat(2, gistest.Point(1, 0), map[string]any{"point_id": "P3"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "P1", "recording_area": "A1", "number": 1}),
		gistest.Feat(2, nil, map[string]any{"ts_point": "P2", "recording_area": "A1", "number": 2}),
		gistest.Feat(3, nil, map[string]any{"ts_point": "P3", "recording_area": "A1", "number": 3}),
	)
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(objects).
		Relate("points", "point_id", "objects", "ts_point")

	warnings := detect.NewMissingPointsDetector(surveyConfig(), p).Detect()
	require.Len(t, warnings, 1)

	w := warnings[0]
	require.Len(t, w.MissingPointIssues, 1)
	assert.Equal(t, "P2", w.MissingPointIssues[0].RelationValue)
	assert.Equal(t, `"ts_point" = 'P2'`, w.FilterExpression)
	assert.Equal(t, `"point_id" = 'P2'`, w.SecondFilterExpression)
	assert.Contains(t, w.Message, "has no matching total station point")
}

func TestMissingPoints_ComparisonIsCaseAndWhitespaceInsensitive(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": " p1 "}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "P1", "recording_area": "A1", "number": 1}),
	)
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(objects).
		Relate("points", "point_id", "objects", "ts_point")

	assert.Empty(t, detect.NewMissingPointsDetector(surveyConfig(), p).Detect())
}

func TestMissingPoints_UnionOfImportedAndDefinitivePoints(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
	)
	tempPoints := gistest.Layer("csv", "Imported_CSV_Points", gis.RoleTemporary, pointsFields(),
		gistest.Feat(1, gistest.Point(1, 0), map[string]any{"point_id": "P2"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "P1", "recording_area": "A1", "number": 1}),
		gistest.Feat(2, nil, map[string]any{"ts_point": "P2", "recording_area": "A1", "number": 2}),
	)
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(tempPoints).
		AddLayer(objects).
		Relate("points", "point_id", "objects", "ts_point")

	assert.Empty(t, detect.NewMissingPointsDetector(surveyConfig(), p).Detect(),
		"A point in either source satisfies the object")
}

func TestMissingPoints_GroupsByConventionalAreaField(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields())
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "P1", "recording_area": "A1", "number": 1}),
		gistest.Feat(2, nil, map[string]any{"ts_point": "P2", "recording_area": "A2", "number": 2}),
	)
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(objects).
		Relate("points", "point_id", "objects", "ts_point")

	warnings := detect.NewMissingPointsDetector(surveyConfig(), p).Detect()
	require.Len(t, warnings, 2, "No relation to recording areas, so the conventional field groups")
	assert.Equal(t, "A1", warnings[0].RecordingAreaName)
	assert.Equal(t, "A2", warnings[1].RecordingAreaName)
}

func TestMissingPoints_GroupsThroughAreaRelationWhenDeclared(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields())
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "P1", "recording_area": "A1", "number": 1}),
	)
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(objects).
		AddLayer(areasLayer()).
		Relate("points", "point_id", "objects", "ts_point").
		Relate("objects", "recording_area", "areas", "id")

	warnings := detect.NewMissingPointsDetector(surveyConfig(), p).Detect()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Zone A", warnings[0].RecordingAreaName)
}

func TestMissingPoints_PrefersImportedObjects(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
	)
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "MISSING", "recording_area": "A1", "number": 1}),
	)
	temp := gistest.Layer("new_objects", "New Objects", gis.RoleTemporary, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "P1", "recording_area": "A1", "number": 1}),
	)
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(objects).
		AddLayer(temp).
		Relate("points", "point_id", "objects", "ts_point")

	assert.Empty(t, detect.NewMissingPointsDetector(surveyConfig(), p).Detect(),
		"With an import pending, only the imported objects are checked")
}

func TestMissingPoints_RepeatedValueListedOncePerGroupFilter(t *testing.T) {
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields())
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, missingPointsObjectsFields(),
		gistest.Feat(1, nil, map[string]any{"ts_point": "P9", "recording_area": "A1", "number": 1}),
		gistest.Feat(2, nil, map[string]any{"ts_point": "P9", "recording_area": "A1", "number": 2}),
	)
	p := gistest.NewProvider().
		AddLayer(points).
		AddLayer(objects).
		Relate("points", "point_id", "objects", "ts_point")

	warnings := detect.NewMissingPointsDetector(surveyConfig(), p).Detect()
	require.Len(t, warnings, 1)
	assert.Len(t, warnings[0].MissingPointIssues, 2, "Both objects are reported")
	assert.Equal(t, `"ts_point" = 'P9'`, warnings[0].FilterExpression,
		"The filter lists the shared value once")
}

func TestMissingPoints_DisabledFlag(t *testing.T) {
	cfg := surveyConfig()
	cfg.EnableMissingTotalStationWarnings = false
	p := gistest.NewProvider()

	assert.Nil(t, detect.NewMissingPointsDetector(cfg, p).Detect())
}
