package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoarch/fieldqa/detect"
	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/internal/gistest"
	"github.com/geoarch/fieldqa/settings"
)

func TestRunner_FixedDetectorOrder(t *testing.T) {
	r := detect.NewRunner(settings.Default(), gistest.NewProvider())

	var names []string
	for _, d := range r.Detectors() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{
		"duplicate-objects",
		"duplicate-identifiers",
		"skipped-numbers",
		"distance",
		"height-difference",
		"out-of-bounds",
		"missing-points",
	}, names)
}

func TestRunner_UnconfiguredProjectYieldsNothing(t *testing.T) {
	// Default settings name no layers; every detector declines quietly.
	r := detect.NewRunner(settings.Default(), gistest.NewProvider())
	assert.Empty(t, r.Run())
}

func TestRunner_AllDetectorsDisabled(t *testing.T) {
	cfg := surveyConfig()
	cfg.EnableDistanceWarnings = false
	cfg.EnableHeightWarnings = false
	cfg.EnableBoundsWarnings = false
	cfg.EnableDuplicateTotalStationIdentifiersWarnings = false
	cfg.EnableMissingTotalStationWarnings = false
	cfg.EnableSkippedNumbersWarnings = false
	cfg.ObjectsLayer = ""

	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive, objectsFields(),
		gistest.Feat(1, gistest.Point(100, 100), map[string]any{"recording_area": "A1", "number": 1}),
		gistest.Feat(2, gistest.Point(200, 200), map[string]any{"recording_area": "A1", "number": 1}),
	)
	p := gistest.NewProvider().
		AddLayer(objects).
		AddLayer(areasLayer()).
		Relate("objects", "recording_area", "areas", "id")

	assert.Empty(t, detect.NewRunner(cfg, p).Run())
}

// panickyProvider blows up on relation access, simulating a corrupt
// project snapshot.
type panickyProvider struct {
	*gistest.Provider
}

func (p panickyProvider) Relations() []*gis.Relation {
	panic("corrupt relation metadata")
}

func TestRunner_DetectorPanicDoesNotSuppressOthers(t *testing.T) {
	definitive := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields())
	temp := gistest.Layer("csv", "Imported_CSV_Points", gis.RoleTemporary, pointsFields(),
		gistest.Feat(1, gistest.Point(0, 0), map[string]any{"point_id": "P1"}),
		gistest.Feat(2, gistest.Point(1, 0), map[string]any{"point_id": "P1"}),
	)
	inner := gistest.NewProvider().AddLayer(definitive).AddLayer(temp)

	// Detectors resolving relations panic; the duplicate identifier
	// detector never touches relations and still reports.
	var warnings []detect.WarningData
	require.NotPanics(t, func() {
		warnings = detect.NewRunner(surveyConfig(), panickyProvider{inner}).Run()
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "same identifier 'P1'")
}

// End-to-end: a small project with one of everything wrong.
func TestRunner_FullProjectScenario(t *testing.T) {
	areas := areasLayer()
	objects := gistest.Layer("objects", "Objects", gis.RoleDefinitive,
		[]gis.Field{
			gistest.StringField("recording_area"),
			gistest.IntField("number"),
			gistest.StringField("ts_point"),
		},
		gistest.Feat(1, gistest.Point(1, 1), map[string]any{"recording_area": "A1", "number": 1, "ts_point": "P1"}),
		gistest.Feat(2, gistest.Point(2, 2), map[string]any{"recording_area": "A1", "number": 3, "ts_point": "P2"}),
		gistest.Feat(3, gistest.Point(3, 3), map[string]any{"recording_area": "A1", "number": 5, "ts_point": "P3"}),
	)
	tempObjects := gistest.Layer("new_objects", "New Objects", gis.RoleTemporary,
		objects.Fields,
		gistest.Feat(1, gistest.Point(4, 4), map[string]any{"recording_area": "A1", "number": 7, "ts_point": "P4"}),
	)
	points := gistest.Layer("points", "Total Station Points", gis.RoleDefinitive, pointsFields(),
		gistest.Feat(1, gistest.Point(1, 1), map[string]any{"point_id": "P1", "z": 10.0}),
		gistest.Feat(2, gistest.Point(2, 2), map[string]any{"point_id": "P2", "z": 10.0}),
		gistest.Feat(3, gistest.Point(3, 3), map[string]any{"point_id": "P3", "z": 10.0}),
		gistest.Feat(4, gistest.Point(4, 4), map[string]any{"point_id": "P4", "z": 10.0}),
	)

	p := gistest.NewProvider().
		AddLayer(areas).
		AddLayer(objects).
		AddLayer(tempObjects).
		AddLayer(points).
		Relate("objects", "recording_area", "areas", "id").
		Relate("points", "point_id", "objects", "ts_point")

	warnings := detect.NewRunner(surveyConfig(), p).Run()
	require.Len(t, warnings, 1, "Only the numbering gaps are wrong in this project")
	assert.Equal(t, []int{2, 4, 6}, warnings[0].SkippedNumbers,
		"Definitive numbers 1,3,5 plus imported 7 leave gaps 2,4,6")
}
