package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoarch/fieldqa/settings"
)

func TestDefault_ThresholdsAndFlags(t *testing.T) {
	s := settings.Default()

	assert.True(t, s.EnableDistanceWarnings)
	assert.InDelta(t, 0.05, s.DistanceMaxDistance, 1e-9)
	assert.True(t, s.EnableHeightWarnings)
	assert.InDelta(t, 1.0, s.HeightMaxDistance, 1e-9)
	assert.InDelta(t, 0.2, s.HeightMaxDifference, 1e-9)
	assert.True(t, s.EnableBoundsWarnings)
	assert.InDelta(t, 0.2, s.BoundsMaxDistance, 1e-9)
	assert.True(t, s.EnableDuplicateTotalStationIdentifiersWarnings)
	assert.True(t, s.EnableMissingTotalStationWarnings)
	assert.True(t, s.EnableSkippedNumbersWarnings)

	assert.Empty(t, s.ObjectsLayer, "No layer is configured out of the box")
	assert.Empty(t, s.RecordingAreasLayer)
	assert.Empty(t, s.TotalStationPointsLayer)
	assert.Empty(t, s.ObjectsNumberField)
}

func TestLoadFromFile_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldqa.toml")
	content := `
distance_max_distance = 0.1
enable_height_warnings = false
objects_layer = "objects"
objects_number_field = "number"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := settings.LoadFromFile(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, s.DistanceMaxDistance, 1e-9)
	assert.False(t, s.EnableHeightWarnings)
	assert.Equal(t, "objects", s.ObjectsLayer)
	assert.Equal(t, "number", s.ObjectsNumberField)

	assert.True(t, s.EnableDistanceWarnings, "Unset keys keep their defaults")
	assert.InDelta(t, 1.0, s.HeightMaxDistance, 1e-9)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := settings.LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadFromFile_EnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldqa.toml")
	require.NoError(t, os.WriteFile(path, []byte("objects_layer = \"objects\"\n"), 0o644))

	t.Setenv("FIELDQA_OBJECTS_NUMBER_FIELD", "numero")

	s, err := settings.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "numero", s.ObjectsNumberField)
}
