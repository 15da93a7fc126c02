package gis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/internal/gistest"
)

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "a1", gis.NormalizeValue("  A1 "))
	assert.Equal(t, "42", gis.NormalizeValue(42))
	assert.Equal(t, "", gis.NormalizeValue(nil))
	assert.Equal(t, "", gis.NormalizeValue("   "))
}

func TestCompositeKey_SeparatesParts(t *testing.T) {
	assert.NotEqual(t, gis.CompositeKey("ab", "c"), gis.CompositeKey("a", "bc"),
		"Adjacent parts must not collide")
}

func TestBucketByFields_GroupsByNormalizedKey(t *testing.T) {
	layer := gistest.Layer("objects", "Objects", gis.RoleDefinitive,
		[]gis.Field{gistest.StringField("recording_area"), gistest.IntField("number")},
		gistest.Feat(1, nil, map[string]any{"recording_area": "A1", "number": 7}),
		gistest.Feat(2, nil, map[string]any{"recording_area": " a1", "number": 7}),
		gistest.Feat(3, nil, map[string]any{"recording_area": "A2", "number": 7}),
	)

	buckets, order := gis.BucketByFields(layer, "recording_area", "number")
	require.Len(t, order, 2)
	assert.Len(t, buckets[order[0]], 2, "Differently cased area values should share a bucket")
	assert.Len(t, buckets[order[1]], 1)
}

func TestBucketByFieldsExact_KeepsDistinctCasing(t *testing.T) {
	layer := gistest.Layer("objects", "Objects", gis.RoleDefinitive,
		[]gis.Field{gistest.StringField("recording_area"), gistest.IntField("number")},
		gistest.Feat(1, nil, map[string]any{"recording_area": "A1", "number": 7}),
		gistest.Feat(2, nil, map[string]any{"recording_area": "a1", "number": 7}),
		gistest.Feat(3, nil, map[string]any{"recording_area": "A1", "number": 7}),
	)

	buckets, order := gis.BucketByFieldsExact(layer, "recording_area", "number")
	require.Len(t, order, 2, "'A1' and 'a1' must land in separate buckets")
	assert.Len(t, buckets[gis.ExactCompositeKey("A1", 7)], 2)
	assert.Len(t, buckets[gis.ExactCompositeKey("a1", 7)], 1)
}

func TestBucketByFields_SkipsEmptyKeyParts(t *testing.T) {
	layer := gistest.Layer("objects", "Objects", gis.RoleDefinitive,
		[]gis.Field{gistest.StringField("recording_area"), gistest.IntField("number")},
		gistest.Feat(1, nil, map[string]any{"recording_area": "A1", "number": 7}),
		gistest.Feat(2, nil, map[string]any{"recording_area": nil, "number": 7}),
		gistest.Feat(3, nil, map[string]any{"recording_area": "  ", "number": 7}),
		gistest.Feat(4, nil, map[string]any{"recording_area": "A1"}),
	)

	buckets, order := gis.BucketByFields(layer, "recording_area", "number")
	require.Len(t, order, 1)
	assert.Len(t, buckets[order[0]], 1, "Features with nil, blank or missing key values stay out")
}

func TestBucketByFields_FirstSeenOrder(t *testing.T) {
	layer := gistest.Layer("objects", "Objects", gis.RoleDefinitive,
		[]gis.Field{gistest.StringField("recording_area")},
		gistest.Feat(1, nil, map[string]any{"recording_area": "B"}),
		gistest.Feat(2, nil, map[string]any{"recording_area": "A"}),
		gistest.Feat(3, nil, map[string]any{"recording_area": "B"}),
	)

	_, order := gis.BucketByFields(layer, "recording_area")
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestBucketByFields_ResolvesFieldCaseInsensitively(t *testing.T) {
	layer := gistest.Layer("objects", "Objects", gis.RoleDefinitive,
		[]gis.Field{gistest.StringField("Recording_Area")},
		gistest.Feat(1, nil, map[string]any{"Recording_Area": "A1"}),
	)

	buckets, order := gis.BucketByFields(layer, "recording_area")
	require.Len(t, order, 1)
	assert.Len(t, buckets[order[0]], 1)
}

func TestBucketByFields_UnknownFieldYieldsNothing(t *testing.T) {
	layer := gistest.Layer("objects", "Objects", gis.RoleDefinitive,
		[]gis.Field{gistest.StringField("recording_area")},
		gistest.Feat(1, nil, map[string]any{"recording_area": "A1"}),
	)

	buckets, order := gis.BucketByFields(layer, "nope")
	assert.Empty(t, buckets)
	assert.Empty(t, order)
}
