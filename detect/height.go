package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// Human-scaled distance bands used to aggregate height warnings.
var distanceBands = []string{"0-10cm", "10-50cm", "50cm-1m"}

// HeightDifferenceDetector flags pairs of nearby total station points
// whose recorded elevations disagree by more than the allowed tolerance.
// Proximity is resolved through a bounding-box spatial index, so large
// layers avoid a full pairwise scan.
type HeightDifferenceDetector struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewHeightDifferenceDetector(cfg *settings.Settings, provider gis.Provider) *HeightDifferenceDetector {
	return &HeightDifferenceDetector{
		cfg:      cfg,
		provider: provider,
		log:      logger.With(logger.FieldDetector, "height-difference"),
	}
}

func (d *HeightDifferenceDetector) Name() string { return "height-difference" }

func (d *HeightDifferenceDetector) Detect() (warnings []WarningData) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("height difference detection aborted", logger.FieldError, r)
		}
	}()

	if !d.cfg.EnableHeightWarnings {
		return nil
	}
	if d.cfg.TotalStationPointsLayer == "" {
		return nil
	}

	points := resolveLayers(d.provider, d.cfg.TotalStationPointsLayer, gis.TempPointsLayerName)
	layer := points.preferTemporary()
	if layer == nil {
		return nil
	}

	zField, ok := gis.ElevationField(layer)
	if !ok {
		d.log.Debugw("no elevation field on points layer", logger.FieldLayer, layer.Name)
		return nil
	}

	// Only features with geometry and a parseable elevation participate.
	type elevated struct {
		feature *gis.Feature
		point   orb.Point
		z       float64
	}
	var participants []elevated
	byID := make(map[int64]elevated)
	for _, feat := range layer.Features {
		if !feat.HasGeometry() {
			continue
		}
		p, ok := feat.Geometry.(orb.Point)
		if !ok {
			continue
		}
		z, ok := toFloat(feat.Attribute(zField))
		if !ok {
			continue
		}
		e := elevated{feature: feat, point: p, z: z}
		participants = append(participants, e)
		byID[feat.ID] = e
	}
	if len(participants) < 2 {
		return nil
	}

	index := gis.NewSpatialIndex(layer)
	pairs := make(gis.PairSet)
	issuesByBand := make(map[string][]HeightIssue)

	for _, e := range participants {
		bound := orb.Bound{Min: e.point, Max: e.point}.Pad(d.cfg.HeightMaxDistance)

		var candidates []*gis.Feature
		index.Search(bound, func(f *gis.Feature) bool {
			if f.ID != e.feature.ID {
				candidates = append(candidates, f)
			}
			return true
		})
		// Index scan order is unspecified; sort for deterministic output.
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

		for _, cand := range candidates {
			other, ok := byID[cand.ID]
			if !ok {
				continue
			}
			if !pairs.Add(e.feature.ID, cand.ID) {
				continue
			}
			distance := gis.GeometryDistance(e.point, other.point)
			if distance > d.cfg.HeightMaxDistance {
				continue
			}
			diff := math.Abs(e.z - other.z)
			if diff <= d.cfg.HeightMaxDifference {
				continue
			}
			band := distanceBand(distance)
			issuesByBand[band] = append(issuesByBand[band], HeightIssue{
				Feature1ID:       e.feature.ID,
				Feature2ID:       other.feature.ID,
				Label1:           featureLabel(layer, e.feature, "Point", pointLabelFields),
				Label2:           featureLabel(layer, other.feature, "Point", pointLabelFields),
				Distance:         distance,
				HeightDifference: diff,
				Z1:               e.z,
				Z2:               other.z,
			})
		}
	}

	identField, hasIdent := gis.IdentifierField(layer)
	for _, band := range distanceBands {
		issues := issuesByBand[band]
		if len(issues) == 0 {
			continue
		}
		warnings = append(warnings, WarningData{
			Message:           d.warningMessage(issues),
			RecordingAreaName: fmt.Sprintf("Height Difference %s", band),
			LayerName:         layer.Name,
			FilterExpression:  heightFilter(layer, issues, identField, hasIdent),
			HeightIssues:      issues,
		})
	}

	d.log.Debugw("height difference detection complete", logger.FieldCount, len(warnings))
	return warnings
}

// distanceBand maps a pairing distance to its aggregation band.
func distanceBand(distance float64) string {
	switch {
	case distance < 0.1:
		return distanceBands[0]
	case distance < 0.5:
		return distanceBands[1]
	default:
		return distanceBands[2]
	}
}

// heightFilter prefers the inferred identifier field, used only when every
// flagged point carries a value; otherwise it falls back to a row-id
// predicate so no flagged point escapes the selection.
func heightFilter(layer *gis.Layer, issues []HeightIssue, identField string, hasIdent bool) string {
	seen := make(map[int64]bool)
	var ids gis.FeatureIDs
	for _, issue := range issues {
		for _, id := range []int64{issue.Feature1ID, issue.Feature2ID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if hasIdent {
		var values []any
		labelled := 0
		for _, id := range ids {
			feat := featureByID(layer, id)
			if feat == nil {
				continue
			}
			if v := feat.Attribute(mustField(layer, identField)); v != nil && gis.RawValue(v) != "" {
				labelled++
				values = append(values, v)
			}
		}
		if labelled == len(ids) {
			values = dedupeValues(values)
			if len(values) == 1 {
				return gis.Eq{Field: mustField(layer, identField), Value: values[0]}.String()
			}
			return gis.In{Field: mustField(layer, identField), Values: values}.String()
		}
	}

	return ids.String()
}

func (d *HeightDifferenceDetector) warningMessage(issues []HeightIssue) string {
	maxDiff, maxDist := 0.0, 0.0
	for _, issue := range issues {
		if issue.HeightDifference > maxDiff {
			maxDiff = issue.HeightDifference
		}
		if issue.Distance > maxDist {
			maxDist = issue.Distance
		}
	}
	return fmt.Sprintf("%d point pair(s) within %.2f m differ in elevation by up to %.2f m (maximum allowed: %.2f m)",
		len(issues), maxDist, maxDiff, d.cfg.HeightMaxDifference)
}

func featureByID(l *gis.Layer, id int64) *gis.Feature {
	for _, f := range l.Features {
		if f.ID == id {
			return f
		}
	}
	return nil
}
