package detect

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// DuplicateObjectsDetector flags objects sharing the same recording area
// and number. Three passes: within the definitive layer, within the
// temporary layer, and a temporary object whose key already exists among
// definitive objects.
type DuplicateObjectsDetector struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewDuplicateObjectsDetector(cfg *settings.Settings, provider gis.Provider) *DuplicateObjectsDetector {
	return &DuplicateObjectsDetector{
		cfg:      cfg,
		provider: provider,
		log:      logger.With(logger.FieldDetector, "duplicate-objects"),
	}
}

func (d *DuplicateObjectsDetector) Name() string { return "duplicate-objects" }

// Detect returns one warning per duplicated (recording area, number) key.
func (d *DuplicateObjectsDetector) Detect() (warnings []WarningData) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("duplicate objects detection aborted", logger.FieldError, r)
		}
	}()

	if d.cfg.ObjectsLayer == "" || d.cfg.RecordingAreasLayer == "" || d.cfg.ObjectsNumberField == "" {
		return nil
	}

	objects, ok := d.provider.LayerByID(d.cfg.ObjectsLayer)
	if !ok {
		return nil
	}
	areas, ok := d.provider.LayerByID(d.cfg.RecordingAreasLayer)
	if !ok {
		return nil
	}

	rel, ok := gis.RelationBetween(d.provider, d.cfg.ObjectsLayer, d.cfg.RecordingAreasLayer)
	if !ok {
		d.log.Debugw("no relation between objects and recording areas layers")
		return nil
	}
	areaField, ok := gis.ReferencingField(rel, objects)
	if !ok {
		return nil
	}
	refField, ok := gis.ReferencedField(rel, areas)
	if !ok {
		return nil
	}

	warnings = append(warnings, d.withinLayer(objects, areas, areaField, refField)...)

	if temp, ok := d.provider.LayerByName(gis.TempObjectsLayerName); ok {
		warnings = append(warnings, d.withinLayer(temp, areas, areaField, refField)...)
		warnings = append(warnings, d.betweenLayers(objects, temp, areas, areaField, refField)...)
	}

	d.log.Debugw("duplicate objects detection complete", logger.FieldCount, len(warnings))
	return warnings
}

func (d *DuplicateObjectsDetector) withinLayer(objects, areas *gis.Layer, areaField, refField string) []WarningData {
	var warnings []WarningData

	buckets, order := gis.BucketByFieldsExact(objects, areaField, d.cfg.ObjectsNumberField)
	for _, key := range order {
		features := buckets[key]
		if len(features) < 2 {
			continue
		}
		areaValue := features[0].Attribute(mustField(objects, areaField))
		number := features[0].Attribute(mustField(objects, d.cfg.ObjectsNumberField))
		name := areaName(areas, refField, areaValue)

		warnings = append(warnings, WarningData{
			Message: fmt.Sprintf("Recording Area '%s' has %d objects with number %s in layer '%s'",
				name, len(features), gis.RawValue(number), objects.Name),
			RecordingAreaName: name,
			LayerName:         objects.Name,
			FilterExpression:  duplicateFilter(objects, areaField, areaValue, d.cfg.ObjectsNumberField, number),
			ObjectNumber:      number,
		})
	}
	return warnings
}

// betweenLayers flags temporary objects whose key already exists among
// definitive objects.
func (d *DuplicateObjectsDetector) betweenLayers(definitive, temp, areas *gis.Layer, areaField, refField string) []WarningData {
	var warnings []WarningData

	existing, _ := gis.BucketByFieldsExact(definitive, areaField, d.cfg.ObjectsNumberField)
	if len(existing) == 0 {
		return nil
	}

	tempBuckets, order := gis.BucketByFieldsExact(temp, areaField, d.cfg.ObjectsNumberField)
	for _, key := range order {
		features := existing[key]
		if len(features) == 0 {
			continue
		}
		tempFeat := tempBuckets[key][0]
		areaValue := tempFeat.Attribute(mustField(temp, areaField))
		number := tempFeat.Attribute(mustField(temp, d.cfg.ObjectsNumberField))
		name := areaName(areas, refField, areaValue)

		warnings = append(warnings, WarningData{
			Message: fmt.Sprintf("Recording Area '%s' already has %d object(s) with number %s in layer '%s'",
				name, len(features), gis.RawValue(number), definitive.Name),
			RecordingAreaName:      name,
			LayerName:              definitive.Name,
			FilterExpression:       duplicateFilter(definitive, areaField, areaValue, d.cfg.ObjectsNumberField, number),
			SecondLayerName:        temp.Name,
			SecondFilterExpression: duplicateFilter(temp, areaField, areaValue, d.cfg.ObjectsNumberField, number),
			ObjectNumber:           number,
		})
	}
	return warnings
}

func duplicateFilter(l *gis.Layer, areaField string, areaValue any, numberField string, number any) string {
	return gis.And{
		gis.Eq{Field: mustField(l, areaField), Value: areaValue},
		gis.Eq{Field: mustField(l, numberField), Value: number},
	}.String()
}

// mustField returns the layer's canonical spelling of a field known to
// resolve, or the name unchanged when it does not.
func mustField(l *gis.Layer, name string) string {
	if f, ok := l.ResolveField(name); ok {
		return f.Name
	}
	return name
}
