package detect

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// DuplicateIdentifiersDetector flags total station points sharing an
// identifier: within the freshly imported layer, and between the imported
// and definitive layers. The identifier field is inferred through the gis
// heuristics because imported layers carry no declared relations.
type DuplicateIdentifiersDetector struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewDuplicateIdentifiersDetector(cfg *settings.Settings, provider gis.Provider) *DuplicateIdentifiersDetector {
	return &DuplicateIdentifiersDetector{
		cfg:      cfg,
		provider: provider,
		log:      logger.With(logger.FieldDetector, "duplicate-identifiers"),
	}
}

func (d *DuplicateIdentifiersDetector) Name() string { return "duplicate-identifiers" }

func (d *DuplicateIdentifiersDetector) Detect() (warnings []WarningData) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("duplicate identifier detection aborted", logger.FieldError, r)
		}
	}()

	if !d.cfg.EnableDuplicateTotalStationIdentifiersWarnings {
		return nil
	}
	if d.cfg.TotalStationPointsLayer == "" {
		return nil
	}
	definitive, ok := d.provider.LayerByID(d.cfg.TotalStationPointsLayer)
	if !ok {
		return nil
	}
	temp, hasTemp := d.provider.LayerByName(gis.TempPointsLayerName)

	var identField string
	if hasTemp {
		identField, ok = gis.CommonIdentifierField(definitive, temp)
	} else {
		identField, ok = gis.IdentifierField(definitive)
	}
	if !ok {
		d.log.Debugw("no usable identifier field for total station points")
		return nil
	}
	d.log.Debugw("using identifier field", logger.FieldField, identField)

	if !hasTemp {
		// Nothing to compare: duplicates surface when an import is pending.
		return nil
	}

	warnings = append(warnings, d.withinLayer(temp, identField)...)
	warnings = append(warnings, d.betweenLayers(definitive, temp, identField)...)

	d.log.Debugw("duplicate identifier detection complete", logger.FieldCount, len(warnings))
	return warnings
}

// withinLayer groups features by raw identifier value; groups of two or
// more yield a warning.
func (d *DuplicateIdentifiersDetector) withinLayer(l *gis.Layer, identField string) []WarningData {
	var warnings []WarningData

	field, ok := l.ResolveField(identField)
	if !ok {
		return nil
	}

	groups := make(map[string][]*gis.Feature)
	var order []string
	for _, feat := range l.Features {
		value := gis.RawValue(feat.Attribute(field.Name))
		if value == "" {
			continue
		}
		if _, seen := groups[value]; !seen {
			order = append(order, value)
		}
		groups[value] = append(groups[value], feat)
	}

	for _, value := range order {
		features := groups[value]
		if len(features) < 2 {
			continue
		}
		warnings = append(warnings, WarningData{
			Message: fmt.Sprintf("Found %d total station points with the same identifier '%s' in layer '%s'",
				len(features), value, l.Name),
			LayerName:        l.Name,
			FilterExpression: gis.Eq{Field: field.Name, Value: value}.String(),
		})
	}
	return warnings
}

// betweenLayers flags identifier values present in both the imported and
// definitive layers. The definitive layer is only scanned for membership
// in the imported layer's value set, never exhaustively cross-joined.
func (d *DuplicateIdentifiersDetector) betweenLayers(definitive, temp *gis.Layer, identField string) []WarningData {
	var warnings []WarningData

	tempField, ok := temp.ResolveField(identField)
	if !ok {
		return nil
	}
	defField, ok := definitive.ResolveField(identField)
	if !ok {
		return nil
	}

	tempValues := make(map[string]bool)
	var order []string
	for _, feat := range temp.Features {
		value := gis.RawValue(feat.Attribute(tempField.Name))
		if value == "" || tempValues[value] {
			continue
		}
		tempValues[value] = true
		order = append(order, value)
	}
	if len(tempValues) == 0 {
		return nil
	}

	inDefinitive := make(map[string]bool)
	for _, feat := range definitive.Features {
		value := gis.RawValue(feat.Attribute(defField.Name))
		if value != "" && tempValues[value] {
			inDefinitive[value] = true
		}
	}

	for _, value := range order {
		if !inDefinitive[value] {
			continue
		}
		warnings = append(warnings, WarningData{
			Message: fmt.Sprintf("Total station point identifier '%s' already exists in layer '%s'",
				value, definitive.Name),
			LayerName:              definitive.Name,
			FilterExpression:       gis.Eq{Field: defField.Name, Value: value}.String(),
			SecondLayerName:        temp.Name,
			SecondFilterExpression: gis.Eq{Field: tempField.Name, Value: value}.String(),
		})
	}
	return warnings
}
