package detect

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// SkippedNumbersDetector finds gaps in the object numbering sequence of
// each recording area, combining definitive and temporary objects into one
// sequence so a gap closed by pending imports is not reported.
type SkippedNumbersDetector struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewSkippedNumbersDetector(cfg *settings.Settings, provider gis.Provider) *SkippedNumbersDetector {
	return &SkippedNumbersDetector{
		cfg:      cfg,
		provider: provider,
		log:      logger.With(logger.FieldDetector, "skipped-numbers"),
	}
}

func (d *SkippedNumbersDetector) Name() string { return "skipped-numbers" }

func (d *SkippedNumbersDetector) Detect() (warnings []WarningData) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("skipped number detection aborted", logger.FieldError, r)
		}
	}()

	if !d.cfg.EnableSkippedNumbersWarnings {
		return nil
	}
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

	temp, _ := d.provider.LayerByName(gis.TempObjectsLayerName)

	// Numbers per recording area, both layers combined; keys in
	// first-seen order for deterministic output.
	type areaNumbers struct {
		value       any
		numbers     []int
		tempNumbers map[int]bool
	}
	combined := make(map[string]*areaNumbers)
	var order []string

	collect := func(l *gis.Layer, temporary bool) {
		if l == nil {
			return
		}
		af, ok := l.ResolveField(areaField)
		if !ok {
			return
		}
		nf, ok := l.ResolveField(d.cfg.ObjectsNumberField)
		if !ok {
			return
		}
		for _, feat := range l.Features {
			areaValue := feat.Attribute(af.Name)
			key := gis.NormalizeValue(areaValue)
			if key == "" {
				continue
			}
			n, ok := toInt(feat.Attribute(nf.Name))
			if !ok {
				// Non-integer numbers are data noise, not errors.
				continue
			}
			entry := combined[key]
			if entry == nil {
				entry = &areaNumbers{value: areaValue}
				combined[key] = entry
				order = append(order, key)
			}
			entry.numbers = append(entry.numbers, n)
			if temporary {
				if entry.tempNumbers == nil {
					entry.tempNumbers = make(map[int]bool)
				}
				entry.tempNumbers[n] = true
			}
		}
	}
	collect(objects, false)
	collect(temp, true)

	for _, key := range order {
		entry := combined[key]
		if len(entry.numbers) < 2 {
			// No sequence to have gaps in.
			continue
		}
		sort.Ints(entry.numbers)
		gaps := Gaps(entry.numbers)
		if len(gaps) == 0 {
			continue
		}

		context := gapContext(entry.numbers)
		name := areaName(areas, refField, entry.value)

		// The temporary layer gets its own filter only when it holds a
		// context number for this area; otherwise the filter would select
		// nothing.
		tempInvolved := false
		for _, n := range context {
			if entry.tempNumbers[n] {
				tempInvolved = true
				break
			}
		}

		layerNames := objects.Name
		if tempInvolved {
			layerNames += " and " + temp.Name
		}

		warning := WarningData{
			Message: fmt.Sprintf("Recording Area '%s' has skipped numbers: %s in %s",
				name, joinInts(gaps), layerNames),
			RecordingAreaName: name,
			LayerName:         objects.Name,
			FilterExpression:  skippedFilter(objects, areaField, entry.value, d.cfg.ObjectsNumberField, context),
			SkippedNumbers:    gaps,
		}
		if tempInvolved {
			warning.SecondLayerName = temp.Name
			warning.SecondFilterExpression = skippedFilter(temp, areaField, entry.value, d.cfg.ObjectsNumberField, context)
		}
		warnings = append(warnings, warning)
	}

	d.log.Debugw("skipped number detection complete", logger.FieldCount, len(warnings))
	return warnings
}

// Gaps returns the integers strictly between consecutive elements of a
// sorted sequence that are absent from it. Duplicates in the input are
// harmless.
func Gaps(sorted []int) []int {
	var gaps []int
	for i := 0; i+1 < len(sorted); i++ {
		for missing := sorted[i] + 1; missing < sorted[i+1]; missing++ {
			gaps = append(gaps, missing)
		}
	}
	return gaps
}

// gapContext returns the gap numbers plus the nearest present value below
// and above each gap, so the filter also highlights the numbers bracketing
// each gap.
func gapContext(sorted []int) []int {
	seen := make(map[int]bool)
	var context []int
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			context = append(context, n)
		}
	}
	for i := 0; i+1 < len(sorted); i++ {
		if sorted[i+1] <= sorted[i]+1 {
			continue
		}
		add(sorted[i])
		for missing := sorted[i] + 1; missing < sorted[i+1]; missing++ {
			add(missing)
		}
		add(sorted[i+1])
	}
	sort.Ints(context)
	return context
}

func skippedFilter(l *gis.Layer, areaField string, areaValue any, numberField string, context []int) string {
	values := make([]any, len(context))
	for i, n := range context {
		values[i] = n
	}
	return gis.And{
		gis.Eq{Field: mustField(l, areaField), Value: areaValue},
		gis.In{Field: mustField(l, numberField), Values: values},
	}.String()
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
