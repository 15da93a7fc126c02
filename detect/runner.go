package detect

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/logger"
	"github.com/geoarch/fieldqa/settings"
)

// Detector is one data-quality pass over the project snapshot.
type Detector interface {
	Name() string
	Detect() []WarningData
}

// Runner invokes the configured detectors sequentially, isolating each so
// one detector's failure cannot suppress another's results. Partial
// results are preferable to total failure.
type Runner struct {
	cfg      *settings.Settings
	provider gis.Provider
	log      *zap.SugaredLogger
}

func NewRunner(cfg *settings.Settings, provider gis.Provider) *Runner {
	return &Runner{cfg: cfg, provider: provider, log: logger.Logger}
}

// Detectors returns all detectors in their fixed execution order. None
// depends on another's output.
func (r *Runner) Detectors() []Detector {
	return []Detector{
		NewDuplicateObjectsDetector(r.cfg, r.provider),
		NewDuplicateIdentifiersDetector(r.cfg, r.provider),
		NewSkippedNumbersDetector(r.cfg, r.provider),
		NewDistanceDetector(r.cfg, r.provider),
		NewHeightDifferenceDetector(r.cfg, r.provider),
		NewOutOfBoundsDetector(r.cfg, r.provider),
		NewMissingPointsDetector(r.cfg, r.provider),
	}
}

// Run executes every detector and concatenates their warnings in detector
// order.
func (r *Runner) Run() []WarningData {
	runID := uuid.NewString()
	log := r.log.With(logger.FieldRunID, runID)

	var all []WarningData
	for _, d := range r.Detectors() {
		warnings := r.runOne(d, log)
		log.Infow("detector finished",
			logger.FieldDetector, d.Name(),
			logger.FieldCount, len(warnings),
		)
		all = append(all, warnings...)
	}
	return all
}

// runOne is the orchestrator's isolation boundary: detectors already
// recover internally, but a fault in a constructor or in Detect's prologue
// must not take down the remaining detectors either.
func (r *Runner) runOne(d Detector, log *zap.SugaredLogger) (warnings []WarningData) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("detector failed",
				logger.FieldDetector, d.Name(),
				logger.FieldError, rec,
			)
		}
	}()
	return d.Detect()
}
