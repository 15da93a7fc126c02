// Package logger provides structured, leveled logging for fieldqa on top
// of zap. The engine is a library first: the default logger is a no-op so
// embedding hosts stay silent unless they opt in via Initialize.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for consistent structured logging.
const (
	FieldRunID    = "run_id"
	FieldDetector = "detector"
	FieldLayer    = "layer"
	FieldRelation = "relation"
	FieldField    = "field"
	FieldCount    = "count"
	FieldError    = "error"
)

// Logger is the global sugared logger. It is a no-op until Initialize is
// called, so library consumers never see unsolicited output.
var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. JSON output is for machine
// consumption; otherwise a human-readable console encoder is used.
func Initialize(jsonOutput bool, verbose bool) error {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	var config zap.Config
	if jsonOutput {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := config.Build()
	if err != nil {
		return err
	}
	Logger = zapLogger.Sugar()
	return nil
}

// With returns a child logger carrying the given structured fields.
func With(args ...any) *zap.SugaredLogger {
	return Logger.With(args...)
}
