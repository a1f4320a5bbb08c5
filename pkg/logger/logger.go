// pkg/logger/logger.go

package logger

import (
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log *zap.Logger

	// level gates every core built by this package so -v can raise
	// verbosity after initialization.
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// SetLogger installs l as the package, zap, and otelzap global logger.
func SetLogger(l *zap.Logger) {
	log = l
	zap.ReplaceGlobals(l)
	otelzap.ReplaceGlobals(otelzap.New(l))
}

// L returns the global logger, or nil if logging is uninitialized.
func L() *zap.Logger {
	return log
}

// GetLogger returns the global logger, initializing a console fallback if
// nothing has been set up yet.
func GetLogger() *zap.Logger {
	if log == nil {
		SetLogger(NewFallbackLogger())
	}
	return log
}

// SetVerbose switches the shared level to debug (or back to info).
func SetVerbose(verbose bool) {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

// ParseLogLevel maps a LOG_LEVEL-style string onto a zap level, defaulting
// to info for anything unrecognized.
func ParseLogLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries. Call before the process exits.
func Sync() error {
	if log == nil {
		return nil
	}
	return log.Sync()
}
