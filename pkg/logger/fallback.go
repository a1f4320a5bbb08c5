// pkg/logger/fallback.go

package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewFallbackLogger builds a console-only logger for the cases where no log
// file is writable, for example a first boot before /var/log/cephkeys exists.
func NewFallbackLogger() *zap.Logger {
	cfg := DefaultConsoleEncoderConfig()

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level.SetLevel(ParseLogLevel(lvl))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// InitializeWithFallback sets up the standard tee of a human-readable console
// core on stderr and a JSON file core, degrading to console-only when no log
// path is writable. stdout stays clean for anything the tool itself emits.
func InitializeWithFallback() {
	path, err := FindWritableLogPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "no writable log path found, logging to console only")
		SetLogger(NewFallbackLogger())
		return
	}

	cfg := DefaultConsoleEncoderConfig()
	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	writer, err := GetLogFileWriter(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not write to log file, falling back to console:", err)
		writer = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), writer, level),
	)

	l := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("session_id", GenerateTraceID()))
	SetLogger(l)
	l.Debug("Logger initialized", zap.String("log_path", path))
}

// DefaultConsoleEncoderConfig returns the compact console encoding used by
// every console core.
func DefaultConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "T"
	cfg.LevelKey = "L"
	cfg.NameKey = "N"
	cfg.CallerKey = "C"
	cfg.MessageKey = "M"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}
