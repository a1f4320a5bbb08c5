// pkg/logger/logger_test.go

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{input: "debug", want: zapcore.DebugLevel},
		{input: "DEBUG", want: zapcore.DebugLevel},
		{input: " warn ", want: zapcore.WarnLevel},
		{input: "warning", want: zapcore.WarnLevel},
		{input: "error", want: zapcore.ErrorLevel},
		{input: "info", want: zapcore.InfoLevel},
		{input: "", want: zapcore.InfoLevel},
		{input: "trace", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}

func TestSetVerbose(t *testing.T) {
	SetVerbose(true)
	assert.True(t, level.Enabled(zapcore.DebugLevel))

	SetVerbose(false)
	assert.False(t, level.Enabled(zapcore.DebugLevel))
	assert.True(t, level.Enabled(zapcore.InfoLevel))
}

func TestGetLoggerInitializesFallback(t *testing.T) {
	assert.NotNil(t, GetLogger())
	assert.NotNil(t, L())
}
