// pkg/logger/lifecycle.go

package logger

import (
	"github.com/google/uuid"
)

// GenerateTraceID returns a short 8-char id for correlating every log line
// of one process run.
func GenerateTraceID() string {
	return uuid.New().String()[:8]
}
