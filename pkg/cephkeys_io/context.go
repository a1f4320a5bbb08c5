// pkg/cephkeys_io/context.go

package cephkeys_io

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_err"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/telemetry"
)

// RuntimeContext carries everything a command handler needs: the cancellable
// context, a scoped logger, the command's telemetry span, and its start time.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Span       trace.Span
	Timestamp  time.Time
	Command    string
	Attributes map[string]string
}

// NewContext sets up tracing and a scoped logger for one command run.
func NewContext(ctx context.Context, cmdName string) *RuntimeContext {
	ctx, span := telemetry.Start(ctx, cmdName)
	traceID := span.SpanContext().TraceID().String()

	logger := zap.L().With(
		zap.String("command", cmdName),
		zap.String("trace_id", traceID),
	).Named(cmdName)

	return &RuntimeContext{
		Ctx:        ctx,
		Log:        logger,
		Span:       span,
		Timestamp:  time.Now(),
		Command:    cmdName,
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r))
	}
}

// End logs outcome, emits a final telemetry span, and flushes.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	duration := time.Since(rc.Timestamp)
	success := (*errPtr == nil)

	if success {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(*errPtr))
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("os", runtime.GOOS),
		attribute.String("args", strings.Join(os.Args[1:], " ")),
		attribute.String("version", shared.Version),
		attribute.String("error_type", classifyError(*errPtr)),
	}

	_, span := telemetry.Start(rc.Ctx, rc.Command, attrs...)
	span.End()

	shared.SafeSync()
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if cephkeys_err.IsExpectedUserError(err) {
		return "user"
	}
	return "system"
}
