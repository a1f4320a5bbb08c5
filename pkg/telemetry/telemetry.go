// pkg/telemetry/telemetry.go

package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/shared"
)

var tracer trace.Tracer

// Init configures OpenTelemetry; call this early in main(). Tracing is
// opt-in: without the marker file every span is a no-op.
func Init(service string) error {
	if !IsEnabled() {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		tracer = tp.Tracer(service)
		return nil
	}

	telemetryDir := shared.LogDir
	if err := os.MkdirAll(telemetryDir, 0o755); err != nil {
		// Fall back to the user state dir if the system directory fails.
		telemetryDir = filepath.Join(os.Getenv("HOME"), "."+shared.AppID, "telemetry")
		if err := os.MkdirAll(telemetryDir, 0o700); err != nil {
			return cerr.Wrap(err, "failed to create telemetry directory")
		}
	}

	telemetryFile := filepath.Join(telemetryDir, "telemetry.jsonl")
	file, err := os.OpenFile(telemetryFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return cerr.Wrap(err, "failed to open telemetry file")
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		_ = file.Close()
		return cerr.Wrap(err, "failed to create file exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(
			sdkresource.NewWithAttributes(
				semconv.SchemaURL,
				attribute.String("service.name", service),
				attribute.String("host.name", hostname()),
			),
		),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(service)
	return nil
}

// Start a telemetry span with optional attributes.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(shared.AppID)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// IsEnabled reports whether the opt-in marker file exists.
func IsEnabled() bool {
	path := filepath.Join(os.Getenv("HOME"), "."+shared.AppID, "telemetry_on")
	_, err := os.Stat(path)
	return err == nil
}

// AnonTelemetryID returns a stable anonymous install identifier.
func AnonTelemetryID() string {
	path := filepath.Join(os.Getenv("HOME"), "."+shared.AppID, "telemetry_id")

	if data, err := os.ReadFile(path); err == nil {
		return strings.TrimSpace(string(data))
	}

	id := "anon-" + uuid.New().String()
	_ = os.MkdirAll(filepath.Dir(path), 0o700)
	_ = os.WriteFile(path, []byte(id), 0o600)

	return id
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
