// Package tracing installs the OpenTelemetry SDK with an exporter that writes
// finished spans to the structured log.
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"trainingcenter/internal/platform/config"
)

// Setup installs a global tracer provider when tracing is enabled. The
// returned shutdown flushes pending spans and is safe to call when disabled.
func Setup(cfg config.TracingConfig, logger *slog.Logger) func(context.Context) error {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }
	}
	provider := NewProvider(cfg.ServiceName, NewLogExporter(logger))
	otel.SetTracerProvider(provider)
	return provider.Shutdown
}

// NewProvider builds a batching provider tagged with the service name.
func NewProvider(serviceName string, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
}

// LogExporter writes one debug line per span, or a warning for failed spans.
type LogExporter struct {
	logger *slog.Logger
}

func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		attrs := []any{
			"span", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
			"duration_ms", span.EndTime().Sub(span.StartTime()).Milliseconds(),
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, string(kv.Key), kv.Value.Emit())
		}
		if span.Status().Code == codes.Error {
			attrs = append(attrs, "status", span.Status().Description)
			e.logger.WarnContext(ctx, "span failed", attrs...)
			continue
		}
		e.logger.DebugContext(ctx, "span finished", attrs...)
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
