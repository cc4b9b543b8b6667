package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracing exporters accepted by NewTracerProvider
const (
	TracingExporterLog  = "log"
	TracingExporterNone = "none"
)

// LogExporter writes finished spans as log entries
type LogExporter struct {
	logger *logrus.Logger
}

// NewLogExporter creates an exporter writing to logger
func NewLogExporter(logger *logrus.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans logs one entry per span. Failed spans are logged at warn level,
// the rest at debug.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := logrus.Fields{
			"span":     span.Name(),
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
			"duration": span.EndTime().Sub(span.StartTime()).String(),
		}
		if parent := span.Parent(); parent.IsValid() {
			fields["parent_id"] = parent.SpanID().String()
		}
		for _, kv := range span.Attributes() {
			fields["attr."+string(kv.Key)] = kv.Value.Emit()
		}

		entry := e.logger.WithFields(fields)
		if status := span.Status(); status.Code == codes.Error {
			entry.WithField("status", status.Description).Warn("Span failed")
			continue
		}
		entry.Debug("Span finished")
	}
	return nil
}

// Shutdown has nothing to release
func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

// NewTracerProvider builds the process tracer provider. The log exporter
// batches spans into logger; "none" samples and records spans without
// exporting them.
func NewTracerProvider(exporter string, sampleRatio float64, logger *logrus.Logger) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "aacfetch"))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	}

	switch strings.ToLower(strings.TrimSpace(exporter)) {
	case TracingExporterLog:
		opts = append(opts, sdktrace.WithBatcher(NewLogExporter(logger)))
	case TracingExporterNone, "":
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", exporter)
	}

	return sdktrace.NewTracerProvider(opts...), nil
}
