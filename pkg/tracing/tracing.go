// Package tracing installs the process-wide OpenTelemetry tracer provider and
// W3C propagators so otelhttp, the client spans and logger.WithTrace see real
// span contexts.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the provider built by Setup.
type Option func(*[]sdktrace.TracerProviderOption)

// WithExporter batches finished spans to exp. Without one, spans are still
// created and propagated but not exported anywhere.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *[]sdktrace.TracerProviderOption) {
		*opts = append(*opts, sdktrace.WithBatcher(exp))
	}
}

// Setup registers a tracer provider and the tracecontext+baggage propagators
// globally. The returned function flushes and stops the provider.
func Setup(serviceName string, opts ...Option) func(context.Context) error {
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	}
	for _, opt := range opts {
		opt(&tpOpts)
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
