// Package tracing configures the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const TracerName = "github.com/joelkehle/priorart-engine"

type ShutdownFunc func(context.Context) error

type Options struct {
	// Endpoint is an OTLP/HTTP collector host:port. Empty disables export.
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// Setup returns a tracer provider and its shutdown hook. Without an endpoint
// the provider is a no-op and nothing is exported. The provider is also
// installed as the global one.
func Setup(ctx context.Context, opts Options) (trace.TracerProvider, ShutdownFunc, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	name := opts.ServiceName
	if name == "" {
		name = "priorart-engine"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp, tp.Shutdown, nil
}

func Tracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer(TracerName)
}
