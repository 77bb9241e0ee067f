package telemetry

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracingOptions configures InitTracing.
type TracingOptions struct {
	// Console exports spans as pretty JSON to Writer.
	Console bool
	Writer  io.Writer
	// Processors are registered in addition to the console exporter.
	Processors []sdktrace.SpanProcessor
}

// InitTracing creates a tracer provider. Callers own its shutdown.
func InitTracing(serviceName string, optFns ...func(o *TracingOptions)) (*sdktrace.TracerProvider, error) {
	opts := TracingOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)

	if opts.Console {
		exporterOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if opts.Writer != nil {
			exporterOpts = append(exporterOpts, stdouttrace.WithWriter(opts.Writer))
		}

		exporter, err := stdouttrace.New(exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		tp.RegisterSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter))
	}

	for _, p := range opts.Processors {
		tp.RegisterSpanProcessor(p)
	}

	return tp, nil
}

// Tracer returns the hauntmesh tracer of a provider.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer(ScopeName)
}
