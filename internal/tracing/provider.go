// Package tracing installs the OpenTelemetry tracer provider that backs the spans
// recorded by event ingestion, dispatch and sync runs.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultServiceName is reported when Config.ServiceName is empty.
const DefaultServiceName = "marketsync"

// Config holds the OTLP exporter settings.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string
	// Endpoint is the host:port of the OTLP gRPC collector.
	Endpoint string
	// Insecure disables TLS towards the collector.
	Insecure bool
}

// Provider owns the SDK tracer provider and its exporter.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
}

// NewProvider creates an OTLP gRPC exporter, wraps it in a batching tracer provider
// and registers the provider as the global one. The exporter connects lazily, so an
// unreachable collector does not fail startup.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp trace exporter: %w", err)
	}

	provider, err := NewProviderWithExporter(cfg.ServiceName, exporter)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, err
	}
	return provider, nil
}

// NewProviderWithExporter builds the provider around an existing exporter and
// registers it globally.
func NewProviderWithExporter(serviceName string, exporter sdktrace.SpanExporter) (*Provider, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	// NewSchemaless avoids a schema URL conflict with resource.Default.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	return &Provider{tracerProvider: tracerProvider}, nil
}

// TracerProvider returns the SDK tracer provider.
func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	return p.tracerProvider
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}
