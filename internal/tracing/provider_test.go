package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func resetGlobalTracerProvider(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
	})
}

func TestNewProviderWithExporter(t *testing.T) {
	t.Run("Success_ExportsGlobalSpans", func(t *testing.T) {
		resetGlobalTracerProvider(t)
		ctx := context.Background()
		exporter := tracetest.NewInMemoryExporter()

		provider, err := NewProviderWithExporter("marketsync_test", exporter)
		require.NoError(t, err)
		assert.Same(t, provider.TracerProvider(), otel.GetTracerProvider())

		_, span := otel.Tracer("marketsync/test").Start(ctx, "events.poll")
		span.End()
		require.NoError(t, provider.TracerProvider().ForceFlush(ctx))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "events.poll", spans[0].Name)
		serviceName, ok := spans[0].Resource.Set().Value("service.name")
		require.True(t, ok)
		assert.Equal(t, "marketsync_test", serviceName.AsString())

		assert.NoError(t, provider.Shutdown(ctx))
	})

	t.Run("Success_DefaultServiceName", func(t *testing.T) {
		resetGlobalTracerProvider(t)
		ctx := context.Background()
		exporter := tracetest.NewInMemoryExporter()

		provider, err := NewProviderWithExporter("", exporter)
		require.NoError(t, err)

		_, span := otel.Tracer("marketsync/test").Start(ctx, "sync.run")
		span.End()
		require.NoError(t, provider.TracerProvider().ForceFlush(ctx))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		serviceName, ok := spans[0].Resource.Set().Value("service.name")
		require.True(t, ok)
		assert.Equal(t, DefaultServiceName, serviceName.AsString())

		assert.NoError(t, provider.Shutdown(ctx))
	})
}

func TestNewProvider(t *testing.T) {
	resetGlobalTracerProvider(t)
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName: "marketsync_test",
		Endpoint:    "localhost:4317",
		Insecure:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, provider.TracerProvider())
	assert.Same(t, provider.TracerProvider(), otel.GetTracerProvider())

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_ShutdownWithoutTracerProvider(t *testing.T) {
	provider := &Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}
