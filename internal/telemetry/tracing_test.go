package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{}, "main", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracingRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TracingConfig
	}{
		{name: "sample rate", cfg: config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1.5}},
		{name: "exporter", cfg: config.TracingConfig{Enabled: true, Exporter: "zipkin", SampleRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InitTracing(context.Background(), tt.cfg, "main", "test")
			require.Error(t, err)
		})
	}
}

func TestInitTracingNoneExporterStillRecordsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx := context.Background()
	shutdown, err := InitTracing(ctx, config.TracingConfig{Enabled: true, Exporter: "none", ServiceName: "ewm", SampleRate: 1}, "stats", "test")
	require.NoError(t, err)

	_, span := Tracer("test").Start(ctx, "op")
	require.True(t, span.SpanContext().IsValid())
	require.True(t, span.SpanContext().IsSampled())
	span.End()
	require.NoError(t, shutdown(ctx))
}

func TestWithTraceLogger(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	zerolog.Ctx(WithTraceLogger(ctx)).Info().Msg("hello")

	require.Contains(t, buf.String(), `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
	require.Contains(t, buf.String(), `"span_id":"`+span.SpanContext().SpanID().String()+`"`)
}

func TestWithTraceLoggerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	zerolog.Ctx(WithTraceLogger(ctx)).Info().Msg("hello")

	require.NotContains(t, buf.String(), "trace_id")
}
