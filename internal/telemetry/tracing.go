package telemetry

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Shutdown flushes pending spans.
type Shutdown func(context.Context) error

// InitTracing installs the global tracer provider and W3C propagators for
// one process. component ("main" or "stats") is appended to the configured
// service name so both services can share one config file.
//
// Exporter is "stdout", "otlp" or "none". With "none" spans are still created,
// so trace ids reach the logs, but nothing is exported.
func InitTracing(ctx context.Context, cfg config.TracingConfig, component, version string) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return nil, fmt.Errorf("invalid sample rate %f: must be between 0.0 and 1.0", cfg.SampleRate)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler(cfg.SampleRate))}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	serviceName := cfg.ServiceName
	if component != "" {
		serviceName += "-" + component
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// newExporter returns nil for "none".
func newExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "none", "":
		return nil, nil
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return exporter, nil
	case "otlp":
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		return exporter, nil
	}
	return nil, fmt.Errorf("unsupported exporter %q: want stdout, otlp or none", cfg.Exporter)
}

// sampler keeps rate of new traces and follows the caller's decision for
// propagated ones.
func sampler(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// Tracer returns a named tracer from the global provider. Tracers obtained
// before InitTracing follow the provider it installs.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// WithTraceLogger adds the trace and span ids of ctx to the zerolog logger
// carried by ctx. Contexts without a valid span or logger are returned as is.
func WithTraceLogger(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	logger := zerolog.Ctx(ctx)
	if !sc.IsValid() || logger.GetLevel() == zerolog.Disabled {
		return ctx
	}
	return logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger().WithContext(ctx)
}
