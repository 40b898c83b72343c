// Package telemetry wires up OpenTelemetry tracing for the relayed
// LOOKUP/GET/SET hop chain; see lookuptrace for the interceptors that
// actually create spans per hop.
package telemetry

import (
	"context"
	"fmt"

	"chordkv/internal/config"
	"chordkv/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// InitTracer configures the global TracerProvider and propagator. It
// returns a shutdown func; call it on process exit. If tracing is
// disabled, the returned shutdown func is a no-op.
func InitTracer(ctx context.Context, cfg config.TelemetryConfig, serviceName string, keySlot uint64, lgr logger.Logger) (func(context.Context) error, error) {
	if !cfg.Tracing.Enabled {
		lgr.Info("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
		attribute.Int64("chordkv.node.key_slot", int64(keySlot)),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var tp *sdktrace.TracerProvider
	switch cfg.Tracing.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	case "jaeger":
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Tracing.Endpoint)))
		if err != nil {
			return nil, fmt.Errorf("telemetry: jaeger exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	case "otlp":
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Tracing.Endpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	default:
		return nil, fmt.Errorf("telemetry: unsupported exporter %q", cfg.Tracing.Exporter)
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	lgr.Info("tracing enabled", logger.F("exporter", cfg.Tracing.Exporter))
	return tp.Shutdown, nil
}
