package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nielm/counters-test/config"
	"github.com/nielm/counters-test/logging"
)

// InitTracing wires the trace pipeline against the same resolved identity as
// the metrics pipeline, so server spans from the HTTP layer are exported.
// Like metric bootstrap, failure here is fatal.
func InitTracing(ctx context.Context, cfg *config.Config, logger logging.Logger, res *resource.Resource) error {
	exporter, err := otlptracehttp.New(ctx, traceExporterOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Debug("trace pipeline ready", nil)
	return nil
}

func traceExporterOptions(cfg *config.Config) []otlptracehttp.Option {
	if cfg.OTLPEndpoint == "" {
		return []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	}
	return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint)}
}
