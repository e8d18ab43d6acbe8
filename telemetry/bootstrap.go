package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/nielm/counters-test/config"
	"github.com/nielm/counters-test/logging"
)

// Counter names are deterministic and share a fixed prefix so the backend
// groups them under one namespace.
const (
	MetricPrefix = "counters."

	BackgroundCounterName = MetricPrefix + "background_runs"
	RequestCounterName    = MetricPrefix + "requests"
)

const meterName = "github.com/nielm/counters-test"

// Option customizes Bootstrap.
type Option func(*options)

type options struct {
	reader sdkmetric.Reader
}

// WithReader substitutes the metric reader. Production uses a periodic OTLP
// reader; a manual reader makes counter values observable in tests.
func WithReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.reader = r }
}

// Bootstrap constructs the metrics pipeline bound to the resolved identity
// and registers the two process counters. It must only be called with a
// fully-resolved resource; the resolver guarantees that ordering. On success
// the returned handles are live and safe for concurrent writers.
func Bootstrap(ctx context.Context, cfg *config.Config, logger logging.Logger, res *resource.Resource, opts ...Option) (*Counters, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reader := o.reader
	if reader == nil {
		exporter, err := otlpmetrichttp.New(ctx, metricExporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(config.ExportInterval),
			sdkmetric.WithTimeout(config.ExportInterval),
		)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	meter := provider.Meter(meterName)

	background, err := meter.Int64Counter(BackgroundCounterName,
		metric.WithDescription("Background task executions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create counter %s: %w", BackgroundCounterName, err)
	}

	request, err := meter.Int64Counter(RequestCounterName,
		metric.WithDescription("Inbound requests handled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create counter %s: %w", RequestCounterName, err)
	}

	otel.SetMeterProvider(provider)

	logger.Info("metrics pipeline ready", map[string]interface{}{
		"export_interval": config.ExportInterval.String(),
		"counters":        []string{BackgroundCounterName, RequestCounterName},
	})

	return &Counters{
		provider:   provider,
		Background: background,
		Request:    request,
	}, nil
}

// metricExporterOptions derives exporter options from configuration. With no
// endpoint configured the exporter targets a local collector over plain HTTP.
func metricExporterOptions(cfg *config.Config) []otlpmetrichttp.Option {
	if cfg.OTLPEndpoint == "" {
		return []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
	}
	return []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint)}
}
