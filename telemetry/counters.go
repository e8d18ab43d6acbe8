package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Counters are the two write-only accumulators owned by the bootstrap step.
// The handles are created exactly once per process and shared between the
// background driver and the request hook; Add is safe under arbitrary
// interleaving.
type Counters struct {
	provider *sdkmetric.MeterProvider

	Background metric.Int64Counter
	Request    metric.Int64Counter
}

// AddBackground records one background tick.
func (c *Counters) AddBackground(ctx context.Context) {
	c.Background.Add(ctx, 1)
}

// AddRequest records one handled request.
func (c *Counters) AddRequest(ctx context.Context) {
	c.Request.Add(ctx, 1)
}

// Shutdown flushes pending measurements and stops the pipeline. There is no
// shutdown path in normal operation; this exists for tests and for the
// platform's best-effort termination hook.
func (c *Counters) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}
