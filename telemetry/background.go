package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/nielm/counters-test/logging"
)

// Driver increments the background counter on a fixed period. It is started
// only after Bootstrap succeeds and runs for the life of the process; the
// context exists so tests can stop it.
type Driver struct {
	counter  metric.Int64Counter
	interval time.Duration
	logger   logging.Logger
}

// NewDriver creates a background driver over the given counter handle.
func NewDriver(counter metric.Int64Counter, interval time.Duration, logger logging.Logger) *Driver {
	return &Driver{
		counter:  counter,
		interval: interval,
		logger:   logger,
	}
}

// Run ticks until the context is cancelled. Each tick adds exactly 1; there
// is no backpressure or skip logic.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Debug("background driver started", map[string]interface{}{
		"interval": d.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Driver) tick(ctx context.Context) {
	d.counter.Add(ctx, 1)
}
