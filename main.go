// counters-test emits two monotonic counters from a serverless HTTP handler:
// one per inbound request and one on a fixed background interval. Startup
// resolves the process's resource identity before any counter exists; a
// failure anywhere in that chain terminates the process so the platform can
// restart it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/nielm/counters-test/config"
	"github.com/nielm/counters-test/logging"
	"github.com/nielm/counters-test/server"
	"github.com/nielm/counters-test/telemetry"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	logger := logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	logging.InstallDiagnostics(logger)

	logger.Info("starting", map[string]interface{}{
		"service": cfg.ServiceName,
		"version": cfg.ServiceVersion,
	})

	// Initialization is one-shot and sequential: detect, resolve, bootstrap.
	// No retries; the platform's process-restart policy is the retry
	// mechanism.
	ctx := context.Background()

	res, err := telemetry.NewResolver(cfg, logger).Resolve(ctx)
	if err != nil {
		logger.Error("failed to resolve resource identity", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	counters, err := telemetry.Bootstrap(ctx, cfg, logger, res)
	if err != nil {
		logger.Error("failed to bootstrap metrics provider", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	if err := telemetry.InitTracing(ctx, cfg, logger, res); err != nil {
		logger.Error("failed to initialize tracing", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	go telemetry.NewDriver(counters.Background, config.BackgroundInterval, logger).Run(ctx)

	addr := ":" + cfg.Port
	logger.Info("listening", map[string]interface{}{"addr": addr})
	if err := http.ListenAndServe(addr, server.New(counters.Request, logger)); err != nil {
		logger.Error("http server failed", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}
