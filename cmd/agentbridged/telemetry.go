package main

import (
	"context"
	"fmt"

	"github.com/kbukum/agentbridge/bootstrap"
	"github.com/kbukum/agentbridge/observability"
)

// initTelemetry wires OTLP metric and trace export onto the global otel
// providers and returns a hook that flushes both on shutdown.
func initTelemetry(ctx context.Context, app *bootstrap.App[*Config]) (bootstrap.Hook, error) {
	base := app.Cfg.GetServiceConfig()
	t := app.Cfg.Telemetry

	meterCfg := observability.DefaultMeterConfig(app.Name)
	meterCfg.ServiceVersion = app.Version
	meterCfg.Environment = base.Environment
	meterCfg.Endpoint = t.Endpoint
	meterCfg.Insecure = t.Insecure
	mp, err := observability.InitMeter(ctx, &meterCfg)
	if err != nil {
		return nil, fmt.Errorf("init meter: %w", err)
	}

	tracerCfg := observability.DefaultTracerConfig(app.Name)
	tracerCfg.ServiceVersion = app.Version
	tracerCfg.Environment = base.Environment
	tracerCfg.Endpoint = t.Endpoint
	tracerCfg.Insecure = t.Insecure
	tracerCfg.SampleRate = t.SampleRate
	tp, err := observability.InitTracer(ctx, &tracerCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	return func(ctx context.Context) error {
		traceErr := tp.Shutdown(ctx)
		if err := mp.Shutdown(ctx); err != nil {
			return fmt.Errorf("meter shutdown: %w", err)
		}
		if traceErr != nil {
			return fmt.Errorf("tracer shutdown: %w", traceErr)
		}
		return nil
	}, nil
}
