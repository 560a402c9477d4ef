// Package observability provides OpenTelemetry tracing and metrics integration
// for comprehensive service observability.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("my-service")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanStreamConnect)
//	defer span.End()
//
// Metrics:
//
//	mcfg := observability.DefaultMeterConfig("my-service")
//	mp, err := observability.InitMeter(ctx, &mcfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("my-service"))
//	metrics.RecordRequestEnd(ctx, "my-service", "GET /sessions/:id/events", "ok", duration)
//
// Operation tracking ties both together for a single request:
//
//	oc := observability.NewOperationContext("my-service", "session.events", requestID, sessionID, metrics)
//	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanEventDispatch)
//	defer oc.EndOperation(ctx, span, "ok", nil)
package observability
