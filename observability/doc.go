// Package observability instruments pipeline runs with OpenTelemetry
// traces and metrics exported over OTLP/HTTP.
//
// Call InitTracer and InitMeter once at startup; both install global
// providers and return the SDK provider for shutdown:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("frame-pipeline"))
//	defer tp.Shutdown(ctx)
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("frame-pipeline"))
//	defer mp.Shutdown(ctx)
//
// Metrics bundles the pipeline instruments (item counters, in-flight
// and worker gauges, duration histograms); RegisterQueueDepthGauge adds
// an observable gauge over per-stage queue depths. A RunContext carries
// one run's identity through context so spans and metrics recorded in
// different goroutines share the same labels:
//
//	metrics, err := observability.NewMetrics(observability.Meter("frame-pipeline"))
//	rc := observability.NewRunContext("ingest", runID, "run", metrics)
//	ctx = observability.WithRunContext(ctx, rc)
//	ctx, span := rc.StartSpanForRun(ctx, observability.SpanPipelineRun)
//	// run the pipeline
//	rc.EndRun(ctx, span, "ok", nil)
package observability
