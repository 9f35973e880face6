package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/stagekit/stagekit/logger"
	"github.com/stagekit/stagekit/version"
)

// MeterConfig configures OTLP metric export.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	// Environment tags exported metrics: development, staging, production.
	Environment string
	// Endpoint is the OTLP/HTTP collector, host:port.
	Endpoint string
	// Insecure switches off TLS toward the collector.
	Insecure bool
	// Interval between metric exports; zero keeps the SDK default.
	Interval time.Duration
}

// DefaultMeterConfig targets a local collector with a 15s export
// interval; production hosts override Endpoint.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter wires the global meter provider to a periodic OTLP exporter.
// The caller owns the returned provider and defers its Shutdown.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx, metricExportOptions(config)...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	res, err := telemetryResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

func metricExportOptions(config MeterConfig) []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return opts
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics bundles the pipeline instruments.
type Metrics struct {
	itemsSubmitted metric.Int64Counter
	itemsCompleted metric.Int64Counter
	itemsFailed    metric.Int64Counter
	itemsInFlight  metric.Int64UpDownCounter
	workersActive  metric.Int64UpDownCounter
	stageDuration  metric.Float64Histogram
	runDuration    metric.Float64Histogram
}

// NewMetrics creates the pipeline instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	itemsSubmitted, err := meter.Int64Counter("pipeline.items.submitted",
		metric.WithDescription("Total number of items submitted to a pipeline"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.items.submitted counter: %w", err)
	}

	itemsCompleted, err := meter.Int64Counter("pipeline.items.completed",
		metric.WithDescription("Total number of items that passed every stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.items.completed counter: %w", err)
	}

	itemsFailed, err := meter.Int64Counter("pipeline.items.failed",
		metric.WithDescription("Total number of items that failed in a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.items.failed counter: %w", err)
	}

	itemsInFlight, err := meter.Int64UpDownCounter("pipeline.items.in_flight",
		metric.WithDescription("Number of items submitted but not yet drained from the results"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.items.in_flight gauge: %w", err)
	}

	workersActive, err := meter.Int64UpDownCounter("pipeline.workers.active",
		metric.WithDescription("Number of stage workers currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.workers.active gauge: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("pipeline.stage.duration",
		metric.WithDescription("Per-item processing duration within a stage in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.stage.duration histogram: %w", err)
	}

	runDuration, err := meter.Float64Histogram("pipeline.run.duration",
		metric.WithDescription("End-to-end pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.run.duration histogram: %w", err)
	}

	return &Metrics{
		itemsSubmitted: itemsSubmitted,
		itemsCompleted: itemsCompleted,
		itemsFailed:    itemsFailed,
		itemsInFlight:  itemsInFlight,
		workersActive:  workersActive,
		stageDuration:  stageDuration,
		runDuration:    runDuration,
	}, nil
}

func pipelineAttrs(pipeline string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("pipeline", pipeline))
}

func stageAttrs(pipeline, stage string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("stage", stage),
	)
}

// RecordItemSubmitted counts a submitted item and raises the in-flight gauge.
func (m *Metrics) RecordItemSubmitted(ctx context.Context, pipeline string) {
	m.itemsSubmitted.Add(ctx, 1, pipelineAttrs(pipeline))
	m.itemsInFlight.Add(ctx, 1, pipelineAttrs(pipeline))
}

// RecordItemCompleted counts an item that passed every stage and lowers
// the in-flight gauge.
func (m *Metrics) RecordItemCompleted(ctx context.Context, pipeline string) {
	m.itemsCompleted.Add(ctx, 1, pipelineAttrs(pipeline))
	m.itemsInFlight.Add(ctx, -1, pipelineAttrs(pipeline))
}

// RecordItemFailed counts a failed item by stage and lowers the
// in-flight gauge.
func (m *Metrics) RecordItemFailed(ctx context.Context, pipeline, stage string) {
	m.itemsFailed.Add(ctx, 1, stageAttrs(pipeline, stage))
	m.itemsInFlight.Add(ctx, -1, pipelineAttrs(pipeline))
}

// RecordStageDuration records how long one item spent in one stage.
func (m *Metrics) RecordStageDuration(ctx context.Context, pipeline, stage, status string, duration time.Duration) {
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordRunDuration records an end-to-end pipeline run.
func (m *Metrics) RecordRunDuration(ctx context.Context, pipeline, status string, duration time.Duration) {
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("status", status),
	))
}

// RecordWorkerStart raises the active worker gauge for a stage.
func (m *Metrics) RecordWorkerStart(ctx context.Context, pipeline, stage string) {
	m.workersActive.Add(ctx, 1, stageAttrs(pipeline, stage))
}

// RecordWorkerStop lowers the active worker gauge for a stage.
func (m *Metrics) RecordWorkerStop(ctx context.Context, pipeline, stage string) {
	m.workersActive.Add(ctx, -1, stageAttrs(pipeline, stage))
}

// RegisterQueueDepthGauge registers an observable gauge reporting buffered
// elements per stage input queue. depths is invoked at collection time;
// Unregister the returned registration once the pipeline has drained.
func RegisterQueueDepthGauge(meter metric.Meter, pipeline string, depths func() map[string]int64) (metric.Registration, error) {
	gauge, err := meter.Int64ObservableGauge("pipeline.queue.depth",
		metric.WithDescription("Buffered elements per stage input queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.queue.depth gauge: %w", err)
	}
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for stage, depth := range depths() {
			o.ObserveInt64(gauge, depth, stageAttrs(pipeline, stage))
		}
		return nil
	}, gauge)
}
