package pipeline

import (
	"context"

	"github.com/stagekit/stagekit/logger"
	"github.com/stagekit/stagekit/observability"
	"github.com/stagekit/stagekit/resilience"
)

const (
	// DefaultWorkers is the per-stage worker count when none is set.
	DefaultWorkers = 1
)

// Transform is a single processing step applied to one item. Returning an
// error marks the item failed; it skips all downstream transforms and
// surfaces in the results as a failed Outcome.
type Transform[T any] func(ctx context.Context, item T) (T, error)

// Config holds pipeline-wide settings. Zero values fall back to defaults
// via ApplyDefaults; negative values are rejected by Validate.
type Config struct {
	// Name identifies the pipeline in logs, metrics and traces.
	Name string `validate:"required"`

	// Capacity bounds each stage input queue. 0 means unbounded.
	Capacity int `validate:"gte=0"`

	// Workers is the per-stage worker count for stages that do not set
	// their own.
	Workers int `validate:"gte=1"`
}

// DefaultConfig returns a single-worker, unbounded-queue configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:    name,
		Workers: DefaultWorkers,
	}
}

// ApplyDefaults fills unset fields. Negative values are left for Validate
// to reject.
func (c *Config) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// StageSpec declares one stage. Workers and Capacity fall back to the
// pipeline Config when zero.
type StageSpec[T any] struct {
	// Name identifies the stage. Must be unique within the pipeline.
	Name string `validate:"required"`

	// Transform is the processing step run by this stage's workers.
	Transform Transform[T] `validate:"required"`

	// Workers overrides Config.Workers for this stage when positive.
	Workers int `validate:"gte=0"`

	// Capacity overrides Config.Capacity for this stage when positive.
	Capacity int `validate:"gte=0"`

	// Retry, when set, re-runs the transform on retryable errors. The
	// attempt count is reported on the item's Outcome.
	Retry *resilience.RetryConfig
}

type options struct {
	log     *logger.Logger
	metrics *observability.Metrics
	tracing bool
}

// Option configures optional pipeline behavior.
type Option func(*options)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMetrics enables per-item and per-stage metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracing enables a span per run and a child span per transform.
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
	}
}
