package pipeline

import (
	"context"
	"time"

	"github.com/stagekit/stagekit/logger"
	"github.com/stagekit/stagekit/observability"
	"github.com/stagekit/stagekit/resilience"
)

// Middleware wraps a Transform with additional behavior.
type Middleware[T any] func(Transform[T]) Transform[T]

// Chain composes middlewares into one. The first middleware is the
// outermost: Chain(a, b, c)(t) == a(b(c(t))).
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(next Transform[T]) Transform[T] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// WithStageLogging logs each transform with its duration. Failures log at
// warn, successes at debug.
func WithStageLogging[T any](log *logger.Logger, stage string) Middleware[T] {
	return func(next Transform[T]) Transform[T] {
		return func(ctx context.Context, item T) (T, error) {
			start := time.Now()
			result, err := next(ctx, item)
			fields := logger.Fields(logger.FieldStage, stage)
			fields = logger.MergeWithDuration(fields, time.Since(start))
			if err != nil {
				log.Warn("transform failed", logger.MergeWithError(fields, err))
				return result, err
			}
			log.Debug("transform ok", fields)
			return result, nil
		}
	}
}

// WithStageMetrics records a stage duration sample per transform, tagged
// with status ok or error.
func WithStageMetrics[T any](m *observability.Metrics, pipeline, stage string) Middleware[T] {
	return func(next Transform[T]) Transform[T] {
		return func(ctx context.Context, item T) (T, error) {
			start := time.Now()
			result, err := next(ctx, item)
			status := "ok"
			if err != nil {
				status = "error"
			}
			m.RecordStageDuration(ctx, pipeline, stage, status, time.Since(start))
			return result, err
		}
	}
}

// WithStageTracing opens a child span around each transform and records
// transform errors on it.
func WithStageTracing[T any](pipeline, stage string) Middleware[T] {
	return func(next Transform[T]) Transform[T] {
		return func(ctx context.Context, item T) (T, error) {
			ctx, span := observability.StartSpan(ctx, observability.SpanStageProcess)
			defer span.End()
			observability.SetSpanAttribute(ctx, observability.AttrPipelineName, pipeline)
			observability.SetSpanAttribute(ctx, observability.AttrStageName, stage)
			result, err := next(ctx, item)
			if err != nil {
				observability.SetSpanError(ctx, err)
			}
			return result, err
		}
	}
}

// WithRetry re-runs the transform per the retry config. Prefer
// StageSpec.Retry when the attempt count should appear on the Outcome.
func WithRetry[T any](cfg resilience.RetryConfig) Middleware[T] {
	return func(next Transform[T]) Transform[T] {
		return func(ctx context.Context, item T) (T, error) {
			return resilience.Retry(ctx, cfg, func() (T, error) {
				return next(ctx, item)
			})
		}
	}
}
