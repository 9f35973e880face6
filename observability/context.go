package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunContext carries the identity and start time of one pipeline run so
// spans and metrics recorded along the way agree on their labels.
type RunContext struct {
	PipelineName string
	PipelineID   string
	Operation    string
	StartTime    time.Time
	Metrics      *Metrics
}

// NewRunContext stamps a run as started now. A nil metrics disables
// metric recording without disabling spans.
func NewRunContext(pipelineName, pipelineID, operation string, metrics *Metrics) *RunContext {
	return &RunContext{
		PipelineName: pipelineName,
		PipelineID:   pipelineID,
		Operation:    operation,
		StartTime:    time.Now(),
		Metrics:      metrics,
	}
}

type runContextKey struct{}

// WithRunContext attaches rc to ctx for retrieval further down the run.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext returns the RunContext attached to ctx, or nil
// when the run is untracked.
func RunContextFromContext(ctx context.Context) *RunContext {
	rc, _ := ctx.Value(runContextKey{}).(*RunContext)
	return rc
}

// StartSpanForRun opens a span labeled with the run identity.
func (rc *RunContext) StartSpanForRun(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	attrs := []attribute.KeyValue{
		attribute.String(AttrPipelineName, rc.PipelineName),
		attribute.String(AttrPipelineID, rc.PipelineID),
	}
	if rc.Operation != "" {
		attrs = append(attrs, attribute.String(AttrOperationName, rc.Operation))
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

// EndRun closes the span with the final status and, when metrics are
// attached, records the run duration histogram.
func (rc *RunContext) EndRun(ctx context.Context, span trace.Span, status string, err error) {
	duration := rc.Duration()

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if rc.Metrics != nil {
		rc.Metrics.RecordRunDuration(ctx, rc.PipelineName, status, duration)
	}
}

// Duration reports time elapsed since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
