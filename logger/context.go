package logger

import "context"

type ctxKey int

const (
	ctxPipelineID ctxKey = iota
	ctxStage
	ctxWorker
)

// ContextWithPipelineID marks ctx with a pipeline run identifier.
func ContextWithPipelineID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxPipelineID, id)
}

// ContextWithStage marks ctx with the stage a worker is serving.
func ContextWithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ctxStage, stage)
}

// ContextWithWorker marks ctx with a worker index within its stage.
func ContextWithWorker(ctx context.Context, worker int) context.Context {
	return context.WithValue(ctx, ctxWorker, worker)
}

// WithContext returns a copy of l carrying whichever run markers ctx
// holds: pipeline ID, stage, worker index. Workers enrich their context
// once at startup and every later event names its position in the run.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	if id, ok := ctx.Value(ctxPipelineID).(string); ok && id != "" {
		zc = zc.Str(FieldPipelineID, id)
	}
	if stage, ok := ctx.Value(ctxStage).(string); ok && stage != "" {
		zc = zc.Str(FieldStage, stage)
	}
	if worker, ok := ctx.Value(ctxWorker).(int); ok {
		zc = zc.Int(FieldWorker, worker)
	}
	return &Logger{zl: zc.Logger(), service: l.service}
}

// WithContext enriches the global logger from ctx.
func WithContext(ctx context.Context) *Logger {
	return GetGlobalLogger().WithContext(ctx)
}
