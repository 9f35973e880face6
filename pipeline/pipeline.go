package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stagekit/stagekit/component"
	apperrors "github.com/stagekit/stagekit/errors"
	"github.com/stagekit/stagekit/logger"
	"github.com/stagekit/stagekit/observability"
	"github.com/stagekit/stagekit/queue"
	"github.com/stagekit/stagekit/validation"
)

// Pipeline runs items through an ordered series of stages. Each stage has
// its own worker pool and closable input queue; a stage's output queue is
// the next stage's input. Items that fail in a stage skip the remaining
// transforms and still surface in the results, so every accepted Submit
// yields exactly one Outcome.
//
// Lifecycle: New, Start, Submit any number of times, Seal, Wait, Drain.
// Submit is safe from multiple goroutines; the other lifecycle calls are
// each expected once.
type Pipeline[T any] struct {
	cfg     Config
	id      string
	stages  []*stage[T]
	results *queue.Closable[envelope[T]]

	log     *logger.Logger
	metrics *observability.Metrics
	tracing bool

	mu        sync.RWMutex
	started   bool
	sealed    bool
	drained   bool
	baseCtx   context.Context
	rc        *observability.RunContext
	span      trace.Span
	depthReg  metric.Registration
	startTime time.Time

	// nextSeq is the Outcome.Seq source and only grows; submitted counts
	// accepted items. A timed-out SubmitWait retires its number unused,
	// leaving a gap in the sequence.
	nextSeq   atomic.Int64
	submitted atomic.Int64

	wg     sync.WaitGroup
	doneCh chan struct{}
}

var (
	_ component.Component   = (*Pipeline[int])(nil)
	_ component.Describable = (*Pipeline[int])(nil)
)

const meterName = "github.com/stagekit/stagekit/pipeline"

// New builds a pipeline from a config and ordered stage specs. Queues are
// wired back to front so each stage feeds the next; the results queue is
// always unbounded, so completed items never block behind a slow drain.
func New[T any](cfg Config, specs []StageSpec[T], opts ...Option) (*Pipeline[T], error) {
	cfg.ApplyDefaults()
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, apperrors.InvalidConfig("pipeline needs at least one stage")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("pipeline")

	p := &Pipeline[T]{
		cfg:     cfg,
		id:      uuid.NewString(),
		stages:  make([]*stage[T], len(specs)),
		results: queue.NewClosable[envelope[T]](0),
		log:     log,
		metrics: o.metrics,
		tracing: o.tracing,
		doneCh:  make(chan struct{}),
	}

	seen := make(map[string]struct{}, len(specs))
	next := p.results
	for i := len(specs) - 1; i >= 0; i-- {
		spec := specs[i]
		if err := validation.Validate(spec); err != nil {
			return nil, err
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, apperrors.InvalidConfig(fmt.Sprintf("duplicate stage name %q", spec.Name))
		}
		seen[spec.Name] = struct{}{}

		workers := spec.Workers
		if workers == 0 {
			workers = cfg.Workers
		}
		capacity := spec.Capacity
		if capacity == 0 {
			capacity = cfg.Capacity
		}

		middlewares := []Middleware[T]{WithStageLogging[T](log, spec.Name)}
		if o.metrics != nil {
			middlewares = append(middlewares, WithStageMetrics[T](o.metrics, cfg.Name, spec.Name))
		}
		if o.tracing {
			middlewares = append(middlewares, WithStageTracing[T](cfg.Name, spec.Name))
		}

		st := &stage[T]{
			name:      spec.Name,
			transform: Chain(middlewares...)(spec.Transform),
			workers:   workers,
			retry:     spec.Retry,
			in:        queue.NewClosable[envelope[T]](capacity),
			out:       next,
		}
		next = st.in
		p.stages[i] = st
	}

	return p, nil
}

// ID returns the unique instance id assigned at construction.
func (p *Pipeline[T]) ID() string {
	return p.id
}

// Name implements component.Component.
func (p *Pipeline[T]) Name() string {
	return p.cfg.Name
}

// Start launches every stage worker. It must be called exactly once,
// before any Submit.
func (p *Pipeline[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return apperrors.InvariantViolation("pipeline.Start called twice")
	}
	p.started = true
	p.startTime = time.Now()

	baseCtx := logger.ContextWithPipelineID(ctx, p.id)
	if p.metrics != nil || p.tracing {
		p.rc = observability.NewRunContext(p.cfg.Name, p.id, "run", p.metrics)
		baseCtx = observability.WithRunContext(baseCtx, p.rc)
		if p.tracing {
			baseCtx, p.span = p.rc.StartSpanForRun(baseCtx, observability.SpanPipelineRun)
		}
	}
	p.baseCtx = baseCtx

	if p.metrics != nil {
		reg, err := observability.RegisterQueueDepthGauge(observability.Meter(meterName), p.cfg.Name, p.queueDepths)
		if err != nil {
			p.log.Warn("queue depth gauge not registered",
				logger.MergeWithError(logger.Fields(logger.FieldPipeline, p.cfg.Name), err))
		} else {
			p.depthReg = reg
		}
	}

	total := 0
	for _, s := range p.stages {
		s.setState(StageRunning)
		for i := 0; i < s.workers; i++ {
			p.wg.Add(1)
			go p.runWorker(baseCtx, s, i)
		}
		total += s.workers
	}

	p.log.Info("pipeline started", logger.Fields(
		logger.FieldPipeline, p.cfg.Name,
		logger.FieldPipelineID, p.id,
		"stages", len(p.stages),
		logger.FieldWorkers, total,
	))
	return nil
}

// Submit enqueues one item into the first stage, blocking while that queue
// is at capacity. It must happen after Start and before Seal. The returned
// sequence number matches the item's Outcome.Seq.
func (p *Pipeline[T]) Submit(item T) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return 0, apperrors.InvariantViolation("pipeline.Submit called before Start")
	}
	if p.sealed {
		return 0, apperrors.InvariantViolation("pipeline.Submit called after Seal")
	}

	seq := p.nextSeq.Add(1) - 1
	p.stages[0].in.Put(envelope[T]{seq: seq, value: item})
	p.submitted.Add(1)
	if p.metrics != nil {
		p.metrics.RecordItemSubmitted(p.baseCtx, p.cfg.Name)
	}
	return seq, nil
}

// SubmitWait is Submit with a deadline on the backpressure wait. On
// timeout the item never entered the pipeline; its sequence number is
// retired, never reissued, so accepted items may carry non-contiguous
// Seq values.
func (p *Pipeline[T]) SubmitWait(item T, timeout time.Duration) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return 0, apperrors.InvariantViolation("pipeline.Submit called before Start")
	}
	if p.sealed {
		return 0, apperrors.InvariantViolation("pipeline.Submit called after Seal")
	}

	seq := p.nextSeq.Add(1) - 1
	if err := p.stages[0].in.PutWait(envelope[T]{seq: seq, value: item}, timeout); err != nil {
		return 0, err
	}
	p.submitted.Add(1)
	if p.metrics != nil {
		p.metrics.RecordItemSubmitted(p.baseCtx, p.cfg.Name)
	}
	return seq, nil
}

// Seal marks the input complete: no Submit may follow. Close markers are
// enqueued behind every accepted item and the drain cascade runs in the
// background; Wait observes its completion.
func (p *Pipeline[T]) Seal() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return apperrors.InvariantViolation("pipeline.Seal called before Start")
	}
	if p.sealed {
		return apperrors.InvariantViolation("pipeline.Seal called twice")
	}
	p.sealed = true

	p.log.Info("pipeline sealed", logger.Fields(
		logger.FieldPipeline, p.cfg.Name,
		logger.FieldItems, p.submitted.Load(),
	))

	go p.cascade()
	return nil
}

// cascade drains stages front to back: for each stage it enqueues one
// close marker per worker behind the remaining items, then joins the stage
// input. The join returning proves every envelope reached the next queue,
// so the next stage's markers land behind all real work.
func (p *Pipeline[T]) cascade() {
	ctx := p.obsCtx()

	for _, s := range p.stages {
		s.setState(StageDraining)
		for i := 0; i < s.workers; i++ {
			s.in.Close()
		}
		s.in.Join()
		s.setState(StageClosed)
		p.log.Debug("stage drained", logger.Fields(
			logger.FieldStage, s.name,
			logger.FieldWorkers, s.workers,
		))
	}

	p.wg.Wait()
	p.results.Close()

	p.mu.RLock()
	rc, span, startTime, depthReg := p.rc, p.span, p.startTime, p.depthReg
	p.mu.RUnlock()
	if depthReg != nil {
		_ = depthReg.Unregister()
	}
	if rc != nil {
		if span != nil {
			rc.EndRun(ctx, span, "ok", nil)
		} else if p.metrics != nil {
			p.metrics.RecordRunDuration(ctx, p.cfg.Name, "ok", rc.Duration())
		}
	}

	fields := logger.Fields(
		logger.FieldPipeline, p.cfg.Name,
		logger.FieldPipelineID, p.id,
		logger.FieldItems, p.submitted.Load(),
	)
	p.log.Info("pipeline completed", logger.MergeWithDuration(fields, time.Since(startTime)))

	close(p.doneCh)
}

// Wait blocks until the pipeline has fully drained: every stage joined,
// every worker exited and the results queue closed. The context bounds
// only the wait; cancellation does not stop the pipeline.
func (p *Pipeline[T]) Wait(ctx context.Context) error {
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return apperrors.InvariantViolation("pipeline.Wait called before Start")
	}

	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitTimeout is Wait with a deadline. A timeout of zero or less blocks
// indefinitely.
func (p *Pipeline[T]) WaitTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return p.Wait(context.Background())
	}

	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return apperrors.InvariantViolation("pipeline.Wait called before Start")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.doneCh:
		return nil
	case <-timer.C:
		return apperrors.TimeoutExceeded("pipeline.Wait", timeout)
	}
}

// Drain collects every Outcome from the results queue, blocking until the
// queue's close marker arrives. It may run concurrently with the pipeline
// or after Wait; either way it returns only once all accepted items are
// accounted for.
func (p *Pipeline[T]) Drain() ([]Outcome[T], error) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil, apperrors.InvariantViolation("pipeline.Drain called before Start")
	}
	if p.drained {
		p.mu.Unlock()
		return nil, apperrors.InvariantViolation("pipeline.Drain called twice")
	}
	p.drained = true
	p.mu.Unlock()

	ctx := p.obsCtx()
	outcomes := make([]Outcome[T], 0, p.submitted.Load())
	for env := range p.results.All() {
		o := env.outcome()
		if p.metrics != nil {
			if o.Ok() {
				p.metrics.RecordItemCompleted(ctx, p.cfg.Name)
			} else {
				p.metrics.RecordItemFailed(ctx, p.cfg.Name, o.Stage)
			}
		}
		outcomes = append(outcomes, o)
	}

	if n := int64(len(outcomes)); n != p.submitted.Load() {
		return outcomes, apperrors.InvariantViolation(
			fmt.Sprintf("pipeline delivered %d results for %d submissions", n, p.submitted.Load()))
	}

	p.log.Debug("results drained", logger.Fields(
		logger.FieldPipeline, p.cfg.Name,
		logger.FieldItems, len(outcomes),
	))
	return outcomes, nil
}

// Run executes the full lifecycle for a fixed batch: Start, Submit each
// item, Seal, Wait, Drain. Outcomes are in completion order, not
// submission order; use Outcome.Seq to correlate.
func (p *Pipeline[T]) Run(ctx context.Context, items []T) ([]Outcome[T], error) {
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	for _, item := range items {
		if _, err := p.Submit(item); err != nil {
			return nil, err
		}
	}
	if err := p.Seal(); err != nil {
		return nil, err
	}
	if err := p.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Drain()
}

// Stop implements component.Component: it seals the pipeline if needed and
// waits for the drain cascade. Stopping a pipeline that never started is a
// no-op.
func (p *Pipeline[T]) Stop(ctx context.Context) error {
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return nil
	}

	if err := p.Seal(); err != nil && !apperrors.IsInvariantViolation(err) {
		return err
	}
	return p.Wait(ctx)
}

// Health reports lifecycle state: degraded before Start and while
// draining, healthy while running and after completion.
func (p *Pipeline[T]) Health(ctx context.Context) component.Health {
	p.mu.RLock()
	started, sealed := p.started, p.sealed
	p.mu.RUnlock()

	h := component.Health{Name: p.cfg.Name, Status: component.StatusHealthy}
	if !started {
		h.Status = component.StatusDegraded
		h.Message = "not started"
		return h
	}

	select {
	case <-p.doneCh:
		h.Message = fmt.Sprintf("completed, %d items", p.submitted.Load())
		return h
	default:
	}

	if sealed {
		closed := 0
		for _, s := range p.stages {
			if s.currentState() == StageClosed {
				closed++
			}
		}
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("draining, %d/%d stages closed", closed, len(p.stages))
		return h
	}

	h.Message = "running"
	return h
}

// Describe implements component.Describable for startup summaries.
func (p *Pipeline[T]) Describe() component.Description {
	workers := 0
	for _, s := range p.stages {
		workers += s.workers
	}
	return component.Description{
		Name:    p.cfg.Name,
		Type:    "pipeline",
		Details: fmt.Sprintf("%d stages, %d workers, capacity %d", len(p.stages), workers, p.cfg.Capacity),
	}
}

// StageStates returns a snapshot of each stage's state in declaration
// order.
func (p *Pipeline[T]) StageStates() []StageState {
	states := make([]StageState, len(p.stages))
	for i, s := range p.stages {
		states[i] = s.currentState()
	}
	return states
}

// queueDepths snapshots buffered elements per stage input for the depth
// gauge callback.
func (p *Pipeline[T]) queueDepths() map[string]int64 {
	depths := make(map[string]int64, len(p.stages))
	for _, s := range p.stages {
		depths[s.name] = int64(s.in.Len())
	}
	return depths
}

// obsCtx returns the run-scoped context, or a background context before
// Start.
func (p *Pipeline[T]) obsCtx() context.Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.baseCtx == nil {
		return context.Background()
	}
	return p.baseCtx
}
