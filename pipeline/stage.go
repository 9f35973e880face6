package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	apperrors "github.com/stagekit/stagekit/errors"
	"github.com/stagekit/stagekit/logger"
	"github.com/stagekit/stagekit/queue"
	"github.com/stagekit/stagekit/resilience"
)

// StageState tracks one stage through the shutdown cascade.
type StageState int32

const (
	// StageCreated means the stage workers have not started.
	StageCreated StageState = iota
	// StageRunning means workers are consuming items.
	StageRunning
	// StageDraining means close markers are enqueued behind the stage's
	// remaining items.
	StageDraining
	// StageClosed means every worker retrieved a close marker and the
	// stage input is fully acknowledged.
	StageClosed
)

func (s StageState) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageRunning:
		return "running"
	case StageDraining:
		return "draining"
	case StageClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// stage is one resolved pipeline stage: the middleware-composed transform,
// its worker count and the queues on either side. out is the next stage's
// in, or the results queue for the final stage.
type stage[T any] struct {
	name      string
	transform Transform[T]
	workers   int
	retry     *resilience.RetryConfig
	in        *queue.Closable[envelope[T]]
	out       *queue.Closable[envelope[T]]
	state     atomic.Int32
}

func (s *stage[T]) setState(state StageState) {
	s.state.Store(int32(state))
}

func (s *stage[T]) currentState() StageState {
	return StageState(s.state.Load())
}

// runWorker consumes the stage input until it retrieves a close marker.
// Every consumed item puts exactly one envelope downstream before the input
// acknowledgment, so a stage join proves all its work reached the next
// queue.
func (p *Pipeline[T]) runWorker(ctx context.Context, s *stage[T], index int) {
	defer p.wg.Done()

	ctx = logger.ContextWithStage(ctx, s.name)
	ctx = logger.ContextWithWorker(ctx, index)
	if p.metrics != nil {
		p.metrics.RecordWorkerStart(ctx, p.cfg.Name, s.name)
		defer p.metrics.RecordWorkerStop(ctx, p.cfg.Name, s.name)
	}

	for env := range s.in.All() {
		s.out.Put(p.processItem(ctx, s, env))
	}
}

// processItem runs one envelope through the stage transform. Envelopes that
// failed upstream pass through untouched. A transform panic is contained to
// the item: it becomes a failed Outcome, not a dead worker.
func (p *Pipeline[T]) processItem(ctx context.Context, s *stage[T], env envelope[T]) (out envelope[T]) {
	out = env
	if env.err != nil {
		return out
	}

	out.attempts = 1
	defer func() {
		if r := recover(); r != nil {
			out.err = apperrors.TransformPanic(s.name, r)
			out.stage = s.name
			p.log.Error("transform panicked", logger.Fields(
				logger.FieldStage, s.name,
				logger.FieldSeq, env.seq,
				"panic", fmt.Sprintf("%v", r),
			))
		}
	}()

	result, err := p.applyTransform(ctx, s, env.value, &out.attempts)
	if err != nil {
		out.err = apperrors.TransformFailure(s.name, err)
		out.stage = s.name
		return out
	}

	out.value = result
	return out
}

// applyTransform invokes the transform, under the stage retry policy when
// one is configured. attempts is updated as retries happen so even a panic
// mid-retry reports the executed count.
func (p *Pipeline[T]) applyTransform(ctx context.Context, s *stage[T], value T, attempts *int) (T, error) {
	if s.retry == nil {
		return s.transform(ctx, value)
	}

	cfg := *s.retry
	prev := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		*attempts = attempt + 1
		if prev != nil {
			prev(attempt, err, backoff)
		}
	}
	return resilience.Retry(ctx, cfg, func() (T, error) {
		return s.transform(ctx, value)
	})
}
