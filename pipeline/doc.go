// Package pipeline runs items through an ordered series of concurrent
// stages connected by closable queues.
//
// Each stage owns a worker pool and a bounded input queue; a stage's
// output queue is the next stage's input, and the final stage feeds an
// unbounded results queue. Sealing the pipeline enqueues one close marker
// per worker behind the remaining items of each stage in turn, so no item
// is lost and no worker stops early. Items that fail in a stage skip the
// remaining transforms and still surface in the results: every accepted
// Submit yields exactly one Outcome.
//
// Batch callers use Run:
//
//	p, err := pipeline.New(pipeline.DefaultConfig("numbers"), []pipeline.StageSpec[int]{
//		{Name: "double", Transform: func(ctx context.Context, v int) (int, error) { return v * 2, nil }},
//		{Name: "increment", Transform: func(ctx context.Context, v int) (int, error) { return v + 1, nil }},
//	})
//	if err != nil {
//		return err
//	}
//	outcomes, err := p.Run(ctx, []int{1, 2, 3})
//
// Streaming callers drive the lifecycle directly:
//
//	_ = p.Start(ctx)
//	for _, v := range produced {
//		if _, err := p.Submit(v); err != nil {
//			break
//		}
//	}
//	_ = p.Seal()
//	if err := p.Wait(ctx); err != nil {
//		return err
//	}
//	outcomes, err := p.Drain()
//
// Per-stage behavior is tuned through StageSpec (worker count, queue
// capacity, retry policy) and pipeline-wide observability through Options
// (WithLogger, WithMetrics, WithTracing).
package pipeline
