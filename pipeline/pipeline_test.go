package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stagekit/stagekit/component"
	"github.com/stagekit/stagekit/errors"
	"github.com/stagekit/stagekit/resilience"
)

func double(ctx context.Context, v int) (int, error)    { return v * 2, nil }
func increment(ctx context.Context, v int) (int, error) { return v + 1, nil }
func negate(ctx context.Context, v int) (int, error)    { return -v, nil }

func newIntPipeline(t *testing.T, name string, specs ...StageSpec[int]) *Pipeline[int] {
	t.Helper()
	p, err := New(DefaultConfig(name), specs)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestRunThreeStagesInOrder(t *testing.T) {
	p := newIntPipeline(t, "numbers",
		StageSpec[int]{Name: "double", Transform: double},
		StageSpec[int]{Name: "increment", Transform: increment},
		StageSpec[int]{Name: "negate", Transform: negate},
	)

	outcomes, err := p.Run(context.Background(), []int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []int{-3, -5, -7, -9, -11}
	if len(outcomes) != len(want) {
		t.Fatalf("expected %d outcomes, got %d", len(want), len(outcomes))
	}
	for i, o := range outcomes {
		if !o.Ok() {
			t.Fatalf("item %d failed: %v", i, o.Err)
		}
		if o.Value != want[i] {
			t.Fatalf("single-worker stages should preserve order: want %v, got %d at %d", want, o.Value, i)
		}
		if o.Seq != int64(i) {
			t.Errorf("expected sequential seq, got %d at position %d", o.Seq, i)
		}
		if o.Attempts != 1 {
			t.Errorf("expected 1 attempt without retry, got %d", o.Attempts)
		}
	}
}

func TestRunTwoStagesInOrder(t *testing.T) {
	p := newIntPipeline(t, "numbers",
		StageSpec[int]{Name: "increment", Transform: increment},
		StageSpec[int]{Name: "negate", Transform: negate},
	)

	outcomes, err := p.Run(context.Background(), []int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []int{-2, -3, -4, -5, -6}
	for i, o := range outcomes {
		if !o.Ok() || o.Value != want[i] {
			t.Fatalf("want %v in order, got value %d (err %v) at %d", want, o.Value, o.Err, i)
		}
	}
}

func TestFailedItemStillSurfaces(t *testing.T) {
	reject := func(ctx context.Context, v int) (int, error) {
		if v == 3 {
			return 0, fmt.Errorf("rejected %d", v)
		}
		return v, nil
	}
	p := newIntPipeline(t, "validated",
		StageSpec[int]{Name: "validate", Transform: reject},
		StageSpec[int]{Name: "double", Transform: double},
	)

	outcomes, err := p.Run(context.Background(), []int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != 5 {
		t.Fatalf("failed items must still be delivered: got %d of 5", len(outcomes))
	}

	failed := outcomes[2]
	if failed.Ok() {
		t.Fatal("expected item 3 to fail")
	}
	if !errors.IsTransformFailure(failed.Err) {
		t.Errorf("expected TRANSFORM_FAILURE, got %v", failed.Err)
	}
	if failed.Stage != "validate" {
		t.Errorf("expected failure in stage validate, got %q", failed.Stage)
	}
	if failed.Value != 3 {
		t.Errorf("failed outcome should carry the value entering the failing stage, got %d", failed.Value)
	}

	for i, o := range outcomes {
		if i == 2 {
			continue
		}
		if !o.Ok() {
			t.Fatalf("item %d should pass: %v", i, o.Err)
		}
		if o.Value != (i+1)*2 {
			t.Errorf("expected %d doubled, got %d", i+1, o.Value)
		}
	}
}

func TestManyItemsManyWorkers(t *testing.T) {
	const items = 1000
	cfg := Config{Name: "bulk", Capacity: 8, Workers: 4}
	p, err := New(cfg, []StageSpec[int]{
		{Name: "double", Transform: double},
		{Name: "increment", Transform: increment},
		{Name: "negate", Transform: negate},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < items; i++ {
		if _, err := p.Submit(i); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if err := p.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if err := p.WaitTimeout(10 * time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	outcomes, err := p.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(outcomes) != items {
		t.Fatalf("expected %d outcomes, got %d", items, len(outcomes))
	}

	seen := make(map[int64]bool, items)
	for _, o := range outcomes {
		if !o.Ok() {
			t.Fatalf("item seq %d failed: %v", o.Seq, o.Err)
		}
		if seen[o.Seq] {
			t.Fatalf("duplicate outcome for seq %d", o.Seq)
		}
		seen[o.Seq] = true
		if want := -(2*int(o.Seq) + 1); o.Value != want {
			t.Errorf("seq %d: expected %d, got %d", o.Seq, want, o.Value)
		}
	}

	for i, st := range p.StageStates() {
		if st != StageClosed {
			t.Errorf("stage %d should be closed after drain, got %s", i, st)
		}
	}
	for i, s := range p.stages {
		if s.in.Len() != 0 || s.in.Outstanding() != 0 {
			t.Errorf("stage %d input not empty: len=%d outstanding=%d", i, s.in.Len(), s.in.Outstanding())
		}
	}
	if p.results.Len() != 0 || p.results.Outstanding() != 0 {
		t.Errorf("results not fully acknowledged: len=%d outstanding=%d", p.results.Len(), p.results.Outstanding())
	}
}

func TestLifecycleMisuseDetected(t *testing.T) {
	passthrough := func(ctx context.Context, v int) (int, error) { return v, nil }
	p := newIntPipeline(t, "lifecycle", StageSpec[int]{Name: "pass", Transform: passthrough})
	ctx := context.Background()

	if _, err := p.Submit(1); !errors.IsInvariantViolation(err) {
		t.Errorf("Submit before Start: expected INVARIANT_VIOLATION, got %v", err)
	}
	if err := p.Seal(); !errors.IsInvariantViolation(err) {
		t.Errorf("Seal before Start: expected INVARIANT_VIOLATION, got %v", err)
	}
	if err := p.Wait(ctx); !errors.IsInvariantViolation(err) {
		t.Errorf("Wait before Start: expected INVARIANT_VIOLATION, got %v", err)
	}
	if _, err := p.Drain(); !errors.IsInvariantViolation(err) {
		t.Errorf("Drain before Start: expected INVARIANT_VIOLATION, got %v", err)
	}

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := p.Start(ctx); !errors.IsInvariantViolation(err) {
		t.Errorf("second Start: expected INVARIANT_VIOLATION, got %v", err)
	}

	if _, err := p.Submit(1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := p.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if err := p.Seal(); !errors.IsInvariantViolation(err) {
		t.Errorf("second Seal: expected INVARIANT_VIOLATION, got %v", err)
	}
	if _, err := p.Submit(2); !errors.IsInvariantViolation(err) {
		t.Errorf("Submit after Seal: expected INVARIANT_VIOLATION, got %v", err)
	}

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	outcomes, err := p.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if _, err := p.Drain(); !errors.IsInvariantViolation(err) {
		t.Errorf("second Drain: expected INVARIANT_VIOLATION, got %v", err)
	}
}

func TestWaitTimeoutOnStalledStage(t *testing.T) {
	release := make(chan struct{})
	stall := func(ctx context.Context, v int) (int, error) {
		<-release
		return v, nil
	}
	p := newIntPipeline(t, "stalled", StageSpec[int]{Name: "stall", Transform: stall})
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := p.Submit(1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := p.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if err := p.WaitTimeout(50 * time.Millisecond); !errors.IsTimeout(err) {
		t.Fatalf("expected TIMEOUT_EXCEEDED while stage is stalled, got %v", err)
	}

	close(release)
	if err := p.WaitTimeout(2 * time.Second); err != nil {
		t.Fatalf("expected completion after release, got %v", err)
	}
	outcomes, err := p.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].Ok() {
		t.Fatalf("expected 1 successful outcome, got %+v", outcomes)
	}
}

func TestSubmitWaitBackpressure(t *testing.T) {
	release := make(chan struct{})
	stall := func(ctx context.Context, v int) (int, error) {
		<-release
		return v, nil
	}
	cfg := Config{Name: "full", Capacity: 1, Workers: 1}
	p, err := New(cfg, []StageSpec[int]{{Name: "stall", Transform: stall}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := p.Submit(1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	// Wait for the worker to take item 1 so the buffer is empty again.
	deadline := time.Now().Add(2 * time.Second)
	for p.stages[0].in.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first item")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := p.Submit(2); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := p.SubmitWait(3, 50*time.Millisecond); !errors.IsTimeout(err) {
		t.Fatalf("expected TIMEOUT_EXCEEDED on a full queue, got %v", err)
	}

	close(release)
	if err := p.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if err := p.WaitTimeout(2 * time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	outcomes, err := p.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("rejected submit must not count: expected 2 outcomes, got %d", len(outcomes))
	}
}

func TestTimedOutSubmitWaitLeavesSeqGap(t *testing.T) {
	release := make(chan struct{})
	stall := func(ctx context.Context, v int) (int, error) {
		<-release
		return v, nil
	}
	cfg := Config{Name: "gapped", Capacity: 1, Workers: 1}
	p, err := New(cfg, []StageSpec[int]{{Name: "stall", Transform: stall}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	seqA, err := p.Submit(1)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	// Wait for the worker to take item 1 so the buffer is empty again.
	deadline := time.Now().Add(2 * time.Second)
	for p.stages[0].in.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first item")
		}
		time.Sleep(5 * time.Millisecond)
	}
	seqB, err := p.Submit(2)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// One submitter blocks on the full queue mid-wait, another after the
	// timeout; neither may ever observe the retired sequence number.
	var wg sync.WaitGroup
	var seqMid, seqLate int64
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		s, err := p.Submit(3)
		if err != nil {
			t.Errorf("concurrent Submit failed: %v", err)
			return
		}
		seqMid = s
	}()

	if _, err := p.SubmitWait(4, 300*time.Millisecond); !errors.IsTimeout(err) {
		t.Fatalf("expected TIMEOUT_EXCEEDED on a full queue, got %v", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s, err := p.Submit(5)
		if err != nil {
			t.Errorf("Submit after timeout failed: %v", err)
			return
		}
		seqLate = s
	}()

	close(release)
	wg.Wait()

	if err := p.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if err := p.WaitTimeout(2 * time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	outcomes, err := p.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("rejected submit must not count: expected 4 outcomes, got %d", len(outcomes))
	}

	seqs := []int64{seqA, seqB, seqMid, seqLate}
	accepted := make(map[int64]bool, len(seqs))
	var maxSeq int64
	for _, s := range seqs {
		if accepted[s] {
			t.Fatalf("sequence %d handed out twice: %v", s, seqs)
		}
		accepted[s] = true
		if s > maxSeq {
			maxSeq = s
		}
	}
	if maxSeq != 4 {
		t.Errorf("five reservations should end at seq 4, got max %d: %v", maxSeq, seqs)
	}
	for _, o := range outcomes {
		if !accepted[o.Seq] {
			t.Errorf("outcome seq %d never returned by a submit: %v", o.Seq, seqs)
		}
		delete(accepted, o.Seq)
	}
	for s := range accepted {
		t.Errorf("accepted seq %d missing from outcomes", s)
	}
}

func TestTransformPanicBecomesOutcome(t *testing.T) {
	boom := func(ctx context.Context, v int) (int, error) {
		if v == 2 {
			panic("boom")
		}
		return v, nil
	}
	p := newIntPipeline(t, "risky", StageSpec[int]{Name: "risky", Transform: boom})

	outcomes, err := p.Run(context.Background(), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("a panic must not lose items: got %d of 3", len(outcomes))
	}

	panicked := outcomes[1]
	if panicked.Ok() {
		t.Fatal("expected the panicking item to fail")
	}
	if !errors.IsTransformFailure(panicked.Err) {
		t.Errorf("expected TRANSFORM_FAILURE, got %v", panicked.Err)
	}
	if !strings.Contains(panicked.Err.Error(), "panicked") {
		t.Errorf("expected panic to be named in the error, got %v", panicked.Err)
	}
	if panicked.Stage != "risky" || panicked.Value != 2 {
		t.Errorf("expected stage risky and value 2, got %q and %d", panicked.Stage, panicked.Value)
	}
	if !outcomes[0].Ok() || !outcomes[2].Ok() {
		t.Error("other items should be unaffected by the panic")
	}
}

func TestStageRetryReportsAttempts(t *testing.T) {
	var calls atomic.Int32
	flaky := func(ctx context.Context, v int) (int, error) {
		if calls.Add(1) == 1 {
			return 0, fmt.Errorf("transient")
		}
		return v * 10, nil
	}
	p := newIntPipeline(t, "flaky", StageSpec[int]{
		Name:      "flaky",
		Transform: flaky,
		Retry: &resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	})

	outcomes, err := p.Run(context.Background(), []int{7})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	o := outcomes[0]
	if !o.Ok() {
		t.Fatalf("expected success after retry, got %v", o.Err)
	}
	if o.Value != 70 {
		t.Errorf("expected 70, got %d", o.Value)
	}
	if o.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", o.Attempts)
	}
}

func TestStageRetryStopsOnNonRetryable(t *testing.T) {
	var calls atomic.Int32
	bad := func(ctx context.Context, v int) (int, error) {
		calls.Add(1)
		return 0, errors.New(errors.ErrCodeInvalidConfig, "unparseable input")
	}
	p := newIntPipeline(t, "strict", StageSpec[int]{
		Name:      "parse",
		Transform: bad,
		Retry: &resilience.RetryConfig{
			MaxAttempts:    5,
			InitialBackoff: time.Millisecond,
		},
	})

	outcomes, err := p.Run(context.Background(), []int{1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcomes[0].Ok() {
		t.Fatal("expected failure")
	}
	if calls.Load() != 1 {
		t.Errorf("non-retryable errors must fail fast: got %d calls", calls.Load())
	}
	if outcomes[0].Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", outcomes[0].Attempts)
	}
}

func TestDrainConcurrentWithRun(t *testing.T) {
	p := newIntPipeline(t, "streaming",
		StageSpec[int]{Name: "double", Transform: double},
	)
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	type result struct {
		outcomes []Outcome[int]
		err      error
	}
	done := make(chan result, 1)
	go func() {
		outcomes, err := p.Drain()
		done <- result{outcomes, err}
	}()

	for i := 0; i < 10; i++ {
		if _, err := p.Submit(i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if err := p.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if err := p.WaitTimeout(2 * time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	r := <-done
	if r.err != nil {
		t.Fatalf("concurrent Drain failed: %v", r.err)
	}
	if len(r.outcomes) != 10 {
		t.Fatalf("expected 10 outcomes, got %d", len(r.outcomes))
	}
}

func TestPipelineAsComponent(t *testing.T) {
	passthrough := func(ctx context.Context, v int) (int, error) { return v, nil }
	p := newIntPipeline(t, "managed", StageSpec[int]{Name: "pass", Transform: passthrough})
	ctx := context.Background()

	var c component.Component = p

	h := c.Health(ctx)
	if h.Status != component.StatusDegraded || h.Message != "not started" {
		t.Errorf("expected degraded/not started before Start, got %s/%q", h.Status, h.Message)
	}

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h = c.Health(ctx)
	if h.Status != component.StatusHealthy || h.Message != "running" {
		t.Errorf("expected healthy/running, got %s/%q", h.Status, h.Message)
	}

	for i := 0; i < 3; i++ {
		if _, err := p.Submit(i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	h = c.Health(ctx)
	if h.Status != component.StatusHealthy || !strings.Contains(h.Message, "completed") {
		t.Errorf("expected healthy/completed after Stop, got %s/%q", h.Status, h.Message)
	}
	if err := c.Stop(ctx); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}

	d := p.Describe()
	if d.Type != "pipeline" || d.Name != "managed" {
		t.Errorf("unexpected description: %+v", d)
	}
	if !strings.Contains(d.Details, "1 stage") {
		t.Errorf("expected stage count in details, got %q", d.Details)
	}

	outcomes, err := p.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for _, st := range p.StageStates() {
		if st != StageClosed {
			t.Errorf("expected all stages closed after Stop, got %v", p.StageStates())
		}
	}
}

func TestStopWithoutStart(t *testing.T) {
	passthrough := func(ctx context.Context, v int) (int, error) { return v, nil }
	p := newIntPipeline(t, "idle", StageSpec[int]{Name: "pass", Transform: passthrough})

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on a never-started pipeline should be a no-op, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	passthrough := func(ctx context.Context, v int) (int, error) { return v, nil }
	valid := []StageSpec[int]{{Name: "pass", Transform: passthrough}}

	tests := []struct {
		name  string
		cfg   Config
		specs []StageSpec[int]
	}{
		{"empty pipeline name", Config{}, valid},
		{"negative capacity", Config{Name: "p", Capacity: -1}, valid},
		{"negative workers", Config{Name: "p", Workers: -1}, valid},
		{"no stages", Config{Name: "p"}, nil},
		{"nil transform", Config{Name: "p"}, []StageSpec[int]{{Name: "pass"}}},
		{"empty stage name", Config{Name: "p"}, []StageSpec[int]{{Transform: passthrough}}},
		{"negative stage workers", Config{Name: "p"}, []StageSpec[int]{{Name: "pass", Transform: passthrough, Workers: -1}}},
		{"duplicate stage names", Config{Name: "p"}, []StageSpec[int]{
			{Name: "pass", Transform: passthrough},
			{Name: "pass", Transform: passthrough},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.specs)
			if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", err)
			}
		})
	}
}

func TestStageWorkerOverride(t *testing.T) {
	cfg := Config{Name: "mixed", Workers: 2}
	p, err := New(cfg, []StageSpec[int]{
		{Name: "wide", Transform: double, Workers: 5},
		{Name: "narrow", Transform: increment},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p.stages[0].workers != 5 {
		t.Errorf("expected stage override 5, got %d", p.stages[0].workers)
	}
	if p.stages[1].workers != 2 {
		t.Errorf("expected config fallback 2, got %d", p.stages[1].workers)
	}

	d := p.Describe()
	if !strings.Contains(d.Details, "7 workers") {
		t.Errorf("expected 7 workers in description, got %q", d.Details)
	}
}

func TestZeroValueItemsFlow(t *testing.T) {
	p := newIntPipeline(t, "zeros", StageSpec[int]{Name: "increment", Transform: increment})

	outcomes, err := p.Run(context.Background(), []int{0, 0, 0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("zero values are legal items: expected 3 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if !o.Ok() || o.Value != 1 {
			t.Fatalf("expected 0 to increment to 1, got %+v", o)
		}
	}
}
