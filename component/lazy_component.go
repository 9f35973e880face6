package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/stagekit/stagekit/logger"
)

// BaseLazyComponent defers expensive setup until first use, for
// components holding connections or other costly state. Unlike
// sync.Once, a failed initialization can be retried on the next call.
type BaseLazyComponent struct {
	name     string
	setup    func(ctx context.Context) error
	check    func(ctx context.Context) error
	teardown func() error

	mu    sync.RWMutex
	ready bool
}

// NewBaseLazyComponent wraps setup as the deferred initialization for name.
func NewBaseLazyComponent(name string, setup func(ctx context.Context) error) *BaseLazyComponent {
	return &BaseLazyComponent{name: name, setup: setup}
}

// WithHealthCheck adds a check that HealthCheck runs after initialization.
func (b *BaseLazyComponent) WithHealthCheck(fn func(ctx context.Context) error) *BaseLazyComponent {
	b.check = fn
	return b
}

// WithCloser adds teardown that Close runs when initialized.
func (b *BaseLazyComponent) WithCloser(fn func() error) *BaseLazyComponent {
	b.teardown = fn
	return b
}

func (b *BaseLazyComponent) Name() string {
	return b.name
}

// Initialize runs the setup once. Concurrent callers race to the write
// lock and the losers see the winner's result; a failed run leaves the
// component uninitialized so a later call tries again.
func (b *BaseLazyComponent) Initialize(ctx context.Context) error {
	if b.IsInitialized() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return nil
	}
	if b.setup == nil {
		return fmt.Errorf("component %s has no initializer", b.name)
	}

	if err := b.setup(ctx); err != nil {
		return fmt.Errorf("initialize %s: %w", b.name, err)
	}
	b.ready = true
	logger.Debug("lazy component initialized", logger.Fields(logger.FieldComponent, b.name))
	return nil
}

// IsInitialized reports whether a setup run has succeeded.
func (b *BaseLazyComponent) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// HealthCheck fails for an uninitialized component, then defers to the
// custom check when one is set.
func (b *BaseLazyComponent) HealthCheck(ctx context.Context) error {
	if !b.IsInitialized() {
		return fmt.Errorf("component %s not initialized", b.name)
	}
	if b.check != nil {
		return b.check(ctx)
	}
	return nil
}

// Close tears the component down and marks it uninitialized. Closing an
// uninitialized component is a no-op.
func (b *BaseLazyComponent) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasReady := b.ready
	b.ready = false
	if b.teardown != nil && wasReady {
		return b.teardown()
	}
	return nil
}
