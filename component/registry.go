package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stagekit/stagekit/logger"
)

// Each component gets this long to stop before its context is cut.
const stopTimeout = 10 * time.Second

type entry struct {
	component Component
	started   bool
}

// Registry owns component lifecycle ordering: StartAll runs in
// registration order, StopAll in reverse, so dependencies outlive their
// dependents. Register dependencies first.
type Registry struct {
	mu      sync.RWMutex
	ordered []*entry
	byName  map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

// Register adds c. Names must be unique within the registry.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}

	e := &entry{component: c}
	r.ordered = append(r.ordered, e)
	r.byName[name] = e

	logger.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts components in registration order and stops at the
// first failure, leaving earlier components running; the caller decides
// whether to StopAll or bail.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Info("starting components", logger.Fields("count", len(r.ordered)))
	for _, e := range r.ordered {
		name := e.component.Name()
		if err := e.component.Start(ctx); err != nil {
			logger.Error("component start failed", logger.MergeWithError(
				logger.Fields(logger.FieldComponent, name), err))
			return fmt.Errorf("start %s: %w", name, err)
		}
		e.started = true
		logger.Debug("component started", logger.Fields(logger.FieldComponent, name))
	}
	return nil
}

// StopAll stops started components in reverse registration order. Every
// component gets its stop attempt regardless of earlier failures; the
// collected errors come back joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.ordered) - 1; i >= 0; i-- {
		e := r.ordered[i]
		if !e.started {
			continue
		}
		name := e.component.Name()

		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		err := e.component.Stop(stopCtx)
		cancel()

		e.started = false
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			logger.Error("component stop failed", logger.MergeWithError(
				logger.Fields(logger.FieldComponent, name), err))
			continue
		}
		logger.Debug("component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return errors.Join(errs...)
}

// HealthAll polls every registered component, in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.ordered))
	for _, e := range r.ordered {
		out = append(out, e.component.Health(ctx))
	}
	return out
}

// Aggregate rolls the individual reports into one: any unhealthy
// component makes the set unhealthy, otherwise any degraded one makes
// it degraded.
func (r *Registry) Aggregate(ctx context.Context) Health {
	reports := r.HealthAll(ctx)

	overall := Health{Name: "components", Status: StatusHealthy}
	healthy := 0
	for _, h := range reports {
		switch h.Status {
		case StatusUnhealthy:
			overall.Status = StatusUnhealthy
		case StatusDegraded:
			if overall.Status == StatusHealthy {
				overall.Status = StatusDegraded
			}
		default:
			healthy++
		}
	}
	overall.Message = fmt.Sprintf("%d/%d healthy", healthy, len(reports))
	return overall
}

// Descriptions collects self-summaries from Describable components in
// registration order, filling empty display names from Component.Name.
func (r *Registry) Descriptions() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Description
	for _, e := range r.ordered {
		d, ok := e.component.(Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		if desc.Name == "" {
			desc.Name = e.component.Name()
		}
		out = append(out, desc)
	}
	return out
}

// Get looks a component up by name; nil when absent.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.byName[name]; ok {
		return e.component
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, 0, len(r.ordered))
	for _, e := range r.ordered {
		out = append(out, e.component)
	}
	return out
}
