package component

import "context"

// Component is a long-lived unit a host manages: a pipeline, an exporter,
// a watcher. A Registry starts and stops registered components in a
// deterministic order.
type Component interface {
	// Name identifies the component within a registry.
	Name() string

	// Start brings the component up. It must be safe to call Stop after
	// a failed Start.
	Start(ctx context.Context) error

	// Stop winds the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health reports the component's current condition.
	Health(ctx context.Context) Health
}

// HealthStatus grades a component's condition.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's self-reported condition.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Describable is implemented by components that can summarize themselves
// for startup diagnostics.
type Describable interface {
	Describe() Description
}

// Description is a component's one-line self-summary.
type Description struct {
	// Name for display; the registry falls back to Component.Name()
	// when empty.
	Name string
	// Type buckets the component: "pipeline", "exporter".
	Type string
	// Details in one line, e.g. "3 stages, 12 workers".
	Details string
}
