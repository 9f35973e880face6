package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// telemetryResource stamps exported metrics and traces with the service
// identity, merged over the SDK defaults (host, process, runtime). The
// identity attributes carry no schema URL so the merge cannot conflict
// with whatever semconv version the SDK defaults were built against.
func telemetryResource(service, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(service),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("environment", environment),
		),
	)
}
