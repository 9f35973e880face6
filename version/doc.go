// Package version resolves the build identity of a stagekit binary:
// ldflags-injected values first, the module's embedded build info as
// fallback. Observability configs stamp telemetry with it.
package version
