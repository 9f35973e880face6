// Package resilience provides retry with exponential backoff for transient
// failures.
//
//	cfg := resilience.DefaultRetryConfig()
//	result, err := resilience.Retry(ctx, cfg, func() (string, error) {
//	    return fetchRecord(id)
//	})
//
// DefaultRetryIf never retries context cancellation; AppErrors are retried
// only when their code is marked retryable, so invariant violations and
// transform failures fail fast while timeouts are attempted again.
package resilience
