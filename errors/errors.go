package errors

import (
	"fmt"
	"time"
)

// AppError carries a machine-readable code, a human-readable message,
// and whether the failing operation may be reissued. Details holds
// structured context for logs; Cause preserves the wrapped error for
// the standard errors.Is and errors.As.
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause records the underlying error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail attaches one key-value pair of context and returns the
// receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDetails merges details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// New builds an AppError whose Retryable flag derives from the code
// table.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// InvariantViolation marks programmer misuse of the API, such as
// acknowledging more items than were taken. These indicate a bug in
// the caller and must not be retried or swallowed.
func InvariantViolation(reason string) *AppError {
	return New(ErrCodeInvariantViolation, reason)
}

// TransformFailure wraps an error a stage transform returned for one
// item. The failure travels with the item; the worker and the pipeline
// keep running.
func TransformFailure(stage string, cause error) *AppError {
	return New(ErrCodeTransformFailure, fmt.Sprintf("transform failed in stage %q", stage)).
		WithDetail("stage", stage).
		WithCause(cause)
}

// TransformPanic captures a panic recovered from a stage transform
// while it processed one item, preserving the recovered value.
func TransformPanic(stage string, recovered any) *AppError {
	return New(ErrCodeTransformFailure, fmt.Sprintf("transform panicked in stage %q: %v", stage, recovered)).
		WithDetail("stage", stage).
		WithDetail("panic", fmt.Sprint(recovered))
}

// TimeoutExceeded reports a blocking operation that gave up after its
// deadline. Queue and pipeline state is unchanged, so the operation may
// be reissued.
func TimeoutExceeded(operation string, timeout time.Duration) *AppError {
	return New(ErrCodeTimeoutExceeded, fmt.Sprintf("%s did not complete within %s", operation, timeout)).
		WithDetail("operation", operation).
		WithDetail("timeout", timeout.String())
}

// InvalidConfig reports configuration rejected at construction time.
func InvalidConfig(reason string) *AppError {
	return New(ErrCodeInvalidConfig, reason)
}
