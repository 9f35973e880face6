package errors

// ErrorCode identifies a failure class. Codes, not messages, are the
// stable surface callers branch on.
type ErrorCode string

// Contract violations. Programmer misuse, never retryable.
const (
	// ErrCodeInvariantViolation is API misuse that broke an internal
	// invariant, such as acknowledging more items than were retrieved
	// or submitting to a sealed pipeline.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ErrCodeInvalidConfig is configuration rejected at construction.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Processing errors. Per-item outcomes, never fatal to a worker.
const (
	// ErrCodeTransformFailure is a stage transform that returned an
	// error or panicked while processing a single item.
	ErrCodeTransformFailure ErrorCode = "TRANSFORM_FAILURE"
)

// Recoverable errors.
const (
	// ErrCodeTimeoutExceeded is a blocking operation that gave up after
	// its deadline, leaving no partial state behind.
	ErrCodeTimeoutExceeded ErrorCode = "TIMEOUT_EXCEEDED"
)

// Codes absent from the table are non-retryable.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeoutExceeded: true,
}

// IsRetryableCode reports whether operations failing with code may be
// reissued.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
