// Package errors defines the structured error type shared across the
// kit. Every failure carries an ErrorCode separating caller bugs
// (INVARIANT_VIOLATION, INVALID_CONFIG) from per-item transform
// failures (TRANSFORM_FAILURE) and recoverable timeouts
// (TIMEOUT_EXCEEDED); retryability is a property of the code. The Is*
// helpers classify errors through arbitrary wrapping.
package errors
