package errors

import (
	stderrors "errors"
)

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsInvariantViolation reports whether err indicates programmer misuse.
func IsInvariantViolation(err error) bool {
	return HasCode(err, ErrCodeInvariantViolation)
}

// IsTransformFailure reports whether err is a per-item transform failure.
func IsTransformFailure(err error) bool {
	return HasCode(err, ErrCodeTransformFailure)
}

// IsTimeout reports whether err indicates an expired blocking operation.
func IsTimeout(err error) bool {
	return HasCode(err, ErrCodeTimeoutExceeded)
}

// IsRetryable reports whether err may be retried. Non-AppError values are
// treated as retryable so transient I/O errors inside transforms keep their
// usual retry semantics.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return err != nil
}
