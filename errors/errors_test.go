package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewDerivesRetryability(t *testing.T) {
	cases := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeInvariantViolation, false},
		{ErrCodeInvalidConfig, false},
		{ErrCodeTransformFailure, false},
		{ErrCodeTimeoutExceeded, true},
	}
	for _, tc := range cases {
		err := New(tc.code, "probe")
		if err.Code != tc.code || err.Message != "probe" {
			t.Errorf("New(%s) = %+v", tc.code, err)
		}
		if err.Retryable != tc.retryable {
			t.Errorf("New(%s).Retryable = %v, want %v", tc.code, err.Retryable, tc.retryable)
		}
	}
}

func TestInvariantViolation(t *testing.T) {
	err := InvariantViolation("task done called more times than items were put")
	if err.Code != ErrCodeInvariantViolation {
		t.Errorf("code = %s, want INVARIANT_VIOLATION", err.Code)
	}
	if err.Retryable {
		t.Error("invariant violations must not be retryable")
	}
	if !IsInvariantViolation(err) {
		t.Error("IsInvariantViolation should match")
	}
}

func TestTransformFailure(t *testing.T) {
	cause := fmt.Errorf("division by zero")
	err := TransformFailure("normalize", cause)

	if err.Code != ErrCodeTransformFailure || err.Retryable {
		t.Errorf("unexpected shape: %+v", err)
	}
	if err.Details["stage"] != "normalize" {
		t.Errorf("stage detail = %v, want normalize", err.Details["stage"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Unwrap")
	}
	if !IsTransformFailure(err) {
		t.Error("IsTransformFailure should match")
	}
}

func TestTransformPanic(t *testing.T) {
	err := TransformPanic("resize", "index out of range")
	if err.Code != ErrCodeTransformFailure {
		t.Errorf("code = %s, want TRANSFORM_FAILURE", err.Code)
	}
	if !strings.Contains(err.Message, "panicked") {
		t.Errorf("message should mention the panic, got %q", err.Message)
	}
	if err.Details["panic"] != "index out of range" {
		t.Errorf("panic detail = %v, want the recovered value", err.Details["panic"])
	}
}

func TestTimeoutExceeded(t *testing.T) {
	err := TimeoutExceeded("queue.Put", 50*time.Millisecond)
	if err.Code != ErrCodeTimeoutExceeded {
		t.Errorf("code = %s, want TIMEOUT_EXCEEDED", err.Code)
	}
	if !err.Retryable {
		t.Error("timeouts should be retryable")
	}
	if err.Details["operation"] != "queue.Put" || err.Details["timeout"] != "50ms" {
		t.Errorf("details = %v", err.Details)
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout should match")
	}
}

func TestErrorString(t *testing.T) {
	plain := InvalidConfig("workers out of range")
	if got := plain.Error(); got != "INVALID_CONFIG: workers out of range" {
		t.Errorf("Error() = %q", got)
	}

	withCause := TransformFailure("double", fmt.Errorf("boom"))
	want := `TRANSFORM_FAILURE: transform failed in stage "double" (cause: boom)`
	if got := withCause.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDetailBuilders(t *testing.T) {
	err := InvalidConfig("workers out of range").
		WithDetail("field", "workers").
		WithDetails(map[string]any{"min": 1, "max": 1024})

	if err.Details["field"] != "workers" {
		t.Errorf("existing detail lost: %v", err.Details)
	}
	if err.Details["min"] != 1 || err.Details["max"] != 1024 {
		t.Errorf("merged details missing: %v", err.Details)
	}
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	inner := TimeoutExceeded("pipeline.Wait", time.Second)
	wrapped := fmt.Errorf("run aborted: %w", inner)

	appErr, ok := AsAppError(wrapped)
	if !ok || appErr.Code != ErrCodeTimeoutExceeded {
		t.Fatalf("AsAppError(wrapped) = %v, %v", appErr, ok)
	}
	if !IsTimeout(wrapped) {
		t.Error("IsTimeout should see through wrapping")
	}
	if !HasCode(wrapped, ErrCodeTimeoutExceeded) {
		t.Error("HasCode should see through wrapping")
	}
	if HasCode(wrapped, ErrCodeInvalidConfig) {
		t.Error("HasCode matched the wrong code")
	}
}

func TestIsAppError(t *testing.T) {
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("plain error should not be an AppError")
	}
	if !IsAppError(InvalidConfig("x")) {
		t.Error("AppError should be detected")
	}
}

func TestIsRetryableFallback(t *testing.T) {
	if !IsRetryable(fmt.Errorf("connection reset")) {
		t.Error("non-AppError failures should default to retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil error is not retryable")
	}
	if IsRetryable(InvariantViolation("double seal")) {
		t.Error("invariant violations must not be retryable")
	}
}
