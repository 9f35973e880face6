package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/stagekit/stagekit/errors"
)

func TestValidatorStringChecks(t *testing.T) {
	cases := []struct {
		name    string
		check   func(*Validator)
		wantMsg string // empty means the check should pass
	}{
		{"required ok", func(v *Validator) { v.Required("name", "resize") }, ""},
		{"required empty", func(v *Validator) { v.Required("name", "") }, "is required"},
		{"required whitespace", func(v *Validator) { v.Required("name", "   ") }, "is required"},
		{"uuid ok", func(v *Validator) { v.RequiredUUID("id", uuid.New().String()) }, ""},
		{"uuid empty", func(v *Validator) { v.RequiredUUID("id", "") }, "is required"},
		{"uuid garbage", func(v *Validator) { v.RequiredUUID("id", "not-a-uuid") }, "must be a valid UUID"},
		{"uuid nil", func(v *Validator) { v.RequiredUUID("id", uuid.Nil.String()) }, "must not be the nil UUID"},
		{"oneof ok", func(v *Validator) { v.OneOf("format", "json", []string{"json", "console"}) }, ""},
		{"oneof rejected", func(v *Validator) { v.OneOf("format", "xml", []string{"json", "console"}) }, "must be one of: json, console"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			tc.check(v)
			if tc.wantMsg == "" {
				if v.HasErrors() {
					t.Fatalf("unexpected errors: %v", v.Errors())
				}
				return
			}
			errs := v.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			if errs[0].Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Message, tc.wantMsg)
			}
		})
	}
}

func TestValidatorNumericChecks(t *testing.T) {
	v := New().
		Min("workers", 4, 1).
		Max("workers", 4, 1024).
		Range("capacity", 16, 0, 65536).
		Positive("workers", 4)
	if v.HasErrors() {
		t.Fatalf("expected no errors, got %v", v.Errors())
	}

	v = New().
		Min("workers", 0, 1).
		Max("capacity", 100000, 65536).
		Range("retries", -1, 0, 10).
		Positive("workers", 0)
	want := []string{
		"must be at least 1",
		"must be at most 65536",
		"must be between 0 and 10",
		"must be greater than 0",
	}
	errs := v.Errors()
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), errs)
	}
	for i, msg := range want {
		if errs[i].Message != msg {
			t.Errorf("error %d = %q, want %q", i, errs[i].Message, msg)
		}
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Errorf("expected nil with no failures, got %v", err)
	}

	err := New().Required("name", "").Positive("workers", 0).Validate()
	if err == nil {
		t.Fatal("expected an error with failures recorded")
	}
	if err.Code != errors.ErrCodeInvalidConfig {
		t.Errorf("code = %s, want INVALID_CONFIG", err.Code)
	}
	if !strings.Contains(err.Message, "name") || !strings.Contains(err.Message, "workers") {
		t.Errorf("expected both fields in the message, got %q", err.Message)
	}
	fields, ok := err.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Errorf("expected 2 field errors in details, got %v", err.Details)
	}
}

func TestValidateStructTags(t *testing.T) {
	type spec struct {
		Name     string `json:"name" validate:"required"`
		Workers  int    `json:"workers" validate:"gte=1,lte=1024"`
		Capacity int    `json:"capacity" validate:"gte=0"`
	}

	if err := Validate(spec{Name: "double", Workers: 4, Capacity: 16}); err != nil {
		t.Errorf("expected valid struct, got %v", err)
	}

	err := Validate(spec{Name: "", Workers: 0, Capacity: -1})
	if err == nil {
		t.Fatal("expected validation errors")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected an AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidConfig {
		t.Errorf("code = %s, want INVALID_CONFIG", appErr.Code)
	}
	for _, field := range []string{"name", "workers", "capacity"} {
		if !strings.Contains(appErr.Message, field) {
			t.Errorf("expected %q in message, got %q", field, appErr.Message)
		}
	}
}

func TestValidateUsesJSONTagNames(t *testing.T) {
	type spec struct {
		WaitTimeout int `json:"wait_timeout" validate:"gte=0"`
	}
	err := Validate(spec{WaitTimeout: -5})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "wait_timeout") {
		t.Errorf("expected json tag name in error, got %q", err.Error())
	}
}

func TestValidateFallsBackToSnakeCase(t *testing.T) {
	type spec struct {
		MaxAttempts int `validate:"gte=1"`
	}
	err := Validate(spec{MaxAttempts: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "max_attempts") {
		t.Errorf("expected snake_cased field name in error, got %q", err.Error())
	}
}

func TestValidateNonStruct(t *testing.T) {
	err := Validate(42)
	if err == nil {
		t.Fatal("expected an error for non-struct input")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Workers":     "workers",
		"WaitTimeout": "wait_timeout",
		"name":        "name",
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
