// Package validation checks configuration before a pipeline is built.
//
// Two styles share one error shape. Tag-driven validation covers
// structs annotated with `validate:` tags:
//
//	type StageSpec struct {
//	    Name    string `validate:"required"`
//	    Workers int    `validate:"gte=1,lte=1024"`
//	}
//	err := validation.Validate(spec)
//
// The chained Validator covers values assembled at runtime:
//
//	err := validation.New().
//	    Required("name", name).
//	    Positive("workers", workers).
//	    Validate()
//
// Either way a failure is a single INVALID_CONFIG error naming every
// offending field, with the per-field breakdown under Details.
package validation
