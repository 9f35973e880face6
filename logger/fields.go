package logger

import "time"

// Field names shared across the kit. Using the constants keeps log
// queries stable when call sites move.
const (
	// Identity.
	FieldService    = "service"
	FieldComponent  = "component"
	FieldPipeline   = "pipeline"
	FieldPipelineID = "pipeline_id"

	// Position in a run.
	FieldStage   = "stage"
	FieldWorker  = "worker"
	FieldWorkers = "workers"
	FieldQueue   = "queue"
	FieldSeq     = "seq"
	FieldAttempt = "attempt"

	// Sizing and outcome.
	FieldCapacity  = "capacity"
	FieldItems     = "items"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields assembles an event field map from alternating key-value pairs.
// A trailing key without a value and non-string keys are dropped.
//
//	log.Info("stage drained", logger.Fields(logger.FieldStage, "resize", logger.FieldItems, 42))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			continue
		}
		m[key] = kvs[i+1]
	}
	return m
}

// ErrorFields names a failed operation and its error.
func ErrorFields(op string, err error) map[string]any {
	return map[string]any{FieldOperation: op, FieldError: err.Error()}
}

// DurationFields names a timed operation and its elapsed milliseconds.
func DurationFields(op string, d time.Duration) map[string]any {
	return map[string]any{FieldOperation: op, FieldDuration: d.Milliseconds()}
}

// MergeWithError adds the error field to fields, allocating when nil.
func MergeWithError(fields map[string]any, err error) map[string]any {
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields[FieldError] = err.Error()
	return fields
}

// MergeWithDuration adds the duration field to fields, allocating when nil.
func MergeWithDuration(fields map[string]any, d time.Duration) map[string]any {
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
