package pipeline

// Outcome is the terminal record for one submitted item. Exactly one Outcome
// reaches the results queue per accepted Submit, whether the item succeeded
// or failed partway through.
type Outcome[T any] struct {
	// Seq is the submission sequence number, assigned in Submit order
	// starting at 0. No two accepted items share a Seq; a timed-out
	// SubmitWait retires its number, leaving a gap.
	Seq int64

	// Value holds the fully transformed item on success. On failure it
	// holds the value as it entered the failing stage.
	Value T

	// Err is nil on success. On failure it carries the stage error, a
	// TRANSFORM_FAILURE AppError whether the transform returned an error
	// or panicked.
	Err error

	// Stage names the stage where processing failed. Empty on success.
	Stage string

	// Attempts counts transform executions in the last stage that ran the
	// item. 1 when the stage has no retry policy.
	Attempts int
}

// Ok reports whether the item passed every stage.
func (o Outcome[T]) Ok() bool {
	return o.Err == nil
}

// envelope carries an item between stages. Once err is set the envelope
// skips every remaining transform and flows through untouched, so each
// failure surfaces exactly once in the results.
type envelope[T any] struct {
	seq      int64
	value    T
	err      error
	stage    string
	attempts int
}

func (e envelope[T]) outcome() Outcome[T] {
	return Outcome[T]{
		Seq:      e.seq,
		Value:    e.value,
		Err:      e.err,
		Stage:    e.stage,
		Attempts: e.attempts,
	}
}
