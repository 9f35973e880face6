package queue

import (
	"iter"
	"time"
)

// slot is a tagged queue element: either a payload item or a close marker.
// Using a tag instead of a reserved payload value keeps every value of T,
// including the zero value, a legal item.
type slot[T any] struct {
	value T
	close bool
}

// Closable is a Bounded queue with an end-of-stream protocol. Close
// enqueues a marker behind all prior items; a consumer that retrieves the
// marker knows no further items will follow for it. One marker stops
// exactly one consumer, so a pool of W consumers needs W Close calls.
type Closable[T any] struct {
	q *Bounded[slot[T]]
}

// NewClosable creates a closable queue holding at most capacity buffered
// elements. Markers occupy slots like items do. A capacity of zero or less
// means unbounded.
func NewClosable[T any](capacity int) *Closable[T] {
	return &Closable[T]{q: NewBounded[slot[T]](capacity)}
}

// Put appends item behind any earlier items and markers, blocking while the
// queue is at capacity. Putting after Close is a protocol error the queue
// does not detect; the pipeline layer guards it.
func (c *Closable[T]) Put(item T) {
	c.q.Put(slot[T]{value: item})
}

// PutWait is Put with a deadline; see Bounded.PutWait.
func (c *Closable[T]) PutWait(item T, timeout time.Duration) error {
	return c.q.PutWait(slot[T]{value: item}, timeout)
}

// Close enqueues exactly one close marker through the normal Put path: it
// respects capacity backpressure and counts as outstanding work until the
// retrieving consumer acknowledges it. Close is not idempotent; every call
// adds another marker.
func (c *Closable[T]) Close() {
	c.q.Put(slot[T]{close: true})
}

// Get removes and returns the oldest element, blocking while the queue is
// empty. The second return is false when a close marker was retrieved; the
// caller still owes a TaskDone for it.
func (c *Closable[T]) Get() (T, bool) {
	s := c.q.Get()
	return s.value, !s.close
}

// GetWait is Get with a deadline; see Bounded.GetWait.
func (c *Closable[T]) GetWait(timeout time.Duration) (T, bool, error) {
	s, err := c.q.GetWait(timeout)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return s.value, !s.close, nil
}

// All returns an iterator over the items remaining in the queue, ending
// when this consumer retrieves a close marker. Every retrieved element,
// markers included, is acknowledged with TaskDone; for items the
// acknowledgment runs after the loop body, even if the body panics. Items
// taken by other consumers of the same queue are not seen.
//
// Breaking out of the loop early stops consuming without retrieving a
// marker; the marker remains for another consumer.
func (c *Closable[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			item, ok := c.Get()
			if !ok {
				_ = c.TaskDone()
				return
			}
			if !yieldAcked(c, yield, item) {
				return
			}
		}
	}
}

// yieldAcked runs one loop iteration with the TaskDone acknowledgment tied
// to the iteration scope, so it fires on normal completion, break, and
// panic alike.
func yieldAcked[T any](c *Closable[T], yield func(T) bool, item T) bool {
	defer func() { _ = c.TaskDone() }()
	return yield(item)
}

// TaskDone acknowledges one retrieved element; see Bounded.TaskDone.
func (c *Closable[T]) TaskDone() error {
	return c.q.TaskDone()
}

// Join blocks until every element put, markers included, has been
// retrieved and acknowledged; see Bounded.Join.
func (c *Closable[T]) Join() {
	c.q.Join()
}

// JoinWait is Join with a deadline; see Bounded.JoinWait.
func (c *Closable[T]) JoinWait(timeout time.Duration) error {
	return c.q.JoinWait(timeout)
}

// Len returns a snapshot of buffered elements, markers included.
func (c *Closable[T]) Len() int {
	return c.q.Len()
}

// Outstanding returns a snapshot of unacknowledged elements, markers
// included.
func (c *Closable[T]) Outstanding() int {
	return c.q.Outstanding()
}

// Cap returns the configured capacity. Zero or less means unbounded.
func (c *Closable[T]) Cap() int {
	return c.q.Cap()
}
