package queue

import (
	"sync"
	"time"

	"github.com/stagekit/stagekit/errors"
)

// Bounded is a thread-safe FIFO queue with optional capacity backpressure
// and task accounting. Put blocks while the queue is full, Get blocks while
// it is empty, and Join blocks until every retrieved item has been
// acknowledged with TaskDone.
//
// The zero value is not usable; construct with NewBounded.
type Bounded[T any] struct {
	mu       sync.Mutex
	notEmpty condTimed
	notFull  condTimed
	allDone  condTimed

	items      []T
	capacity   int
	unfinished int
}

// NewBounded creates a queue holding at most capacity buffered items.
// A capacity of zero or less means unbounded: Put never blocks.
func NewBounded[T any](capacity int) *Bounded[T] {
	q := &Bounded[T]{capacity: capacity}
	q.notEmpty = condTimed{sync.Cond{L: &q.mu}}
	q.notFull = condTimed{sync.Cond{L: &q.mu}}
	q.allDone = condTimed{sync.Cond{L: &q.mu}}
	return q
}

// Put appends item to the queue, blocking while the queue is at capacity.
// Each Put increments the outstanding count by one.
func (q *Bounded[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.isFull() {
		q.notFull.Wait()
	}
	q.enqueue(item)
}

// PutWait is Put with a deadline. It returns a TIMEOUT_EXCEEDED error if no
// slot frees up within timeout, leaving the queue untouched. A timeout of
// zero or less waits forever.
func (q *Bounded[T]) PutWait(item T, timeout time.Duration) error {
	if timeout <= 0 {
		q.Put(item)
		return nil
	}
	deadline := time.Now().Add(timeout)
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.isFull() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.TimeoutExceeded("queue.Put", timeout)
		}
		q.notFull.waitTimeout(remaining)
	}
	q.enqueue(item)
	return nil
}

// Get removes and returns the oldest item, blocking while the queue is
// empty. The outstanding count is unchanged until the caller acknowledges
// the item with TaskDone.
func (q *Bounded[T]) Get() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.notEmpty.Wait()
	}
	return q.dequeue()
}

// GetWait is Get with a deadline. It returns the zero value and a
// TIMEOUT_EXCEEDED error if no item arrives within timeout. A timeout of
// zero or less waits forever.
func (q *Bounded[T]) GetWait(timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return q.Get(), nil
	}
	deadline := time.Now().Add(timeout)
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, errors.TimeoutExceeded("queue.Get", timeout)
		}
		q.notEmpty.waitTimeout(remaining)
	}
	return q.dequeue(), nil
}

// TaskDone acknowledges one previously retrieved item. When the outstanding
// count reaches zero all Join waiters are released. Calling TaskDone more
// times than items were put is reported as an INVARIANT_VIOLATION error and
// leaves the count at zero.
func (q *Bounded[T]) TaskDone() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished == 0 {
		return errors.InvariantViolation("queue.TaskDone called more times than items were put")
	}
	q.unfinished--
	if q.unfinished == 0 {
		q.allDone.Broadcast()
	}
	return nil
}

// Join blocks until the outstanding count reaches zero, that is, until
// every item ever put has been retrieved and acknowledged. It returns
// immediately when the count is already zero.
func (q *Bounded[T]) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 {
		q.allDone.Wait()
	}
}

// JoinWait is Join with a deadline, returning a TIMEOUT_EXCEEDED error if
// outstanding work remains after timeout. A timeout of zero or less waits
// forever.
func (q *Bounded[T]) JoinWait(timeout time.Duration) error {
	if timeout <= 0 {
		q.Join()
		return nil
	}
	deadline := time.Now().Add(timeout)
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.TimeoutExceeded("queue.Join", timeout)
		}
		q.allDone.waitTimeout(remaining)
	}
	return nil
}

// Len returns a snapshot of the number of buffered items. By the time the
// caller acts on it the value may be stale; use it for monitoring only.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Outstanding returns a snapshot of the outstanding count: items put but
// not yet acknowledged. Advisory only, like Len.
func (q *Bounded[T]) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}

// Cap returns the configured capacity. Zero or less means unbounded.
func (q *Bounded[T]) Cap() int {
	return q.capacity
}

func (q *Bounded[T]) isFull() bool {
	return q.capacity > 0 && len(q.items) >= q.capacity
}

// enqueue and dequeue require q.mu to be held. Notifications use Broadcast,
// not Signal: a timed waiter may abandon its wakeup, which would strand a
// signal meant for another waiter.
func (q *Bounded[T]) enqueue(item T) {
	q.items = append(q.items, item)
	q.unfinished++
	q.notEmpty.Broadcast()
}

func (q *Bounded[T]) dequeue() T {
	item := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	q.notFull.Broadcast()
	return item
}
