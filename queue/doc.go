// Package queue provides bounded, closable FIFO queues with task
// accounting for fan-out worker pipelines.
//
// Bounded is the base primitive: producers block while the queue is at
// capacity (backpressure), consumers block while it is empty, and Join
// blocks until every item has been retrieved and acknowledged with
// TaskDone. Closable layers an end-of-stream protocol on top: Close
// enqueues a marker behind all prior items, and each marker terminates
// exactly one consumer.
//
// # Ownership
//
// An item belongs to the producer until Put returns, to the queue until a
// consumer's Get returns, and to that consumer until it calls TaskDone.
// The All iterator manages the acknowledgment automatically:
//
//	work := queue.NewClosable[string](64)
//	go func() {
//	    for task := range work.All() {
//	        handle(task)
//	    }
//	}()
//	work.Put("a")
//	work.Put("b")
//	work.Close()
//	work.Join()
//
// # Hazards
//
// Deadlocks are not detected. Join blocks forever when a consumer
// retrieves items without acknowledging them, and a full queue blocks
// producers forever when no consumer is draining it. The timed variants
// (PutWait, GetWait, JoinWait) bound these waits and return a retryable
// TIMEOUT_EXCEEDED error with all queue state unchanged.
package queue
