package queue

import (
	"sync"
	"time"
)

// condTimed is a sync.Cond that can also give up waiting after a duration.
type condTimed struct {
	sync.Cond
}

// waitTimeout blocks like Wait but no longer than d. It reports whether the
// wakeup came from a notification rather than the timer. Callers must hold
// the lock and must re-check their predicate either way.
func (c *condTimed) waitTimeout(d time.Duration) bool {
	timer := time.AfterFunc(d, func() {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	})
	c.Wait()
	return timer.Stop()
}
