package animate

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Queue shares the strip between concurrent users, for example the status loop and a long
// running effect. Queueing sets an interrupted state that the current owner can poll; an
// owner that sees it SHOULD finish up and release the strip so the queued caller can continue.
type Queue struct {
	owner sync.Mutex

	mu      sync.Mutex
	waiters int
}

// Unlocker hands the strip back. It must be called exactly once per Queue call.
type Unlocker func()

// Queue marks the queue as interrupted and blocks until the strip is free.
func (q *Queue) Queue() Unlocker {
	q.addWaiters(1)
	q.owner.Lock()
	q.addWaiters(-1)

	return q.release
}

func (q *Queue) addWaiters(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.waiters += n
	if n > 0 {
		log.Trace("Waiting for strip: ", q.waiters)
	}
}

// IsInterrupted reports whether anyone is waiting for the strip.
func (q *Queue) IsInterrupted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.waiters != 0
}

// release gives up ownership so one of the blocked Queue calls can take the strip.
func (q *Queue) release() {
	q.mu.Lock()
	if q.waiters < 0 {
		log.Warnf("Strip queue has %d waiters", q.waiters)
	}
	log.Trace("Released strip. Currently waiting: ", q.waiters)
	q.mu.Unlock()

	q.owner.Unlock()
}
