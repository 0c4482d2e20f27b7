package async

import (
	"context"
	"sync"
	"sync/atomic"
)

// Waker is one queued resumable operation's handle on a WakerQueue.
type Waker struct {
	ch        chan struct{}
	cancelled atomic.Bool
}

// Wait blocks until this waker is woken or ctx is done. A ctx-driven
// return does not remove the waker from its queue — callers must still
// call WakerQueue.Cancel, matching spec.md §4.8's "dropping the resumable
// operation while queued removes it from the waker queue."
func (w *Waker) Wait(ctx context.Context) error {
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WakerQueue is a per-cell FIFO queue of waiters (spec.md §4.8: "each
// cell has a FIFO queue of waker handles... waker order is the order of
// arrival").
type WakerQueue struct {
	mu sync.Mutex
	q  []*Waker
}

// Enqueue appends a new waker to the tail of the queue.
func (q *WakerQueue) Enqueue() *Waker {
	w := &Waker{ch: make(chan struct{})}
	q.mu.Lock()
	q.q = append(q.q, w)
	q.mu.Unlock()
	return w
}

// WakeHead signals the oldest non-cancelled waiter and removes it (and
// any cancelled wakers ahead of it) from the queue. A releasing
// writer/reader calls this after releasing its own hold, per spec.md
// §4.8 ("a releasing writer/reader wakes the head").
func (q *WakerQueue) WakeHead() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.q) > 0 {
		w := q.q[0]
		q.q = q.q[1:]
		if w.cancelled.Load() {
			continue
		}
		close(w.ch)
		return
	}
}

// Cancel removes w from the queue (spec.md §4.8 cancellation). Safe to
// call whether or not w has already been woken or already removed.
func (q *WakerQueue) Cancel(w *Waker) {
	w.cancelled.Store(true)
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, cur := range q.q {
		if cur == w {
			q.q = append(q.q[:i], q.q[i+1:]...)
			return
		}
	}
}

// Len reports the current queue depth (for MetricsCollector.
// ObserveWaiterQueueDepth wiring).
func (q *WakerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.q)
}

// DrainAndCancel wakes every queued waiter with an error return (each
// Wait call sees its waker closed, but marked cancelled so the caller's
// retry loop does not attempt to acquire the now-closing cell) and empties
// the queue. Used by Map.Close to release outstanding resumable
// operations instead of leaving them parked forever.
func (q *WakerQueue) DrainAndCancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, w := range q.q {
		w.cancelled.Store(true)
		close(w.ch)
	}
	q.q = nil
}
