package async

import (
	"context"
	"hash/maphash"
)

// Result is the outcome of a lookup-shaped resumable operation.
type Result[V any] struct {
	Value V
	Found bool
}

// Map is a segmented table whose Insert/Read/Remove are exposed as
// suspendable resumable operations (spec.md §4.8, C8) rather than
// synchronous calls: a contended cell suspends the caller on that cell's
// waker queue instead of blocking it outright.
type Map[K comparable, V any] struct {
	cells []*cell[K, V]
	mask  uint64
	seed  maphash.Seed
}

// New constructs a Map with numCells cells (rounded up to a power of
// two).
func New[K comparable, V any](numCells int) *Map[K, V] {
	if numCells < 1 {
		numCells = 1
	}
	size := 1
	for size < numCells {
		size <<= 1
	}
	cells := make([]*cell[K, V], size)
	for i := range cells {
		cells[i] = newCell[K, V]()
	}
	return &Map[K, V]{cells: cells, mask: uint64(size - 1), seed: maphash.MakeSeed()}
}

func (m *Map[K, V]) cellFor(key K) *cell[K, V] {
	h := maphash.Comparable(m.seed, key)
	return m.cells[h&m.mask]
}

// InsertAsync returns a Future resolving once key/value is installed. It
// resolves with ErrDuplicateKey, leaving the existing value untouched, if
// key is already present — the same tie-break the synchronous
// Table.Insert/Map.Insert apply, asserted concurrently by spec.md §8
// ("schedule N awaitable inserts of the same key; exactly one resolves
// successfully, the rest resolve with duplicate").
func (m *Map[K, V]) InsertAsync(ctx context.Context, key K, value V) *Future[struct{}] {
	c := m.cellFor(key)
	f := NewFuture[struct{}]()
	go func() {
		if err := c.lockOrWait(ctx); err != nil {
			f.complete(struct{}{}, err)
			return
		}
		if _, exists := c.entries[key]; exists {
			c.unlockAndWake()
			f.complete(struct{}{}, ErrDuplicateKey)
			return
		}
		c.entries[key] = value
		c.unlockAndWake()
		f.complete(struct{}{}, nil)
	}()
	return f
}

// ReadAsync returns a Future resolving to key's value, if present.
func (m *Map[K, V]) ReadAsync(ctx context.Context, key K) *Future[Result[V]] {
	c := m.cellFor(key)
	f := NewFuture[Result[V]]()
	go func() {
		if err := c.rlockOrWait(ctx); err != nil {
			f.complete(Result[V]{}, err)
			return
		}
		v, ok := c.entries[key]
		c.runlockAndWake()
		f.complete(Result[V]{Value: v, Found: ok}, nil)
	}()
	return f
}

// RemoveAsync returns a Future resolving to the removed value, if
// present.
func (m *Map[K, V]) RemoveAsync(ctx context.Context, key K) *Future[Result[V]] {
	c := m.cellFor(key)
	f := NewFuture[Result[V]]()
	go func() {
		if err := c.lockOrWait(ctx); err != nil {
			f.complete(Result[V]{}, err)
			return
		}
		v, ok := c.entries[key]
		if ok {
			delete(c.entries, key)
		}
		c.unlockAndWake()
		f.complete(Result[V]{Value: v, Found: ok}, nil)
	}()
	return f
}

// QueueDepth reports the waker queue depth for key's cell, for
// MetricsCollector.ObserveWaiterQueueDepth wiring.
func (m *Map[K, V]) QueueDepth(key K) int {
	return m.cellFor(key).queue.Len()
}

// Close drains every cell's waker queue, releasing any operation still
// suspended waiting for a contended cell with ErrMapClosed instead of
// leaving it parked forever. It does not wait for in-flight (already
// lock-holding) operations to finish; callers that need that guarantee
// should stop issuing new operations and await their Futures first.
func (m *Map[K, V]) Close() {
	for _, c := range m.cells {
		c.queue.DrainAndCancel()
	}
}
