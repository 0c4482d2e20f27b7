package cellarray

import "sync/atomic"

// generation is one version of the live array: a fixed set of cells plus
// the in-progress-migration bookkeeping spec.md §3 calls "Resize state"
// (`{old array, new array, next-cell-to-migrate counter}`). `next`, once
// CAS-installed, names the array entries are being migrated into; readers
// that observe a cell's killed flag redirect to it.
type generation[K comparable, V any] struct {
	cells []*cell[K, V]
	mask  uint64

	next        atomic.Pointer[generation[K, V]]
	migrateNext atomic.Uint64 // fetch-add: next old cell index a helper should claim
	migrated    atomic.Uint64 // count of old cells fully migrated and killed
}

func newGeneration[K comparable, V any](size int) *generation[K, V] {
	if size < 1 {
		size = 1
	}
	size = nextPowerOfTwo(size)
	cells := make([]*cell[K, V], size)
	for i := range cells {
		cells[i] = &cell[K, V]{}
	}
	return &generation[K, V]{cells: cells, mask: uint64(size - 1)}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (g *generation[K, V]) cellFor(hash uint64) *cell[K, V] {
	return g.cells[hash&g.mask]
}

func fingerprint(hash uint64) byte {
	return byte(hash >> 56)
}

// loadFactor reports occupied/capacity across the whole generation. Called
// outside any cell lock, so it is a racy estimate by design — spec.md §4.4
// only needs it to decide whether to *request* a resize, an idempotent,
// retriable action.
func (g *generation[K, V]) loadFactor() float64 {
	occupied := 0
	for _, c := range g.cells {
		c.mu.RLock()
		occupied += c.count
		c.mu.RUnlock()
	}
	return float64(occupied) / float64(len(g.cells)*InlineBucketSize)
}

func (g *generation[K, V]) size() int { return len(g.cells) }
