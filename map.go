// map.go: the key-value map container (spec.md §4.5, C5).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package scc

import (
	"hash/maphash"

	"github.com/qthree/scalable-concurrent-containers/internal/cellarray"
)

// Map is a thin projection of the segmented cell array (spec.md §4.5): a
// scalable, concurrent key-value container with no stable external
// iterator, by design (a long-lived iterator cannot be supported without
// a global lock — ForEach/Retain are the substitute).
//
// Grounded on the teacher's public Cache surface (Get/Set/Delete/Has/Len/
// Capacity/Clear/Stats in cache.go) and the generic-wrapper idiom in
// cache_generic.go, adapted to carry the real typed key/value pair
// natively instead of boxing through interface{} and a string key cast.
type Map[K comparable, V any] struct {
	table *cellarray.Table[K, V]
	cfg   Config
}

// NewMap constructs a Map with the given configuration. cfg is validated
// (defaults applied) before use.
func NewMap[K comparable, V any](cfg Config) *Map[K, V] {
	_ = cfg.Validate()
	seed := maphash.MakeSeed()
	hash := func(k K) uint64 { return maphash.Comparable(seed, k) }
	eq := func(a, b K) bool { return a == b }
	// InitialCapacity counts entries; each cell holds InlineBucketSize of them.
	cells := (cfg.InitialCapacity + cellarray.InlineBucketSize - 1) / cellarray.InlineBucketSize
	table := cellarray.New[K, V](cells, hash, eq, cfg.Domain, cfg.tunables())
	table.WithMetrics("map", cfg.MetricsCollector)
	return &Map[K, V]{table: table, cfg: cfg}
}

// Insert installs key/value if absent. It returns NewErrDuplicateKey(key)
// if the key is already present (spec.md §4.4 "Tie-breaks").
func (m *Map[K, V]) Insert(key K, value V) error {
	if err := m.table.Insert(key, value); err != nil {
		return NewErrDuplicateKey(key)
	}
	return nil
}

// Read applies project to the value stored at key while holding the
// owning cell's shared lock (spec.md §4.5 "read(projection)"). It reports
// whether the key was found.
func (m *Map[K, V]) Read(key K, project func(V)) bool {
	return m.table.Read(key, project)
}

// Get is a convenience wrapper over Read returning the value by copy.
func (m *Map[K, V]) Get(key K) (V, bool) {
	var out V
	found := m.table.Read(key, func(v V) { out = v })
	return out, found
}

// Update applies mutate to the value stored at key while holding the
// owning cell's exclusive lock (spec.md §4.5 "update(projection)"). It
// reports whether the key was found.
func (m *Map[K, V]) Update(key K, mutate func(*V)) bool {
	return m.table.Update(key, mutate)
}

// Upsert try-inserts make(); on an existing key, it instead calls
// modifyExisting under the cell's exclusive lock (spec.md §4.5
// "upsert(make_value, modify_existing)").
func (m *Map[K, V]) Upsert(key K, create func() V, modifyExisting func(*V)) {
	// A failed Insert means the key exists, so the exclusive-lock modify
	// path runs instead. If the key is removed between the failed Insert
	// and the Update, both steps are tried again until one of them applies.
	for {
		if err := m.table.Insert(key, create()); err == nil {
			return
		}
		if m.table.Update(key, modifyExisting) {
			return
		}
	}
}

// Remove deletes key, returning its value and whether it was present
// (spec.md §4.5 "remove").
func (m *Map[K, V]) Remove(key K) (V, bool) {
	return m.table.Remove(key)
}

// ForEach visits every live entry; fn returning false stops iteration
// early. The walk holds one barrier throughout and takes each cell's
// shared lock in turn — no whole-map consistent snapshot is implied
// (spec.md §4.5).
func (m *Map[K, V]) ForEach(fn func(K, V) bool) {
	m.table.ForEach(fn)
}

// Retain removes every entry for which pred returns false, visiting cells
// in turn under their own locks (spec.md §4.5 "retain(pred)").
func (m *Map[K, V]) Retain(pred func(K, V) bool) {
	var doomed []K
	m.table.ForEach(func(k K, v V) bool {
		if !pred(k, v) {
			doomed = append(doomed, k)
		}
		return true
	})
	for _, k := range doomed {
		m.table.Remove(k)
	}
}

// Len returns an approximate live entry count.
func (m *Map[K, V]) Len() int { return m.table.Len() }

// Capacity returns the live generation's total inline capacity.
func (m *Map[K, V]) Capacity() int { return m.table.Capacity() }

// Clear removes every entry by retaining nothing.
func (m *Map[K, V]) Clear() {
	m.Retain(func(K, V) bool { return false })
}

// Stats reports point-in-time occupancy (spec.md §13 supplemented
// feature).
func (m *Map[K, V]) Stats() Stats {
	s := m.table.Stats()
	return Stats{
		Len:        s.Len,
		Capacity:   s.Capacity,
		Cells:      s.Cells,
		LoadFactor: s.LoadFactor,
		Resizing:   s.ResizingNow,
	}
}
