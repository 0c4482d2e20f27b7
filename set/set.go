// Package set provides Set[K]: a scalable concurrent set, implemented as
// a thin wrapper over scc.Map[K, struct{}] (spec.md §4.5's key-value map
// with values erased). Grounded on the teacher's GenericCache[K, V]
// wrapper idiom (cache_generic.go), here wrapping the sibling Map type
// instead of re-deriving the segmented cell array.
package set

import scc "github.com/qthree/scalable-concurrent-containers"

// Set is a scalable, concurrent collection of unique keys.
type Set[K comparable] struct {
	m *scc.Map[K, struct{}]
}

// New constructs an empty Set.
func New[K comparable](cfg scc.Config) *Set[K] {
	return &Set[K]{m: scc.NewMap[K, struct{}](cfg)}
}

// Insert adds key to the set. It returns false if key was already present
// (mirroring spec.md §4.4 "Tie-breaks": the loser is told it lost, rather
// than surfacing an error — callers that care about the distinction can
// check scc.IsDuplicateKey against Map directly).
func (s *Set[K]) Insert(key K) bool {
	return s.m.Insert(key, struct{}{}) == nil
}

// Contains reports whether key is a member.
func (s *Set[K]) Contains(key K) bool {
	return s.m.Read(key, func(struct{}) {})
}

// Remove deletes key, reporting whether it was present.
func (s *Set[K]) Remove(key K) bool {
	_, ok := s.m.Remove(key)
	return ok
}

// ForEach visits every member; fn returning false stops iteration early.
func (s *Set[K]) ForEach(fn func(K) bool) {
	s.m.ForEach(func(k K, _ struct{}) bool { return fn(k) })
}

// Retain keeps only members for which pred returns true.
func (s *Set[K]) Retain(pred func(K) bool) {
	s.m.Retain(func(k K, _ struct{}) bool { return pred(k) })
}

// Len returns an approximate member count.
func (s *Set[K]) Len() int { return s.m.Len() }

// Clear removes every member.
func (s *Set[K]) Clear() { s.m.Clear() }

// Stats reports point-in-time occupancy.
func (s *Set[K]) Stats() scc.Stats { return s.m.Stats() }
