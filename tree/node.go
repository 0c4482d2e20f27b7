// Package tree implements the concurrent B+ tree index (spec.md §4.7, C7).
//
// Fan-out defaults to 8 (scc.DefaultFanout). Leaves form a right-linked
// chain via internal/llist (C3) — the same tombstone-aware CAS-based
// singly linked list used elsewhere in this module — so a range scan can
// walk leaves without ever touching a branch node. Branch nodes publish
// their (separator keys, children) as a single immutable snapshot through
// internal/atomics.AtomicRef (C2), the same copy-on-write-bucket trick
// index.ReadIndex uses: a reader that loads a branch's data once has a
// self-consistent view of keys and children together, because both came
// out of the same atomic load. spec.md asks for this consistency to be
// enforced with a per-node version counter and retry-from-safe-ancestor
// on a detected split; copy-on-write publication gives the same guarantee
// without ever needing to detect or retry anything, since an already-
// loaded snapshot can never be torn by a concurrent split — see
// DESIGN.md for this adaptation.
//
// Grounded on Fantom-foundation-Carmen's backend/btree (node/leaf split
// conventions, separator-key layout) and bmwtsn098-nitro's skiplist.go
// (right-linked, tombstone-aware chain, reused here via internal/llist
// rather than re-derived).
package tree

// node is the capability shared by branch and leaf nodes: a descent only
// needs to know which kind it has reached.
type node[K comparable, V any] interface {
	isLeaf() bool
}

type kv[K comparable, V any] struct {
	key K
	val V
}

// search is sort.Search: f must be false for a prefix of [0,n) and true
// for the remainder; search returns the smallest index where f is true
// (n if f is false throughout).
func search(n int, f func(i int) bool) int {
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if !f(mid) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func insertKV[K comparable, V any](entries []kv[K, V], at int, e kv[K, V]) []kv[K, V] {
	entries = append(entries, kv[K, V]{})
	copy(entries[at+1:], entries[at:])
	entries[at] = e
	return entries
}

func removeAt[K comparable, V any](entries []kv[K, V], at int) []kv[K, V] {
	copy(entries[at:], entries[at+1:])
	return entries[:len(entries)-1]
}
