package tree

import (
	"sync"

	"github.com/qthree/scalable-concurrent-containers/internal/atomics"
)

// leafNode holds sorted key/value entries and a right link to its
// successor leaf. mu guards entries: mutations (insert/remove/split) and
// also point lookups and range scans take it while reading entries; a
// range scan moves to the next leaf under a barrier via internal/llist.
type leafNode[K comparable, V any] struct {
	mu      sync.Mutex
	entries []kv[K, V]
	next    atomics.AtomicRef[leafNode[K, V]]
}

func (l *leafNode[K, V]) isLeaf() bool { return true }

// Link satisfies internal/llist.Linked[leafNode[K,V]], making the leaf
// level a C3 wait-free chain.
func (l *leafNode[K, V]) Link() *atomics.AtomicRef[leafNode[K, V]] { return &l.next }

// find returns the lower-bound index of key among l.entries (the
// position key occupies or would be inserted at), and whether it is an
// exact match.
func (l *leafNode[K, V]) find(key K, less func(a, b K) bool) (int, bool) {
	i := search(len(l.entries), func(i int) bool { return !less(l.entries[i].key, key) })
	if i < len(l.entries) && !less(key, l.entries[i].key) && !less(l.entries[i].key, key) {
		return i, true
	}
	return i, false
}
