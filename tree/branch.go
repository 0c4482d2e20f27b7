package tree

import (
	"sync"

	"github.com/qthree/scalable-concurrent-containers/internal/atomics"
	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
)

// branchData is the immutable (separator keys, children) snapshot a
// branchNode publishes. len(children) == len(keys)+1; children[i] holds
// every key < keys[i] (and >= keys[i-1]), children[len(keys)] holds every
// key >= keys[len(keys)-1].
type branchData[K comparable, V any] struct {
	keys     []K
	children []node[K, V]
}

type branchNode[K comparable, V any] struct {
	mu   sync.Mutex
	data atomics.AtomicRef[branchData[K, V]]
}

func (b *branchNode[K, V]) isLeaf() bool { return false }

func newBranch[K comparable, V any](keys []K, children []node[K, V], domain *ebr.Domain) *branchNode[K, V] {
	b := &branchNode[K, V]{}
	b.data.Store(atomics.NewOwned(branchData[K, V]{keys: keys, children: children}, nil), 0, domain)
	return b
}

// childIndex returns which child covers key under the ordering less:
// the smallest i such that key < keys[i] (children[len(keys)] if key is
// >= every separator).
func childIndex[K comparable, V any](d *branchData[K, V], key K, less func(a, b K) bool) int {
	return search(len(d.keys), func(i int) bool { return less(key, d.keys[i]) })
}

// publish installs a new (keys, children) snapshot in place of the
// current one. Caller must hold b.mu. The previous
// snapshot is retired automatically by AtomicRef.Store.
func (b *branchNode[K, V]) publish(keys []K, children []node[K, V], domain *ebr.Domain) {
	b.data.Store(atomics.NewOwned(branchData[K, V]{keys: keys, children: children}, nil), 0, domain)
}
