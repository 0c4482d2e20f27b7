package tree

import (
	"sync/atomic"

	scc "github.com/qthree/scalable-concurrent-containers"
	"github.com/qthree/scalable-concurrent-containers/internal/atomics"
	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
	"github.com/qthree/scalable-concurrent-containers/internal/llist"
)

// rootHolder lets the root, whose identity changes across a root split,
// be swapped with a single atomic.Pointer store.
type rootHolder[K comparable, V any] struct {
	n node[K, V]
}

// TreeIndex is a concurrent B+ tree (spec.md §4.7, C7).
type TreeIndex[K comparable, V any] struct {
	less   func(a, b K) bool
	fanout int
	domain *ebr.Domain
	root   atomic.Pointer[rootHolder[K, V]]
}

// New constructs an empty TreeIndex ordered by less, with the default
// fan-out (scc.DefaultFanout).
func New[K comparable, V any](less func(a, b K) bool, domain *ebr.Domain) *TreeIndex[K, V] {
	return NewWithFanout[K, V](less, domain, scc.DefaultFanout)
}

// NewWithFanout is New with an explicit fan-out, mainly for tests that
// want to exercise splits without inserting thousands of entries.
func NewWithFanout[K comparable, V any](less func(a, b K) bool, domain *ebr.Domain, fanout int) *TreeIndex[K, V] {
	if fanout < 3 {
		fanout = 3
	}
	t := &TreeIndex[K, V]{less: less, fanout: fanout, domain: domain}
	t.root.Store(&rootHolder[K, V]{n: &leafNode[K, V]{}})
	return t
}

type ancestorFrame[K comparable, V any] struct {
	b   *branchNode[K, V]
	idx int
}

// descend walks from the root to the leaf that would hold key, recording
// the branch nodes passed through. Branch reads are lock-free: each
// branchNode publishes an immutable snapshot (see node.go's package doc),
// so descent never takes a latch — only the eventual leaf mutation does.
func (t *TreeIndex[K, V]) descend(g *ebr.Guard, key K) (*leafNode[K, V], []ancestorFrame[K, V]) {
	var ancestors []ancestorFrame[K, V]
	n := t.root.Load().n
	for {
		b, ok := n.(*branchNode[K, V])
		if !ok {
			return n.(*leafNode[K, V]), ancestors
		}
		d := b.data.Load(g).Deref()
		idx := childIndex(d, key, t.less)
		ancestors = append(ancestors, ancestorFrame[K, V]{b: b, idx: idx})
		n = d.children[idx]
	}
}

// Get performs a barrier-scoped lookup.
func (t *TreeIndex[K, V]) Get(key K) (V, bool) {
	g := t.domain.EnterBarrier()
	defer g.Release()

	leaf, _ := t.descend(g, key)
	leaf.mu.Lock()
	defer leaf.mu.Unlock()
	if i, ok := leaf.find(key, t.less); ok {
		return leaf.entries[i].val, true
	}
	var zero V
	return zero, false
}

// Insert adds key/value, or overwrites the existing value for key.
// Returns true if key was newly inserted.
func (t *TreeIndex[K, V]) Insert(key K, value V) bool {
	g := t.domain.EnterBarrier()
	defer g.Release()

	leaf, ancestors := t.descend(g, key)
	leaf.mu.Lock()
	defer leaf.mu.Unlock()

	i, found := leaf.find(key, t.less)
	if found {
		leaf.entries[i].val = value
		return false
	}
	leaf.entries = insertKV(leaf.entries, i, kv[K, V]{key: key, val: value})
	if len(leaf.entries) <= t.fanout {
		return true
	}
	t.splitLeaf(leaf, ancestors, g)
	return true
}

// splitLeaf splits an overflowing leaf and propagates the new separator
// upward. Caller holds leaf.mu.
func (t *TreeIndex[K, V]) splitLeaf(leaf *leafNode[K, V], ancestors []ancestorFrame[K, V], g *ebr.Guard) {
	mid := len(leaf.entries) / 2
	upper := append([]kv[K, V]{}, leaf.entries[mid:]...)
	leaf.entries = leaf.entries[:mid:mid]

	siblingOwned := atomics.NewOwned(leafNode[K, V]{entries: upper}, nil)
	sibling := siblingOwned.Value()
	sepKey := sibling.entries[0].key

	// Splice the sibling in between leaf and its current successor. Only
	// this goroutine splits leaf (under leaf.mu), but a concurrent scan may
	// unlink a tombstoned successor from leaf's link, so retry on a lost CAS.
	for {
		succ := leaf.next.Load(g)
		sibling.next.Store(atomics.CloneOwned(succ), 0, t.domain)
		if prior, _, ok := leaf.next.CompareExchange(succ, siblingOwned, succ.Tag()); ok {
			prior.Release(t.domain)
			break
		}
	}

	t.propagateSplit(ancestors, len(ancestors)-1, sepKey, sibling, g)
}

// propagateSplit installs (sepKey, newChild) as a new separator/child pair
// immediately after ancestors[level], splitting that branch in turn if it
// now overflows. level == -1 means the node that just split was the root.
//
// At most two latches are ever held at once: the node that triggered this
// call (leaf or a lower branch, locked by the caller) and, transiently,
// ancestors[level]'s own latch — which is released before any further
// propagation, so adjacent levels are never both locked at the same time
// as a third.
func (t *TreeIndex[K, V]) propagateSplit(ancestors []ancestorFrame[K, V], level int, sepKey K, newChild node[K, V], g *ebr.Guard) {
	if level < 0 {
		oldRoot := t.root.Load().n
		newRoot := newBranch[K, V]([]K{sepKey}, []node[K, V]{oldRoot, newChild}, t.domain)
		t.root.Store(&rootHolder[K, V]{n: newRoot})
		t.domain.RetireNow(func() {})
		return
	}

	anc := ancestors[level]
	anc.b.mu.Lock()
	d := anc.b.data.Load(g).Deref()

	newKeys := make([]K, len(d.keys)+1)
	copy(newKeys[:anc.idx], d.keys[:anc.idx])
	newKeys[anc.idx] = sepKey
	copy(newKeys[anc.idx+1:], d.keys[anc.idx:])

	newChildren := make([]node[K, V], len(d.children)+1)
	copy(newChildren[:anc.idx+1], d.children[:anc.idx+1])
	newChildren[anc.idx+1] = newChild
	copy(newChildren[anc.idx+2:], d.children[anc.idx+1:])

	anc.b.publish(newKeys, newChildren, t.domain)

	if len(newChildren) <= t.fanout+1 {
		anc.b.mu.Unlock()
		return
	}

	mid := len(newKeys) / 2
	upKey := newKeys[mid]
	sibling := newBranch[K, V](
		append([]K{}, newKeys[mid+1:]...),
		append([]node[K, V]{}, newChildren[mid+1:]...),
		t.domain,
	)
	anc.b.publish(append([]K{}, newKeys[:mid]...), append([]node[K, V]{}, newChildren[:mid+1]...), t.domain)
	anc.b.mu.Unlock()

	t.propagateSplit(ancestors, level-1, upKey, sibling, g)
}

// Remove deletes key, returning its value and whether it was present.
// If the leaf becomes empty it is unlinked from the leaf chain and its
// entry is removed from its parent; emptied branches are removed from
// their own parent in turn. This module does not rebalance by borrowing
// from siblings — an underflowing node is only ever merged away when it
// becomes completely empty, which keeps removal simple at the cost of
// not guaranteeing a minimum fill factor after heavy deletion.
func (t *TreeIndex[K, V]) Remove(key K) (V, bool) {
	g := t.domain.EnterBarrier()
	defer g.Release()

	leaf, ancestors := t.descend(g, key)
	leaf.mu.Lock()
	i, found := leaf.find(key, t.less)
	if !found {
		leaf.mu.Unlock()
		var zero V
		return zero, false
	}
	removed := leaf.entries[i].val
	leaf.entries = removeAt(leaf.entries, i)

	if len(leaf.entries) > 0 || len(ancestors) == 0 {
		leaf.mu.Unlock()
		return removed, true
	}

	llist.DeleteSelf[leafNode[K, V]](leaf, t.domain, g)
	leaf.mu.Unlock()
	t.propagateRemoval(ancestors, len(ancestors)-1, g)
	return removed, true
}

// propagateRemoval removes the child at ancestors[level].idx from that
// branch; if the branch becomes childless in turn, it is removed from its
// own parent the same way.
func (t *TreeIndex[K, V]) propagateRemoval(ancestors []ancestorFrame[K, V], level int, g *ebr.Guard) {
	if level < 0 {
		return
	}
	anc := ancestors[level]
	anc.b.mu.Lock()
	d := anc.b.data.Load(g).Deref()

	newChildren := make([]node[K, V], 0, len(d.children)-1)
	newChildren = append(newChildren, d.children[:anc.idx]...)
	newChildren = append(newChildren, d.children[anc.idx+1:]...)

	var newKeys []K
	switch {
	case anc.idx < len(d.keys):
		newKeys = make([]K, 0, len(d.keys)-1)
		newKeys = append(newKeys, d.keys[:anc.idx]...)
		newKeys = append(newKeys, d.keys[anc.idx+1:]...)
	default:
		newKeys = append([]K{}, d.keys[:len(d.keys)-1]...)
	}

	if len(newChildren) == 0 {
		anc.b.mu.Unlock()
		if level == 0 {
			t.root.Store(&rootHolder[K, V]{n: &leafNode[K, V]{}})
			t.domain.RetireNow(func() {})
			return
		}
		t.propagateRemoval(ancestors, level-1, g)
		return
	}

	anc.b.publish(newKeys, newChildren, t.domain)
	anc.b.mu.Unlock()
}

// Scan walks entries in ascending order starting from the leftmost leaf
// covering from (inclusive), calling fn until it returns false or entries
// are exhausted. The scan is barrier-scoped: entries present when Scan
// begins and not removed are guaranteed to be observed; concurrently
// inserted entries may or may not be (spec.md §4.7).
func (t *TreeIndex[K, V]) Scan(from K, fn func(key K, val V) bool) {
	g := t.domain.EnterBarrier()
	defer g.Release()

	leaf, _ := t.descend(g, from)
	for leaf != nil {
		leaf.mu.Lock()
		entries := append([]kv[K, V]{}, leaf.entries...)
		leaf.mu.Unlock()

		for _, e := range entries {
			if t.less(e.key, from) {
				continue
			}
			if !fn(e.key, e.val) {
				return
			}
		}
		leaf = llist.NextPtr[leafNode[K, V]](leaf, t.domain, g).Deref()
	}
}
