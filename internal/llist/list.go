// Package llist implements the wait-free singly linked list primitive of
// spec.md §4.3 (C3): a capability trait over node types exposing a single
// AtomicRef<Self> "next" link, plus the free functions (PushBack, NextPtr,
// DeleteSelf, Mark/IsMarked) that operate on it.
//
// Grounded on Couchbase nitro's CAS-retry forward-pointer traversal
// (bmwtsn098-nitro/skiplist/skiplist.go) and spec.md §9's "dynamic
// dispatch via trait" design note, which asks for exactly this shape: "an
// interface abstraction (capability type) exposing a single accessor
// returning the atomic link reference; structural operations are free
// functions parameterized by that capability."
package llist

import (
	"github.com/qthree/scalable-concurrent-containers/internal/atomics"
	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
)

// Reserved tag values on a node's next-link (spec.md §4.3/§9).
const (
	// TombstoneTag is the reserved tag value signalling the node it is
	// set on has been logically deleted. Traversers unlink it on sight.
	TombstoneTag uint8 = 2

	// MarkBit is a user-defined marker bit, distinct from the tombstone
	// tag, usable by callers to encode application state (spec.md §4.3
	// Mark/IsMarked).
	MarkBit uint8 = 1
)

// Linked is the capability every node type must provide: a single
// AtomicRef<N> "next" link. The two-parameter shape (N, P) is Go's
// standard way to express "P is a pointer receiver over N exposing this
// method set" for self-referential generic structures.
type Linked[N any] interface {
	*N
	Link() *atomics.AtomicRef[N]
}

// ErrDeleted is returned by PushBack when the target node has already been
// marked deleted (spec.md §4.3 push_back "returns an error if the current
// node is logically deleted").
var ErrDeleted = listError("node is logically deleted")

// ErrHasSuccessor is returned by PushBack when the target node's link is
// already occupied by a different node — the concurrent tie-break analogue
// of the cell array's "duplicate key" signal (spec.md §4.4 Tie-breaks).
var ErrHasSuccessor = listError("node already has a successor")

type listError string

func (e listError) Error() string { return string(e) }

// PushBack appends newNode after `after`, installing it with a null next
// field, via a CAS loop that retries on contention (spec.md §4.3).
func PushBack[N any, P Linked[N]](after P, newNode atomics.OwnedRef[N], guard *ebr.Guard) error {
	link := after.Link()
	for {
		cur := link.Load(guard)
		if cur.Tag()&TombstoneTag != 0 {
			return ErrDeleted
		}
		if !cur.IsNull() {
			return ErrHasSuccessor
		}
		if _, _, ok := link.CompareExchange(cur, newNode, cur.Tag()); ok {
			return nil
		}
		// CAS lost the race; reread and retry.
	}
}

// NextPtr returns the first non-deleted successor of node, skipping and
// opportunistically unlinking tombstoned nodes along the way (spec.md
// §4.3). domain is needed to retire nodes unlinked in the process.
func NextPtr[N any, P Linked[N]](node P, domain *ebr.Domain, guard *ebr.Guard) atomics.LocalPtr[N] {
	link := node.Link()
	for {
		cur := link.Load(guard)
		if cur.IsNull() {
			return cur
		}
		succ := P(cur.Deref())
		succLink := succ.Link()
		succNext := succLink.Load(guard)
		if succNext.Tag()&TombstoneTag == 0 {
			return cur
		}

		// cur is tombstoned: physically unlink it by installing its own
		// successor directly into node's link, retiring cur exactly once
		// (CAS-guarded, per spec.md §4.3 invariant).
		replacement := atomics.CloneOwned(succNext)
		prior, _, ok := link.CompareExchange(cur, replacement, succNext.Tag()&^TombstoneTag)
		if !ok {
			replacement.Release(domain)
			continue
		}
		prior.Release(domain)
		// loop again: node's link may now point at another tombstoned node
	}
}

// DeleteSelf marks node's own next-link tombstoned, signalling deletion to
// subsequent traversers, who will physically unlink and retire it
// (spec.md §4.3). It preserves the current successor and mark bit. domain
// is needed to undo the speculative refcount bump on a lost CAS race.
func DeleteSelf[N any, P Linked[N]](node P, domain *ebr.Domain, guard *ebr.Guard) {
	link := node.Link()
	for {
		cur := link.Load(guard)
		if cur.Tag()&TombstoneTag != 0 {
			return // already deleted
		}
		newTag := cur.Tag() | TombstoneTag
		owner := atomics.CloneOwned(cur)
		if _, _, ok := link.CompareExchange(cur, owner, newTag); ok {
			return
		}
		// Lost the race (e.g. concurrent Mark); the clone above bumped
		// the successor's refcount speculatively, so it must be undone.
		owner.Release(domain)
	}
}

// Mark sets the user-defined marker bit, independent of the tombstone tag.
// domain is needed to undo the speculative refcount bump on a lost CAS race.
func Mark[N any, P Linked[N]](node P, domain *ebr.Domain, guard *ebr.Guard) {
	link := node.Link()
	for {
		cur := link.Load(guard)
		newTag := cur.Tag() | MarkBit
		if newTag == cur.Tag() {
			return
		}
		owner := atomics.CloneOwned(cur)
		if _, _, ok := link.CompareExchange(cur, owner, newTag); ok {
			return
		}
		owner.Release(domain)
	}
}

// IsMarked reports the user-defined marker bit's current state.
func IsMarked[N any, P Linked[N]](node P, guard *ebr.Guard) bool {
	return node.Link().Load(guard).Tag()&MarkBit != 0
}
