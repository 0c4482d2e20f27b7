// Package atomics implements the tagged, ownership-aware atomic pointer
// primitives (spec.md §4.2, C2): AtomicRef, OwnedRef and LocalPtr.
//
// spec.md describes tag bits packed into the low bits of the pointer word
// itself, the classic lock-free trick of stealing alignment bits. Go's
// garbage collector does not tolerate a live heap pointer being stored only
// as a tagged integer between atomic operations (there is no safe way to
// recover a pointer from an arbitrary uintptr once the GC no longer sees it
// as a root), so this port swaps the *combination* of owner-pointer and tag
// atomically instead: every Store/CompareExchange allocates a small
// immutable `tagged[T]` wrapper and atomically swaps the *pointer to that
// wrapper*. The two bits of tag and the owner pointer therefore still
// change together in a single atomic operation — the CAS either replaces
// both or neither — which is the guarantee spec.md §4.2 actually cares
// about; only the zero-allocation bit-packing implementation detail
// differs. Grounded on the same unsafe/atomic CAS-loop style as the
// teacher's entry.storeKey/loadKey SeqLock (agilira/balios cache.go).
package atomics

import (
	"sync/atomic"

	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
)

// TagMask covers the 2 user-defined tag bits spec.md §3 allows on an
// AtomicRef (one of which, by convention in internal/llist, is reserved as
// the tombstone tag — see llist.TombstoneTag).
const TagMask = uint8(0x3)

// box is the refcounted heap allocation an OwnedRef/AtomicRef ultimately
// points at.
type box[T any] struct {
	refs      int64 // atomic; reaches 0 exactly once, at which point it is retired
	value     T
	onDestroy func(*T)
}

func releaseBox[T any](b *box[T], domain *ebr.Domain) {
	if b == nil {
		return
	}
	if atomic.AddInt64(&b.refs, -1) == 0 {
		domain.RetireNow(func() {
			if b.onDestroy != nil {
				b.onDestroy(&b.value)
			}
		})
	}
}

// OwnedRef is a reference-counted, shared owning handle to a heap-resident
// T (spec.md §3 "OwnedRef<T>"). The zero value is the null handle.
type OwnedRef[T any] struct {
	b *box[T]
}

// NewOwned allocates a new owned object with refcount 1. onDestroy, if
// non-nil, runs once the last holder releases it — after the object has
// been safely retired, never synchronously.
func NewOwned[T any](value T, onDestroy func(*T)) OwnedRef[T] {
	return OwnedRef[T]{b: &box[T]{refs: 1, value: value, onDestroy: onDestroy}}
}

// Valid reports whether this handle refers to an object (false for the
// zero value / a handle that has already been consumed by Store/CAS).
func (o OwnedRef[T]) Valid() bool { return o.b != nil }

// Value returns a pointer to the held object. Valid for as long as this
// handle (or any clone of it) has not been Released.
func (o OwnedRef[T]) Value() *T {
	if o.b == nil {
		return nil
	}
	return &o.b.value
}

// Clone increments the refcount and returns a second owning handle to the
// same object.
func (o OwnedRef[T]) Clone() OwnedRef[T] {
	if o.b != nil {
		atomic.AddInt64(&o.b.refs, 1)
	}
	return o
}

// Release decrements the refcount. The last holder's release retires the
// object to domain rather than destroying it synchronously, per spec.md
// §3 invariant "transition to 0 atomically also enqueues retirement".
func (o OwnedRef[T]) Release(domain *ebr.Domain) {
	releaseBox(o.b, domain)
}

// LocalPtr is a non-owning, barrier-scoped view of an AtomicRef's
// contents (spec.md §3 "LocalPtr<T>"). It must not be stored past the
// Guard that produced it.
type LocalPtr[T any] struct {
	value *T
	tag   uint8
	owner *box[T] // retained so Compare-based callers can identify "same instance", never dereferenced by value consumers
}

// IsNull reports whether the pointer observed a null AtomicRef.
func (l LocalPtr[T]) IsNull() bool { return l.value == nil }

// Tag returns the 2 tag bits observed alongside the pointer.
func (l LocalPtr[T]) Tag() uint8 { return l.tag }

// Deref returns the pointed-to value. Only valid while the barrier that
// produced this LocalPtr is still open.
func (l LocalPtr[T]) Deref() *T { return l.value }

// CloneOwned turns a borrowed, barrier-scoped LocalPtr into a fresh owning
// handle by bumping the underlying object's refcount. Used when a reader
// needs to install an already-observed successor as the new owner of some
// other AtomicRef slot (e.g. llist's opportunistic unlinking of a
// tombstoned node re-homes its successor onto the predecessor's link).
func CloneOwned[T any](l LocalPtr[T]) OwnedRef[T] {
	if l.owner == nil {
		return OwnedRef[T]{}
	}
	atomic.AddInt64(&l.owner.refs, 1)
	return OwnedRef[T]{b: l.owner}
}

// tagged is the atomically-swapped (owner, tag) pair; see the package doc
// comment for why this replaces literal bit-packing.
type tagged[T any] struct {
	owner *box[T]
	tag   uint8
}

func toLocalPtr[T any](t *tagged[T]) LocalPtr[T] {
	if t == nil || t.owner == nil {
		return LocalPtr[T]{}
	}
	return LocalPtr[T]{value: &t.owner.value, tag: t.tag, owner: t.owner}
}

// AtomicRef is an atomically-updatable word holding either null or an
// owning reference to a heap-resident T, packed together with 2 tag bits
// (spec.md §3 "AtomicRef<T>").
type AtomicRef[T any] struct {
	p atomic.Pointer[tagged[T]]
}

// Load performs a lock-free read, exposing the tag bits alongside the
// pointer. guard bounds the returned LocalPtr's validity.
func (r *AtomicRef[T]) Load(_ *ebr.Guard) LocalPtr[T] {
	return toLocalPtr(r.p.Load())
}

// Store publishes owner (or null, if owner is the zero value) with tag,
// retiring whatever owner was previously installed.
func (r *AtomicRef[T]) Store(owner OwnedRef[T], tag uint8, domain *ebr.Domain) {
	nt := &tagged[T]{owner: owner.b, tag: tag & TagMask}
	old := r.p.Swap(nt)
	if old != nil {
		releaseBox(old.owner, domain)
	}
}

// CompareExchange performs a CAS on the full (owner, tag) pair. On
// success it returns the previously-installed owner (ownership transfers
// to the caller, who must eventually Release it) and true. On failure it
// returns the LocalPtr actually observed and false — spec.md §4.2's
// "Result<prior OwnedRef?, observed LocalPtr>".
func (r *AtomicRef[T]) CompareExchange(expected LocalPtr[T], newOwner OwnedRef[T], newTag uint8) (prior OwnedRef[T], observed LocalPtr[T], ok bool) {
	old := r.p.Load()
	observed = toLocalPtr(old)
	if observed.value != expected.value || observed.tag != expected.tag {
		return OwnedRef[T]{}, observed, false
	}
	nt := &tagged[T]{owner: newOwner.b, tag: newTag & TagMask}
	if r.p.CompareAndSwap(old, nt) {
		if old != nil {
			prior = OwnedRef[T]{b: old.owner}
		}
		return prior, expected, true
	}
	return OwnedRef[T]{}, toLocalPtr(r.p.Load()), false
}

// UpdateTagIf performs a CAS on the tag alone: pred receives the currently
// observed tag and decides whether to proceed.
func (r *AtomicRef[T]) UpdateTagIf(newTag uint8, pred func(current uint8) bool) bool {
	for {
		old := r.p.Load()
		var cur uint8
		if old != nil {
			cur = old.tag
		}
		if !pred(cur) {
			return false
		}
		nt := &tagged[T]{tag: newTag & TagMask}
		if old != nil {
			nt.owner = old.owner
		}
		if r.p.CompareAndSwap(old, nt) {
			return true
		}
	}
}

// Clear publishes null, retiring whatever owner was previously installed.
// Containers use this when tearing a node down, to release the owning
// references the node itself holds (e.g. a linked-list node's own "next"
// field) before the node's own box is retired — spec.md §9 "Cyclic
// ownership": a node's destructor must retire its outgoing owning links,
// never decrement-to-zero them synchronously in a way a concurrent reader
// could observe as already-gone.
func (r *AtomicRef[T]) Clear(domain *ebr.Domain) {
	r.Store(OwnedRef[T]{}, 0, domain)
}

// TryIntoOwned converts a unique atomic reference into a typed owning
// handle. It fails (returns false) unless the refcount is exactly 1 —
// i.e. no other holder, anywhere, still references the object.
func (r *AtomicRef[T]) TryIntoOwned() (OwnedRef[T], bool) {
	old := r.p.Load()
	if old == nil || old.owner == nil {
		return OwnedRef[T]{}, false
	}
	if atomic.LoadInt64(&old.owner.refs) != 1 {
		return OwnedRef[T]{}, false
	}
	if r.p.CompareAndSwap(old, &tagged[T]{}) {
		return OwnedRef[T]{b: old.owner}, true
	}
	return OwnedRef[T]{}, false
}
