// Package ebr implements epoch-based reclamation: the engine that defers
// destruction of objects reachable via lock-free pointer chasing until no
// participant can still observe them.
//
// The scheme is the classic three-epoch ring (cf. crossbeam-epoch), wired
// the way github.com/agilira/balios wires its own collaborators: a small
// interface-shaped contract (Domain/Participant/Guard), nil-safe defaults,
// and no package-level global state unless the caller asks for it via
// Default().
//
// Session bookkeeping (the per-participant garbage list, the "flush and
// swap" moment that closes a generation of garbage) is grounded on
// Couchbase nitro's skiplist access barrier, generalized from nitro's two-
// generation barrier session to the three-epoch ring spec.md requires.
package ebr

import (
	"sync"
	"sync/atomic"

	timecache "github.com/agilira/go-timecache"

	"github.com/qthree/scalable-concurrent-containers/internal/invariant"
)

// MetricsCollector receives point observations from a Domain. It mirrors
// the subset of scc.MetricsCollector this package can usefully drive;
// scc.MetricsCollector satisfies it structurally, so a Config's collector
// plugs in directly via WithMetrics without internal/ebr importing the
// root package.
type MetricsCollector interface {
	ObserveBarrierDuration(container string, nanos int64)
	IncRetire(container string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveBarrierDuration(string, int64) {}
func (noopMetrics) IncRetire(string)                     {}

// inactiveBit marks a slot's epoch word as "not pinned" so a concurrent
// epoch-advance scan can distinguish a lagging active participant from one
// that simply isn't in a barrier right now.
const inactiveBit uint64 = 1 << 63

// epochMask strips inactiveBit off a slot word.
const epochMask = inactiveBit - 1

// ring is the modulus of the logical epoch counter; three epochs suffice
// per spec.md §3.
const ring = 3

// Destructor runs once an object becomes safe to destroy.
type Destructor func()

type garbage struct {
	epoch      uint64
	destructor Destructor
}

// Domain is a process-wide (or test-isolated) epoch registry: the set of
// participating slots plus the global epoch counter. Tests construct their
// own Domain via New() to assert reclamation timing without process-global
// interference, per spec.md §9 "Global state" design note.
type Domain struct {
	global uint64 // atomic, logical epoch, monotonically increasing

	mu    sync.Mutex // guards slots slice membership (registration only)
	slots []*slot

	advanceEvery uint64 // A: attempt a global epoch advance every A retirements
	retireCount  uint64 // atomic counter of retirements since last advance attempt

	pool sync.Pool // of *Participant, for EnterBarrier's borrow-return convenience

	metrics   MetricsCollector
	container string
}

// WithMetrics attaches a MetricsCollector (and the container name it
// should label its observations with) to d, returning d for chaining at
// construction time. Not safe to call concurrently with Register/
// EnterBarrier; callers set this up once, right after New, before the
// domain is shared across goroutines.
func (d *Domain) WithMetrics(container string, m MetricsCollector) *Domain {
	if m == nil {
		m = noopMetrics{}
	}
	d.metrics = m
	d.container = container
	return d
}

type slot struct {
	epoch  uint64 // atomic: inactiveBit set when not pinned, else pinned epoch value
	garbage []garbage
	mu      sync.Mutex // guards garbage slice (single-writer in practice, but Collect can run from any pinned call)
	freed   bool       // true once the owning Participant has been Unregistered
}

// defaultAdvanceEvery is the A cited in spec.md §4.1 ("A ≈ 128").
const defaultAdvanceEvery = 128

// New creates an isolated epoch domain. advanceEvery <= 0 uses the spec's
// suggested default of 128 retirements between advance attempts.
func New(advanceEvery int) *Domain {
	if advanceEvery <= 0 {
		advanceEvery = defaultAdvanceEvery
	}
	return &Domain{advanceEvery: uint64(advanceEvery), metrics: noopMetrics{}}
}

var defaultDomain = New(defaultAdvanceEvery)

// Default returns the process-wide domain, created at package
// initialization. Containers use it only when a caller passes it to them
// explicitly; a Config with a nil Domain gets a fresh private domain.
func Default() *Domain { return defaultDomain }

// Participant is a single thread/goroutine's registration in a Domain. The
// caller owns the handle; it must not be shared across goroutines (the
// epoch slot it wraps is effectively single-writer, mirroring spec.md
// §5's "per-thread slots are single-writer").
type Participant struct {
	domain *Domain
	slot   *slot
}

// Register allocates a new participant slot, lazily as spec.md §6
// ("Environment") requires: no work happens until first use.
func (d *Domain) Register() *Participant {
	s := &slot{epoch: inactiveBit}
	d.mu.Lock()
	d.slots = append(d.slots, s)
	d.mu.Unlock()
	return &Participant{domain: d, slot: s}
}

// Unregister releases the participant's slot. Any garbage still held by
// the slot is moved onto another registered participant's slot so it is
// still reclaimed eventually (spec.md §4.1 Liveness); when no other
// participant is registered, its destructors run immediately.
func (p *Participant) Unregister() {
	s := p.slot
	s.mu.Lock()
	pending := s.garbage
	s.garbage = nil
	s.freed = true
	s.mu.Unlock()

	d := p.domain
	d.mu.Lock()
	removed := false
	for i, cand := range d.slots {
		if cand == s {
			d.slots = append(d.slots[:i], d.slots[i+1:]...)
			removed = true
			break
		}
	}
	// Re-home any garbage this slot was still holding onto another live
	// slot (or, if none exists, run the destructors directly: nothing can
	// observe these objects anymore once this participant has left and no
	// other participant is registered).
	var target *slot
	for _, cand := range d.slots {
		target = cand
		break
	}
	d.mu.Unlock()

	if !removed {
		// A slot can only leave d.slots through this exact removal; seeing
		// it absent means this Participant was already unregistered once
		// before (or never registered with this domain at all), and some
		// caller is treating the handle as reusable when it is strictly
		// single-use (spec.md §5 "per-thread slots are single-writer").
		invariant.Violate("ebr: duplicate participant unregister", map[string]interface{}{
			"participants": len(d.slots),
		})
	}

	if target == nil {
		for _, g := range pending {
			g.destructor()
		}
		return
	}
	target.mu.Lock()
	target.garbage = append(target.garbage, pending...)
	target.mu.Unlock()
}

// Guard is a scoped barrier token: while held, no object retired at or
// after the guard's recorded epoch may be destroyed. Construction publishes
// the current global epoch into the participant's slot; release (Unpin)
// clears it. No destruction may be observed by code outside the guard's
// scope (spec.md §4.1 "No-free-use-after-barrier").
type Guard struct {
	p      *Participant
	pooled bool
	opened int64 // timecache.CachedTimeNano() at Pin, for ObserveBarrierDuration
}

// Retire is a convenience for retiring garbage discovered while a guard is
// held (the common case: an operation opens a barrier, finds a node to
// unlink, and retires it before releasing the barrier).
func (g *Guard) Retire(d Destructor) {
	g.p.Retire(d)
}

// Pin opens a barrier: the returned Guard must be released (via Unpin,
// typically deferred) before the calling goroutine does anything else that
// assumes objects it loaded remain valid.
func (p *Participant) Pin() *Guard {
	e := atomic.LoadUint64(&p.domain.global)
	atomic.StoreUint64(&p.slot.epoch, e)
	return &Guard{p: p, opened: timecache.CachedTimeNano()}
}

// Unpin releases the barrier. Safe to call multiple times; subsequent
// calls are no-ops.
func (g *Guard) Unpin() {
	if g == nil || g.p == nil {
		return
	}
	p := g.p
	atomic.StoreUint64(&p.slot.epoch, inactiveBit)
	p.domain.metrics.ObserveBarrierDuration(p.domain.container, timecache.CachedTimeNano()-g.opened)
	g.p = nil
}

// Epoch returns the global epoch snapshot this guard published.
func (g *Guard) Epoch() uint64 {
	return atomic.LoadUint64(&g.p.slot.epoch) & epochMask
}

// Retire places obj's destructor in the caller's local retired pool,
// tagged with the current global epoch, per spec.md §4.1. It must be
// called while the participant holds a guard obtained from Pin (the guard
// establishes the retirement epoch's happens-before relationship with
// concurrently pinned readers).
func (p *Participant) Retire(d Destructor) {
	epoch := atomic.LoadUint64(&p.domain.global)
	s := p.slot
	s.mu.Lock()
	s.garbage = append(s.garbage, garbage{epoch: epoch, destructor: d})
	s.mu.Unlock()
	p.domain.metrics.IncRetire(p.domain.container)

	if atomic.AddUint64(&p.domain.retireCount, 1)%p.domain.advanceEvery == 0 {
		p.domain.tryAdvance()
		p.Collect()
	}
}

// tryAdvance attempts to bump the global epoch by one (mod the 3-epoch
// ring is implicit: callers only ever compare "at least two behind", so the
// counter itself need not wrap). It reads every registered slot; if every
// active slot already observes the current global epoch, nothing stands in
// the way of an advance and a single CAS publishes it. A lost CAS (another
// participant raced the same advance) is simply not retried this round,
// per spec.md §5 ("a lost CAS simply means no advance this round").
func (d *Domain) tryAdvance() {
	cur := atomic.LoadUint64(&d.global)

	d.mu.Lock()
	slots := make([]*slot, len(d.slots))
	copy(slots, d.slots)
	d.mu.Unlock()

	for _, s := range slots {
		v := atomic.LoadUint64(&s.epoch)
		if v&inactiveBit != 0 {
			continue // not pinned right now, doesn't block an advance
		}
		if v != cur {
			return // a pinned participant is lagging; can't advance yet
		}
	}
	atomic.CompareAndSwapUint64(&d.global, cur, cur+1)
}

// Collect destroys every garbage entry in every registered participant's
// pool whose retirement epoch is at least two behind the current global
// epoch (spec.md §4.1 "Reclamation"), so garbage left in an idle pooled
// participant's slot is still reclaimed. Safe to call opportunistically;
// it only takes short per-slot locks.
func (p *Participant) Collect() {
	d := p.domain
	cur := atomic.LoadUint64(&d.global)

	d.mu.Lock()
	slots := make([]*slot, len(d.slots))
	copy(slots, d.slots)
	d.mu.Unlock()

	var runnable []Destructor
	for _, s := range slots {
		s.mu.Lock()
		kept := s.garbage[:0]
		for _, g := range s.garbage {
			if cur >= g.epoch+2 {
				runnable = append(runnable, g.destructor)
			} else {
				kept = append(kept, g)
			}
		}
		s.garbage = kept
		s.mu.Unlock()
	}

	for _, fn := range runnable {
		fn()
	}
}

// EnterBarrier borrows a pooled Participant and pins it, returning the
// Guard a caller-facing API (cellarray, the tree, the linked list) opens
// for the duration of a single operation, per spec.md §4.1
// "enter_barrier()". Call Guard.Release (not Unpin) to both unpin and
// return the participant to the pool.
func (d *Domain) EnterBarrier() *Guard {
	var p *Participant
	if v := d.pool.Get(); v != nil {
		p = v.(*Participant)
	} else {
		p = d.Register()
	}
	g := p.Pin()
	g.pooled = true
	return g
}

// Release unpins the guard. If it was obtained via EnterBarrier, the
// backing participant is returned to the domain's pool for reuse instead
// of being unregistered, so short-lived operations don't pay slot
// registration cost every call.
func (g *Guard) Release() {
	if g == nil || g.p == nil {
		return
	}
	p, pooled := g.p, g.pooled
	g.Unpin()
	if pooled {
		p.domain.pool.Put(p)
	}
}

// RetireNow is Retire without requiring the caller to already hold a
// Participant: it borrows one from the domain's pool for the duration of
// the call. Used by internal/atomics, where a store/CAS on a shared
// AtomicRef can race across arbitrarily many goroutines and so cannot own
// a persistent single-writer Participant the way a container's
// operation-scoped guard can.
func (d *Domain) RetireNow(fn Destructor) {
	var p *Participant
	if v := d.pool.Get(); v != nil {
		p = v.(*Participant)
	} else {
		p = d.Register()
	}
	p.Retire(fn)
	d.pool.Put(p)
}

// Stats reports the domain's live/garbage bookkeeping, mirroring the
// teacher's CacheStats-style introspection surface.
type Stats struct {
	GlobalEpoch  uint64
	Participants int
	PendingGC    int
}

// Stats snapshots the domain for diagnostics and tests.
func (d *Domain) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	pending := 0
	for _, s := range d.slots {
		s.mu.Lock()
		pending += len(s.garbage)
		s.mu.Unlock()
	}
	return Stats{
		GlobalEpoch:  atomic.LoadUint64(&d.global),
		Participants: len(d.slots),
		PendingGC:    pending,
	}
}
