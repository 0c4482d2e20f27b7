package atomics

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
)

func TestStoreRetiresPreviousOwner(t *testing.T) {
	domain := ebr.New(1)
	var destroyed int32

	var ref AtomicRef[int]
	first := NewOwned(1, func(v *int) { atomic.AddInt32(&destroyed, 1) })
	ref.Store(first, 0, domain)

	second := NewOwned(2, func(v *int) { atomic.AddInt32(&destroyed, 1) })
	ref.Store(second, 0, domain)

	if atomic.LoadInt32(&destroyed) != 0 {
		t.Fatalf("destructor fired before epoch advanced past retirement")
	}

	p := domain.Register()
	defer p.Unregister()
	for i := 0; i < 4; i++ {
		p.Pin().Release()
		p.Retire(func() {})
		p.Collect()
	}
	if atomic.LoadInt32(&destroyed) != 1 {
		t.Fatalf("expected exactly the first owner's destructor to run, got destroyed=%d", destroyed)
	}
}

func TestCompareExchangeTagParticipates(t *testing.T) {
	domain := ebr.New(0)
	var ref AtomicRef[string]
	owned := NewOwned("hello", nil)
	ref.Store(owned, 1, domain)

	g := domain.EnterBarrier()
	observed := ref.Load(g)
	if observed.Tag() != 1 || *observed.Deref() != "hello" {
		t.Fatalf("unexpected observed state: %+v", observed)
	}

	next := NewOwned("world", nil)
	prior, _, ok := ref.CompareExchange(observed, next, 2)
	if !ok {
		t.Fatalf("CAS with matching expected+tag should succeed")
	}
	if prior.Value() == nil || *prior.Value() != "hello" {
		t.Fatalf("expected prior owner to be handed back")
	}
	prior.Release(domain)
	g.Release()

	g2 := domain.EnterBarrier()
	observed2 := ref.Load(g2)
	if observed2.Tag() != 2 || *observed2.Deref() != "world" {
		t.Fatalf("store after CAS not observed: %+v", observed2)
	}
	g2.Release()

	// Stale expected (tag mismatch) must fail.
	_, _, ok = ref.CompareExchange(observed, next, 3)
	if ok {
		t.Fatalf("CAS against stale expected should fail")
	}
}

func TestUpdateTagIf(t *testing.T) {
	domain := ebr.New(0)
	var ref AtomicRef[int]
	ref.Store(NewOwned(7, nil), 0, domain)

	ok := ref.UpdateTagIf(3, func(cur uint8) bool { return cur == 0 })
	if !ok {
		t.Fatalf("expected tag update to succeed from 0")
	}
	ok = ref.UpdateTagIf(1, func(cur uint8) bool { return cur == 0 })
	if ok {
		t.Fatalf("expected tag update to fail: current tag is 3, predicate requires 0")
	}

	g := domain.EnterBarrier()
	if ref.Load(g).Tag() != 3 {
		t.Fatalf("tag not updated")
	}
	g.Release()
}

func TestTryIntoOwnedRequiresUniqueRefcount(t *testing.T) {
	domain := ebr.New(0)
	var ref AtomicRef[int]
	owned := NewOwned(42, nil)
	clone := owned.Clone()
	ref.Store(owned, 0, domain)

	if _, ok := ref.TryIntoOwned(); ok {
		t.Fatalf("TryIntoOwned should fail while a clone is outstanding")
	}
	clone.Release(domain)

	got, ok := ref.TryIntoOwned()
	if !ok {
		t.Fatalf("TryIntoOwned should succeed once unique")
	}
	if *got.Value() != 42 {
		t.Fatalf("unexpected value %v", *got.Value())
	}
	got.Release(domain)
}

func TestConcurrentStoreNeverDoubleFiresDestructor(t *testing.T) {
	domain := ebr.New(4)
	var ref AtomicRef[int]
	var fired int64

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			owned := NewOwned(n, func(v *int) { atomic.AddInt64(&fired, 1) })
			ref.Store(owned, 0, domain)
		}(i)
	}
	wg.Wait()

	p := domain.Register()
	defer p.Unregister()
	for i := 0; i < 16; i++ {
		p.Pin().Release()
		p.Retire(func() {})
		p.Collect()
	}

	final, _ := ref.TryIntoOwned()
	if final.Valid() {
		final.Release(domain)
	}
	for i := 0; i < 16; i++ {
		p.Pin().Release()
		p.Retire(func() {})
		p.Collect()
	}

	if atomic.LoadInt64(&fired) != 8 {
		t.Fatalf("expected all 8 stored owners eventually retired exactly once, fired=%d", fired)
	}
}
