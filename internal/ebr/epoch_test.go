package ebr

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetireDestroysOnlyAfterEpochAdvance(t *testing.T) {
	d := New(1) // advance on every retirement, to make the test deterministic
	p1 := d.Register()
	p2 := d.Register()
	defer p1.Unregister()
	defer p2.Unregister()

	var destroyed int32

	g2 := p2.Pin() // p2 pins epoch 0 and holds it open
	p1.Pin().Release()
	p1.Retire(func() { atomic.AddInt32(&destroyed, 1) })

	// p1 advanced the epoch when retiring, but p2's open guard still
	// observes the old epoch, so the object must not be destroyed yet.
	p1.Collect()
	if atomic.LoadInt32(&destroyed) != 0 {
		t.Fatalf("object destroyed while a guard from its retirement epoch is still open")
	}

	g2.Unpin()
	// Two further retire+collect rounds are enough to advance the epoch
	// twice more (global must get 2 ahead of the retirement epoch).
	p1.Pin().Release()
	p1.Retire(func() {})
	p1.Collect()
	p1.Pin().Release()
	p1.Retire(func() {})
	p1.Collect()

	if atomic.LoadInt32(&destroyed) != 1 {
		t.Fatalf("expected object to be destroyed once epoch advanced past it, destroyed=%d", destroyed)
	}
}

func TestGarbageBoundedUnderSteadyTraffic(t *testing.T) {
	d := New(8)
	const participants = 4
	var wg sync.WaitGroup
	for i := 0; i < participants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := d.Register()
			defer p.Unregister()
			for j := 0; j < 2000; j++ {
				g := p.Pin()
				p.Retire(func() {})
				g.Unpin()
			}
		}()
	}
	wg.Wait()

	stats := d.Stats()
	if stats.PendingGC > participants*64 {
		t.Fatalf("garbage set grew unbounded under periodic pin/retire: pending=%d", stats.PendingGC)
	}
}

func TestEnterBarrierPoolsParticipants(t *testing.T) {
	d := New(0)
	for i := 0; i < 100; i++ {
		g := d.EnterBarrier()
		g.Release()
	}
	if got := d.Stats().Participants; got > 1 {
		t.Fatalf("expected EnterBarrier to reuse a single pooled participant, got %d slots", got)
	}
}

func TestUnregisterRehomesPendingGarbage(t *testing.T) {
	d := New(1)
	p1 := d.Register()
	p2 := d.Register()

	var ran int32
	p1.Pin().Release()
	p1.Retire(func() { atomic.AddInt32(&ran, 1) })
	// Force the object to still be too-young to collect, then leave.
	p1.Unregister()

	// p2 is still registered; advancing the epoch enough times through it
	// should eventually run the rehomed destructor.
	for i := 0; i < 4; i++ {
		p2.Pin().Release()
		p2.Retire(func() {})
		p2.Collect()
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("rehomed garbage was not destroyed, ran=%d", ran)
	}
	p2.Unregister()
}

func TestDoubleUnregisterPanics(t *testing.T) {
	d := New(0)
	p := d.Register()
	p.Unregister()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a second Unregister of the same participant to panic")
		}
	}()
	p.Unregister()
}

type fakeMetrics struct {
	mu            sync.Mutex
	barriers      int
	retires       int
	lastNanos     int64
	lastContainer string
}

func (f *fakeMetrics) ObserveBarrierDuration(container string, nanos int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barriers++
	f.lastNanos = nanos
	f.lastContainer = container
}

func (f *fakeMetrics) IncRetire(container string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retires++
	f.lastContainer = container
}

func TestMetricsCollectorObservesBarrierAndRetire(t *testing.T) {
	m := &fakeMetrics{}
	d := New(1).WithMetrics("test-domain", m)
	p := d.Register()
	defer p.Unregister()

	g := p.Pin()
	g.Unpin()
	p.Retire(func() {})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.barriers != 1 {
		t.Fatalf("barriers observed = %d, want 1", m.barriers)
	}
	if m.retires != 1 {
		t.Fatalf("retires observed = %d, want 1", m.retires)
	}
	if m.lastContainer != "test-domain" {
		t.Fatalf("lastContainer = %q, want test-domain", m.lastContainer)
	}
	if m.lastNanos < 0 {
		t.Fatalf("lastNanos = %d, want >= 0", m.lastNanos)
	}
}

func TestConcurrentPinDoesNotRace(t *testing.T) {
	d := Default()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		p := d.Register()
		defer p.Unregister()
		for {
			select {
			case <-stop:
				return
			default:
				g := p.Pin()
				time.Sleep(time.Microsecond)
				g.Unpin()
			}
		}
	}()
	time.Sleep(10 * time.Millisecond)
	close(stop)
	wg.Wait()
}
