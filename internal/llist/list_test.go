package llist

import (
	"sync"
	"testing"

	"github.com/qthree/scalable-concurrent-containers/internal/atomics"
	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
)

// node is a minimal list element satisfying Linked[node] for these tests.
type node struct {
	value int
	next  atomics.AtomicRef[node]
}

func (n *node) Link() *atomics.AtomicRef[node] { return &n.next }

func newNode(domain *ebr.Domain, value int) atomics.OwnedRef[node] {
	return atomics.NewOwned(node{value: value}, func(n *node) {
		n.next.Clear(domain)
	})
}

func TestPushBackAndTraverse(t *testing.T) {
	domain := ebr.New(0)
	head := newNode(domain, 0)
	g := domain.EnterBarrier()
	defer g.Release()

	headNode := head.Value()
	n1 := newNode(domain, 1)
	n1Val := n1.Value()
	if err := PushBack[node](headNode, n1, g); err != nil {
		t.Fatalf("PushBack: %v", err)
	}
	n2 := newNode(domain, 2)
	if err := PushBack[node](n1Val, n2, g); err != nil {
		t.Fatalf("PushBack: %v", err)
	}

	p1 := NextPtr[node](headNode, domain, g)
	if p1.IsNull() || p1.Deref().value != 1 {
		t.Fatalf("expected first successor value 1, got %+v", p1)
	}
	p2 := NextPtr[node](p1.Deref(), domain, g)
	if p2.IsNull() || p2.Deref().value != 2 {
		t.Fatalf("expected second successor value 2, got %+v", p2)
	}
	p3 := NextPtr[node](p2.Deref(), domain, g)
	if !p3.IsNull() {
		t.Fatalf("expected tail to have no successor")
	}
}

func TestPushBackRejectsDuplicateOrDeleted(t *testing.T) {
	domain := ebr.New(0)
	head := newNode(domain, 0)
	g := domain.EnterBarrier()
	defer g.Release()
	headNode := head.Value()

	n1 := newNode(domain, 1)
	if err := PushBack[node](headNode, n1, g); err != nil {
		t.Fatalf("first PushBack: %v", err)
	}
	n2 := newNode(domain, 2)
	if err := PushBack[node](headNode, n2, g); err != ErrHasSuccessor {
		t.Fatalf("expected ErrHasSuccessor, got %v", err)
	}

	DeleteSelf[node](headNode, domain, g)
	n3 := newNode(domain, 3)
	if err := PushBack[node](headNode, n3, g); err != ErrDeleted {
		t.Fatalf("expected ErrDeleted, got %v", err)
	}
}

func TestDeleteSelfUnlinkedByTraversal(t *testing.T) {
	domain := ebr.New(0)
	head := newNode(domain, 0)
	g := domain.EnterBarrier()

	headNode := head.Value()
	n1 := newNode(domain, 1)
	n1Val := n1.Value()
	_ = PushBack[node](headNode, n1, g)
	n2 := newNode(domain, 2)
	_ = PushBack[node](n1Val, n2, g)

	DeleteSelf[node](n1Val, domain, g)

	// Traversal from head must skip the tombstoned middle node entirely.
	succ := NextPtr[node](headNode, domain, g)
	if succ.IsNull() || succ.Deref().value != 2 {
		t.Fatalf("expected deleted node to be skipped, landed on %+v", succ)
	}
	g.Release()
}

func TestMarkAndIsMarked(t *testing.T) {
	domain := ebr.New(0)
	head := newNode(domain, 0)
	g := domain.EnterBarrier()
	defer g.Release()
	headNode := head.Value()

	if IsMarked[node](headNode, g) {
		t.Fatalf("fresh node should not be marked")
	}
	Mark[node](headNode, domain, g)
	if !IsMarked[node](headNode, g) {
		t.Fatalf("expected node to be marked")
	}

	n1 := newNode(domain, 1)
	n1Val := n1.Value()
	if err := PushBack[node](headNode, n1, g); err != nil {
		t.Fatalf("PushBack after Mark (mark bit must not block linking): %v", err)
	}
	succ := NextPtr[node](headNode, domain, g)
	if succ.IsNull() || succ.Deref() != n1Val {
		t.Fatalf("marking head must not disturb its link")
	}
}

func TestConcurrentPushBackAtTailIsRace(t *testing.T) {
	domain := ebr.New(16)
	head := newNode(domain, 0)
	headNode := head.Value()

	const n = 64
	var wg sync.WaitGroup
	var successes int32Counter
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			p := domain.Register()
			defer p.Unregister()
			g := p.Pin()
			defer g.Unpin()
			newN := newNode(domain, v)
			if PushBack[node](headNode, newN, g) == nil {
				successes.inc()
			} else {
				newN.Release(domain)
			}
		}(i)
	}
	wg.Wait()

	if successes.get() != 1 {
		t.Fatalf("exactly one concurrent PushBack at the same slot should win, got %d", successes.get())
	}
}

type int32Counter struct {
	mu sync.Mutex
	v  int
}

func (c *int32Counter) inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

func (c *int32Counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}
