package cellarray

import (
	"fmt"
	"sync"
	"testing"

	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
)

func fnvHash(s string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func newTestTable(t *testing.T, tune Tunables) *Table[string, int] {
	t.Helper()
	return New[string, int](tune.MinCells, fnvHash, func(a, b string) bool { return a == b }, ebr.New(8), tune)
}

func TestInsertReadRemove(t *testing.T) {
	tbl := newTestTable(t, DefaultTunables())

	if err := tbl.Insert("a", 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tbl.Insert("a", 2); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	var got int
	if !tbl.Read("a", func(v int) { got = v }) {
		t.Fatalf("expected to find key a")
	}
	if got != 1 {
		t.Fatalf("expected value 1, got %d", got)
	}

	if !tbl.Update("a", func(v *int) { *v = 42 }) {
		t.Fatalf("expected Update to find key a")
	}
	tbl.Read("a", func(v int) { got = v })
	if got != 42 {
		t.Fatalf("expected updated value 42, got %d", got)
	}

	v, ok := tbl.Remove("a")
	if !ok || v != 42 {
		t.Fatalf("expected Remove to return 42, got %d ok=%v", v, ok)
	}
	if tbl.Read("a", func(int) {}) {
		t.Fatalf("key a should be gone after Remove")
	}
	if _, ok := tbl.Remove("a"); ok {
		t.Fatalf("double Remove should report not found")
	}
}

func TestOverflowBeyondInlineBucket(t *testing.T) {
	tune := DefaultTunables()
	tune.MinCells = 1 // force every key into the same single cell
	tune.HighWatermark = 1e9 // disable resize so we can assert overflow chaining directly
	tbl := newTestTable(t, tune)

	n := InlineBucketSize + 10
	for i := 0; i < n; i++ {
		if err := tbl.Insert(fmt.Sprintf("k%d", i), i); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		var got int
		if !tbl.Read(fmt.Sprintf("k%d", i), func(v int) { got = v }) {
			t.Fatalf("missing key k%d", i)
		}
		if got != i {
			t.Fatalf("key k%d: expected %d got %d", i, i, got)
		}
	}
	if tbl.Len() != n {
		t.Fatalf("expected Len %d, got %d", n, tbl.Len())
	}
}

func TestResizeGrowsAndPreservesEntries(t *testing.T) {
	tune := DefaultTunables()
	tune.MinCells = 4
	tbl := newTestTable(t, tune)

	const n = 2000
	for i := 0; i < n; i++ {
		if err := tbl.Insert(fmt.Sprintf("key-%d", i), i); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if tbl.Stats().Cells <= tune.MinCells {
		t.Fatalf("expected table to have grown beyond MinCells, stats=%+v", tbl.Stats())
	}
	for i := 0; i < n; i++ {
		var got int
		if !tbl.Read(fmt.Sprintf("key-%d", i), func(v int) { got = v }) {
			t.Fatalf("missing key-%d after growth", i)
		}
		if got != i {
			t.Fatalf("key-%d: expected %d got %d", i, i, got)
		}
	}
}

type resizeRecorder struct {
	mu    sync.Mutex
	grows int
	total int
}

func (r *resizeRecorder) IncResize(container string, grew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if grew {
		r.grows++
	}
}

func TestMetricsCollectorObservesResize(t *testing.T) {
	tune := DefaultTunables()
	tune.MinCells = 4
	tbl := newTestTable(t, tune)
	rec := &resizeRecorder{}
	tbl.WithMetrics("test-table", rec)

	const n = 2000
	for i := 0; i < n; i++ {
		if err := tbl.Insert(fmt.Sprintf("key-%d", i), i); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.grows == 0 {
		t.Fatalf("expected at least one grow resize to be observed, total=%d grows=%d", rec.total, rec.grows)
	}
}

func TestResizeShrinksAfterBulkRemoval(t *testing.T) {
	tune := DefaultTunables()
	tune.MinCells = 4
	tbl := newTestTable(t, tune)

	const n = 2000
	for i := 0; i < n; i++ {
		_ = tbl.Insert(fmt.Sprintf("key-%d", i), i)
	}
	grownCells := tbl.Stats().Cells

	for i := 0; i < n-5; i++ {
		if _, ok := tbl.Remove(fmt.Sprintf("key-%d", i)); !ok {
			t.Fatalf("Remove key-%d failed", i)
		}
	}
	if tbl.Stats().Cells >= grownCells {
		t.Fatalf("expected table to shrink after bulk removal: grown=%d now=%d", grownCells, tbl.Stats().Cells)
	}
	for i := n - 5; i < n; i++ {
		if !tbl.Read(fmt.Sprintf("key-%d", i), func(int) {}) {
			t.Fatalf("surviving key-%d lost across shrink", i)
		}
	}
}

func TestForEachVisitsEveryEntry(t *testing.T) {
	tbl := newTestTable(t, DefaultTunables())
	want := map[string]int{}
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("k%d", i)
		want[k] = i
		_ = tbl.Insert(k, i)
	}
	got := map[string]int{}
	tbl.ForEach(func(k string, v int) bool {
		got[k] = v
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("expected %d entries visited, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("key %s: expected %d got %d", k, v, got[k])
		}
	}
}

func TestConcurrentInsertRemoveDuringResize(t *testing.T) {
	tune := DefaultTunables()
	tune.MinCells = 4
	tbl := newTestTable(t, tune)

	const workers = 16
	const perWorker = 300
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				k := fmt.Sprintf("w%d-%d", w, i)
				if err := tbl.Insert(k, w*perWorker+i); err != nil {
					t.Errorf("Insert %s: %v", k, err)
				}
			}
		}(w)
	}
	wg.Wait()

	if got := tbl.Len(); got != workers*perWorker {
		t.Fatalf("expected %d entries, got %d", workers*perWorker, got)
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				k := fmt.Sprintf("w%d-%d", w, i)
				if _, ok := tbl.Remove(k); !ok {
					t.Errorf("Remove %s: not found", k)
				}
			}
		}(w)
	}
	wg.Wait()

	if got := tbl.Len(); got != 0 {
		t.Fatalf("expected table empty after removing everything, got Len=%d", got)
	}
}
