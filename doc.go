// Package scc provides a suite of scalable, concurrent, in-memory
// container types sharing a single epoch-based reclamation engine.
//
// # Overview
//
// scc is built in layers: a reclamation engine and tagged atomic
// reference type (internal/ebr, internal/atomics) underlie a wait-free
// linked list (internal/llist) and a segmented, lock-striped cell array
// (internal/cellarray). Four containers are projected over those layers:
//
//   - Map[K, V]: the general-purpose key-value container (this package)
//   - set.Set[K]: a thin wrapper over Map[K, struct{}]
//   - index.ReadIndex[K, V]: copy-on-write buckets, lock-free reads
//   - tree.TreeIndex[K, V]: an ordered concurrent B+ tree
//
// A fifth package, async, offers a cooperative-suspension variant of the
// cell-lock discipline for callers driving their own executor instead of
// blocking a goroutine.
//
// # Quick Start
//
//	m := scc.NewMap[string, User](scc.Config{InitialCapacity: 10_000})
//
//	_ = m.Insert("user:123", User{ID: 123, Name: "Alice"})
//
//	if user, found := m.Get("user:123"); found {
//	    fmt.Printf("User: %s\n", user.Name)
//	}
//
//	stats := m.Stats()
//	fmt.Printf("entries: %d, load factor: %.2f\n", stats.Len, stats.LoadFactor)
//
// # Concurrency Model
//
// Every container is safe for concurrent use without external locking.
// Reads and writes on distinct keys proceed independently whenever they
// land in different cells; contention is bounded by the number of
// segments, which grows and shrinks automatically with occupancy.
//
//   - Map / Set: per-cell reader/writer locks (a writer in the queue
//     blocks new readers, preventing writer starvation).
//   - index.ReadIndex: lock-free reads via copy-on-write bucket
//     publication; writes pay a bucket-copy cost.
//   - tree.TreeIndex: latch-coupled insert/remove; descent loads
//     immutable branch snapshots without latching, and lookups and range
//     scans take each visited leaf's latch while reading its entries.
//
// No container owns a background goroutine or thread pool. Resizes and
// migrations are driven incrementally by the calling goroutines
// themselves ("helping"), never by a dedicated maintenance thread.
//
// # Reclamation
//
// Objects unlinked from a live structure (an overflow node, a retired
// cell-array generation, a B+ tree node replaced by a split) are not
// freed synchronously: they are handed to an epoch-based reclamation
// domain and destroyed only once every concurrently open barrier has
// closed. Most callers never interact with this directly — it is an
// implementation detail of correctness, not an API surface — but
// multiple related containers can be told to share one domain via
// Config.Domain, amortizing the bookkeeping.
//
// # Error Handling
//
// scc uses structured errors (github.com/agilira/go-errors) with stable
// error codes:
//
//	if err := m.Insert("user:123", user); err != nil {
//	    if scc.IsDuplicateKey(err) {
//	        // key already present; err carries the attempted key in context
//	    }
//	}
//
// Available error codes include SCC_DUPLICATE_KEY, SCC_KEY_NOT_FOUND,
// SCC_EMPTY_KEY, SCC_ALLOCATION_FAILED, SCC_TREE_RETRY_EXHAUSTED and
// SCC_INVARIANT_VIOLATION. Allocation failures are marked retryable
// (scc.IsRetryable) since a resize that fails to allocate can simply be
// attempted again later; the container is left in a consistent state
// either way.
//
// # Observability
//
// Map and Set accept a Logger and a MetricsCollector via Config; both
// default to no-op implementations, so observability is opt-in and free
// when unused. Observations go to the MetricsCollector; no container logs
// through the Logger:
//
//	import sccotel "github.com/qthree/scalable-concurrent-containers/otel"
//
//	collector, _ := sccotel.NewOTelMetricsCollector(meterProvider)
//	m := scc.NewMap[string, User](scc.Config{
//	    InitialCapacity:  10_000,
//	    MetricsCollector: collector,
//	})
//
// Metrics exposed (via the otel adapter):
//   - scc_barrier_duration_ns: histogram of barrier-scoped operation durations
//   - scc_resize_total: counter of completed grow/shrink migrations
//   - scc_waiter_queue_depth: histogram of async waiter queue depth
//   - scc_retire_total: counter of objects handed to the reclamation engine
//
// The core scc package has zero OpenTelemetry dependencies; the otel
// adapter is a separate Go module.
//
// # Dynamic Tuning
//
// Resize watermarks can be reloaded from a config file without restarting
// the process, via HotTunables (backed by github.com/agilira/argus's file
// watcher). HotTunables publishes the parsed values through Current and
// OnReload; containers already constructed keep the tunables they were
// built with:
//
//	ht, _ := scc.WatchTunables("scc-tunables.json")
//	defer ht.Close()
//
// # Thread Safety
//
//	m := scc.NewMap[string, int](scc.Config{InitialCapacity: 1000})
//
//	go func() { m.Insert("a", 1) }()
//	go func() { m.Get("a") }()
//	go func() { m.Remove("a") }()
//	go func() { _ = m.Stats() }()
//
// # Packages
//
//   - github.com/qthree/scalable-concurrent-containers: Map, Set config
//   - .../set: Set[K]
//   - .../index: ReadIndex[K, V]
//   - .../tree: TreeIndex[K, V]
//   - .../async: cooperative-suspension waiter discipline
//   - .../otel: OpenTelemetry MetricsCollector adapter (separate module)
//
// # License
//
// See LICENSE file in the repository.
package scc
