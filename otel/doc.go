// Package otel provides OpenTelemetry integration for scalable
// concurrent containers metrics.
//
// # Overview
//
// This package implements the scc.MetricsCollector interface using
// OpenTelemetry, so barrier/resize/waiter/retire observations can be
// exported to any OTEL-compatible backend (Prometheus, Jaeger, DataDog).
//
// The package is a separate module so applications that don't need
// metrics collection don't pay for the OTEL SDK dependency; the core
// module only depends on the MetricsCollector interface and defaults to
// NoOpMetricsCollector.
//
// # Quick Start
//
//	import (
//	    scc "github.com/qthree/scalable-concurrent-containers"
//	    sccotel "github.com/qthree/scalable-concurrent-containers/otel"
//	    "go.opentelemetry.io/otel/exporters/prometheus"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	exporter, err := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	defer provider.Shutdown(context.Background())
//
//	collector, err := sccotel.NewOTelMetricsCollector(provider)
//
//	cfg := scc.DefaultConfig()
//	cfg.MetricsCollector = collector
//	m := scc.NewMap[string, User](cfg)
//
// # Metrics Exposed
//
// Histograms:
//   - scc_barrier_duration_ns: how long a barrier-scoped operation held
//     its guard open
//   - scc_waiter_queue_depth: async waker queue depth at observation time
//
// Counters:
//   - scc_resize_total{direction="grow"|"shrink"}: completed resizes
//   - scc_retire_total: objects handed to the reclamation engine
//
// # Configuration
//
// Custom meter name (useful for distinguishing multiple container
// instances sharing one MeterProvider):
//
//	collector, err := sccotel.NewOTelMetricsCollector(
//	    provider,
//	    sccotel.WithMeterName("myapp_user_index"),
//	)
//
// # Thread Safety
//
// All methods are safe for concurrent use; the underlying OTEL
// instruments are themselves safe for concurrent use.
package otel
