// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package otel

import (
	"context"
	"errors"

	scc "github.com/qthree/scalable-concurrent-containers"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetricsCollector implements scc.MetricsCollector using OpenTelemetry.
//
// Thread-safety: safe for concurrent use by multiple goroutines; the
// underlying OTEL instruments are themselves safe for concurrent use.
type OTelMetricsCollector struct {
	barrierDuration metric.Int64Histogram
	resizes         metric.Int64Counter
	waiterDepth     metric.Int64Histogram
	retires         metric.Int64Counter
}

// Options configures an OTelMetricsCollector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/qthree/scalable-concurrent-containers"
	MeterName string
}

// Option is a functional option for configuring OTelMetricsCollector.
type Option func(*Options)

// WithMeterName sets a custom meter name, useful for distinguishing
// metrics from multiple container instances sharing one MeterProvider.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewOTelMetricsCollector creates a new OpenTelemetry metrics collector.
//
// provider must not be nil. The collector creates one histogram for
// barrier durations, one histogram for waiter queue depth, and two
// counters for resize and retirement events.
func NewOTelMetricsCollector(provider metric.MeterProvider, opts ...Option) (*OTelMetricsCollector, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	options := Options{
		MeterName: "github.com/qthree/scalable-concurrent-containers",
	}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)
	collector := &OTelMetricsCollector{}

	var err error
	collector.barrierDuration, err = meter.Int64Histogram(
		"scc_barrier_duration_ns",
		metric.WithDescription("Duration a barrier-scoped operation held its guard open, in nanoseconds"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return nil, err
	}

	collector.resizes, err = meter.Int64Counter(
		"scc_resize_total",
		metric.WithDescription("Total number of completed resizes, labeled by container and direction"),
	)
	if err != nil {
		return nil, err
	}

	collector.waiterDepth, err = meter.Int64Histogram(
		"scc_waiter_queue_depth",
		metric.WithDescription("Depth of an async waker queue at the time of observation"),
	)
	if err != nil {
		return nil, err
	}

	collector.retires, err = meter.Int64Counter(
		"scc_retire_total",
		metric.WithDescription("Total number of objects handed to the reclamation engine"),
	)
	if err != nil {
		return nil, err
	}

	return collector, nil
}

// ObserveBarrierDuration records how long a barrier-scoped operation on
// container held its guard open.
func (c *OTelMetricsCollector) ObserveBarrierDuration(container string, nanos int64) {
	c.barrierDuration.Record(context.Background(), nanos,
		metric.WithAttributes(containerAttr(container)))
}

// IncResize records a completed resize on container, labeled by
// whether it grew or shrank the underlying table.
func (c *OTelMetricsCollector) IncResize(container string, grew bool) {
	direction := "shrink"
	if grew {
		direction = "grow"
	}
	c.resizes.Add(context.Background(), 1,
		metric.WithAttributes(containerAttr(container), directionAttr(direction)))
}

// ObserveWaiterQueueDepth records the current waker queue depth for
// container.
func (c *OTelMetricsCollector) ObserveWaiterQueueDepth(container string, depth int) {
	c.waiterDepth.Record(context.Background(), int64(depth),
		metric.WithAttributes(containerAttr(container)))
}

// IncRetire records an object handed to the reclamation engine by
// container.
func (c *OTelMetricsCollector) IncRetire(container string) {
	c.retires.Add(context.Background(), 1,
		metric.WithAttributes(containerAttr(container)))
}

// Compile-time interface check.
var _ scc.MetricsCollector = (*OTelMetricsCollector)(nil)
