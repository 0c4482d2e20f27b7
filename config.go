// config.go: configuration shared by every container in this module.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package scc

import (
	"github.com/agilira/go-timecache"

	"github.com/qthree/scalable-concurrent-containers/internal/cellarray"
	"github.com/qthree/scalable-concurrent-containers/internal/ebr"
)

// Config holds construction-time parameters shared by Map and Set. The
// read-optimized index takes its parameters directly in index.New, and
// tree fan-out is configured separately on tree.TreeIndex, since it has
// no analogue in the cell-array containers.
type Config struct {
	// InitialCapacity is the number of entries the table can hold before
	// its first resize. Rounded up to a power of two. Default:
	// DefaultInitialCapacity.
	InitialCapacity int

	// HighWatermark is the load factor above which an insert requests a
	// grow resize (spec.md §4.4 "T_high"). Default: DefaultHighWatermark.
	HighWatermark float64

	// LowWatermark is the load factor below which a remove requests a
	// shrink resize (spec.md §4.4 "T_low"). Default: DefaultLowWatermark.
	LowWatermark float64

	// MinCells floors how far a shrink resize will go. Default:
	// DefaultMinCells.
	MinCells int

	// AdvanceEvery is the epoch engine's retirement count between global
	// epoch advance attempts (spec.md §4.1 "A"). Default:
	// DefaultAdvanceEvery.
	AdvanceEvery int

	// Domain lets multiple containers share one epoch-reclamation domain
	// (e.g. a Map and an index built over related data). If nil, each
	// container gets its own private Domain sized by AdvanceEvery.
	Domain *ebr.Domain

	// Logger is carried with the configuration; no container logs through
	// it. If nil, Validate sets NoOpLogger. Default: NoOpLogger.
	Logger Logger

	// TimeProvider is carried with the configuration; no container reads
	// it. If nil, Validate sets a go-timecache-backed provider. Default:
	// systemTimeProvider.
	TimeProvider TimeProvider

	// MetricsCollector receives point observations about barrier
	// durations, resize events and waiter queue depth. If nil,
	// NoOpMetricsCollector is used (zero overhead). Default:
	// NoOpMetricsCollector.
	MetricsCollector MetricsCollector
}

// Validate normalizes cfg in place, applying defaults for zero-valued
// fields. It never returns an error for Config itself — construction-time
// errors (e.g. a caller-provided hasher that is nil) are reported by the
// container constructors, which call Validate first.
//
// Default values applied:
//   - InitialCapacity: DefaultInitialCapacity if <= 0
//   - HighWatermark: DefaultHighWatermark if <= 0 or >= 1
//   - LowWatermark: DefaultLowWatermark if <= 0 or >= HighWatermark
//   - MinCells: DefaultMinCells if <= 0
//   - AdvanceEvery: DefaultAdvanceEvery if <= 0
//   - Domain: a fresh ebr.Domain sized by AdvanceEvery, if nil
//   - Logger: NoOpLogger{} if nil
//   - TimeProvider: systemTimeProvider{} if nil
//   - MetricsCollector: NoOpMetricsCollector{} if nil
func (c *Config) Validate() error {
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}
	if c.HighWatermark <= 0 || c.HighWatermark >= 1 {
		c.HighWatermark = DefaultHighWatermark
	}
	if c.LowWatermark <= 0 || c.LowWatermark >= c.HighWatermark {
		c.LowWatermark = DefaultLowWatermark
	}
	if c.MinCells <= 0 {
		c.MinCells = DefaultMinCells
	}
	if c.AdvanceEvery <= 0 {
		c.AdvanceEvery = DefaultAdvanceEvery
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	if c.Domain == nil {
		c.Domain = ebr.New(c.AdvanceEvery).WithMetrics("ebr", c.MetricsCollector)
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults already applied.
func DefaultConfig() Config {
	c := Config{}
	_ = c.Validate()
	return c
}

// tunables projects Config's resize knobs into the shape
// internal/cellarray expects.
func (c Config) tunables() cellarray.Tunables {
	return cellarray.Tunables{
		HighWatermark: c.HighWatermark,
		LowWatermark:  c.LowWatermark,
		MinCells:      c.MinCells,
	}
}

// systemTimeProvider is the default time provider, using go-timecache for
// a cached, allocation-free clock read (Stats()/metrics only — never on
// the epoch/CAS critical path).
type systemTimeProvider struct{}

func (t *systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
