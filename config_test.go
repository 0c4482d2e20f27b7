// config_test.go: unit tests for shared container configuration.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package scc

import "testing"

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.InitialCapacity != DefaultInitialCapacity {
		t.Errorf("InitialCapacity = %d, want %d", c.InitialCapacity, DefaultInitialCapacity)
	}
	if c.HighWatermark != DefaultHighWatermark {
		t.Errorf("HighWatermark = %v, want %v", c.HighWatermark, DefaultHighWatermark)
	}
	if c.LowWatermark != DefaultLowWatermark {
		t.Errorf("LowWatermark = %v, want %v", c.LowWatermark, DefaultLowWatermark)
	}
	if c.Domain == nil {
		t.Error("Domain should be populated by Validate")
	}
	if c.Logger == nil {
		t.Error("Logger should default to NoOpLogger")
	}
	if c.TimeProvider == nil {
		t.Error("TimeProvider should default to systemTimeProvider")
	}
	if c.MetricsCollector == nil {
		t.Error("MetricsCollector should default to NoOpMetricsCollector")
	}
}

func TestValidateAppliesDefaultsForZeroValues(t *testing.T) {
	var c Config
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.InitialCapacity != DefaultInitialCapacity {
		t.Errorf("InitialCapacity = %d, want %d", c.InitialCapacity, DefaultInitialCapacity)
	}
	if c.MinCells != DefaultMinCells {
		t.Errorf("MinCells = %d, want %d", c.MinCells, DefaultMinCells)
	}
	if c.AdvanceEvery != DefaultAdvanceEvery {
		t.Errorf("AdvanceEvery = %d, want %d", c.AdvanceEvery, DefaultAdvanceEvery)
	}
}

func TestValidateRejectsOutOfRangeWatermarks(t *testing.T) {
	c := Config{HighWatermark: 1.5, LowWatermark: 0.9}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.HighWatermark != DefaultHighWatermark {
		t.Errorf("out-of-range HighWatermark should fall back to default, got %v", c.HighWatermark)
	}
	if c.LowWatermark >= c.HighWatermark {
		t.Errorf("LowWatermark (%v) should end up below HighWatermark (%v)", c.LowWatermark, c.HighWatermark)
	}
}

func TestValidateKeepsCallerSuppliedDomain(t *testing.T) {
	shared := DefaultConfig().Domain
	c := Config{Domain: shared}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.Domain != shared {
		t.Error("Validate should not replace a caller-supplied Domain")
	}
}

func TestSystemTimeProviderReturnsPositiveTime(t *testing.T) {
	p := &systemTimeProvider{}
	first := p.Now()
	if first <= 0 {
		t.Fatalf("Now() = %d, want > 0", first)
	}
}
