// hot_reload.go: dynamic resize-tunable reload via Argus.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package scc

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"

	"github.com/qthree/scalable-concurrent-containers/internal/cellarray"
)

// HotTunables watches a configuration file and atomically republishes
// resize watermarks (spec.md §4.4 "T_high"/"T_low") and the shrink floor
// through Current and OnReload, using github.com/agilira/argus's universal
// config watcher (the same collaborator the teacher wires for its own
// cache-knob hot reload, retargeted here from cache-eviction knobs to
// resize watermarks). It does not change the tunables of a container that
// is already constructed; that container keeps the values it was built
// with.
//
// InitialCapacity and fan-out are not hot-reloadable: changing them
// requires reconstructing the underlying table, which HotTunables does
// not attempt.
type HotTunables struct {
	watcher *argus.Watcher
	mu      sync.RWMutex
	tune    cellarray.Tunables

	// OnReload is called after new tunables are successfully parsed.
	// Optional; must be fast and non-blocking.
	OnReload func(old, new cellarray.Tunables)
}

// HotTunablesOptions configures the watcher.
type HotTunablesOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(old, new cellarray.Tunables)
}

// WatchTunables starts watching path for tunable changes, applying
// DefaultTunables until the first successful parse.
//
// Example configuration file (YAML):
//
//	resize:
//	  high_watermark: 0.875
//	  low_watermark: 0.125
//	  min_cells: 16
func WatchTunables(path string, opts ...HotTunablesOptions) (*HotTunables, error) {
	var o HotTunablesOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.ConfigPath = path

	if o.ConfigPath == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if o.PollInterval == 0 {
		o.PollInterval = time.Second
	} else if o.PollInterval < 100*time.Millisecond {
		o.PollInterval = 100 * time.Millisecond
	}

	ht := &HotTunables{
		OnReload: o.OnReload,
		tune:     cellarray.DefaultTunables(),
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(o.ConfigPath, ht.handleChange, argus.Config{
		PollInterval: o.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	ht.watcher = watcher
	return ht, nil
}

// Start begins watching, if not already running.
func (ht *HotTunables) Start() error {
	if ht.watcher.IsRunning() {
		return nil
	}
	return ht.watcher.Start()
}

// Close stops watching the configuration file.
func (ht *HotTunables) Close() error {
	return ht.watcher.Stop()
}

// Current returns the most recently applied tunables (thread-safe).
func (ht *HotTunables) Current() cellarray.Tunables {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	return ht.tune
}

func (ht *HotTunables) handleChange(data map[string]interface{}) {
	ht.mu.Lock()
	old := ht.tune
	next := ht.parse(data, old)
	ht.tune = next
	ht.mu.Unlock()

	if ht.OnReload != nil {
		ht.OnReload(old, next)
	}
}

func (ht *HotTunables) parse(data map[string]interface{}, fallback cellarray.Tunables) cellarray.Tunables {
	section, ok := data["resize"].(map[string]interface{})
	if !ok {
		if _, hasHigh := data["high_watermark"]; hasHigh {
			section = data
		} else {
			return fallback
		}
	}

	next := fallback
	if v, ok := parseFloatInRange(section["high_watermark"], 0, 1); ok {
		next.HighWatermark = v
	}
	if v, ok := parseFloatInRange(section["low_watermark"], 0, next.HighWatermark); ok {
		next.LowWatermark = v
	}
	if v, ok := parsePositiveInt(section["min_cells"]); ok {
		next.MinCells = v
	}
	return next
}

// parsePositiveInt extracts a positive integer from interface{}. Supports
// int and float64 (YAML/JSON may decode either).
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseFloatInRange extracts a float64 within the open interval (min, max).
func parseFloatInRange(value interface{}, min, max float64) (float64, bool) {
	if v, ok := value.(float64); ok {
		if v > min && v < max {
			return v, true
		}
	}
	return 0, false
}
