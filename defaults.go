// defaults.go: version and tunable defaults shared across every container
// (see doc.go for the package-level overview).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package scc

const (
	// Version of this container library.
	Version = "v0.1.0-dev"

	// DefaultInitialCapacity is the default number of inline entries a
	// freshly constructed Map or Set can hold before its first resize.
	DefaultInitialCapacity = 1024

	// DefaultHighWatermark is the load factor above which a resize grows
	// the table (spec.md §4.4 "T_high").
	DefaultHighWatermark = 0.875

	// DefaultLowWatermark is the load factor below which a resize shrinks
	// the table, never below DefaultMinCells (spec.md §4.4 "T_low").
	DefaultLowWatermark = 0.125

	// DefaultMinCells is the floor on the number of segments a table will
	// shrink to.
	DefaultMinCells = 16

	// DefaultFanout is the B+ tree's fan-out F (spec.md §4.7).
	DefaultFanout = 8

	// DefaultAdvanceEvery is the epoch engine's retirement count between
	// global-epoch advance attempts (spec.md §4.1 "A ≈ 128").
	DefaultAdvanceEvery = 128
)
