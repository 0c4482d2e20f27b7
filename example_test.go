// example_test.go: godoc examples for the container suite.
//
// These examples appear in the generated documentation on pkg.go.dev
// and are executed as part of the test suite to ensure they remain valid.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package scc_test

import (
	"fmt"

	scc "github.com/qthree/scalable-concurrent-containers"
	"github.com/qthree/scalable-concurrent-containers/set"
)

// ExampleNewMap demonstrates basic map creation and usage.
func ExampleNewMap() {
	m := scc.NewMap[string, string](scc.DefaultConfig())

	if err := m.Insert("user:123", "John Doe"); err != nil {
		fmt.Println("insert failed:", err)
	}

	if name, found := m.Get("user:123"); found {
		fmt.Println("Found:", name)
	}

	// Output: Found: John Doe
}

// ExampleMap_Upsert demonstrates combining try-insert and update under a
// single call.
func ExampleMap_Upsert() {
	m := scc.NewMap[string, int](scc.DefaultConfig())

	m.Upsert("hits", func() int { return 1 }, func(v *int) { *v++ })
	m.Upsert("hits", func() int { return 1 }, func(v *int) { *v++ })
	m.Upsert("hits", func() int { return 1 }, func(v *int) { *v++ })

	v, _ := m.Get("hits")
	fmt.Println("hits:", v)

	// Output: hits: 3
}

// ExampleMap_Retain demonstrates bulk filtering of live entries.
func ExampleMap_Retain() {
	m := scc.NewMap[int, string](scc.DefaultConfig())
	m.Insert(200, "OK")
	m.Insert(404, "Not Found")
	m.Insert(500, "Internal Server Error")

	m.Retain(func(k int, _ string) bool { return k < 500 })

	fmt.Println("remaining:", m.Len())

	// Output: remaining: 2
}

// ExampleSet demonstrates the concurrent set built over Map[K, struct{}].
func ExampleSet() {
	s := set.New[string](scc.DefaultConfig())

	s.Insert("alpha")
	s.Insert("beta")
	s.Insert("alpha") // already a member

	fmt.Println("alpha member:", s.Contains("alpha"))
	fmt.Println("size:", s.Len())

	// Output: alpha member: true
	// size: 2
}
