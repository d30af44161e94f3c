// Copyright 2025 The oplog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "runtime"

// MaxCPUs is the size of every per-CPU array in the module.
//
// Fixed at package level so that cpuset bitmaps, logger caches and
// linearization marker arrays can all be plain arrays with no resize
// protocol. 256 covers every machine we target; ids from larger machines
// are folded down with a modulo, which costs some logger sharing between
// distant cores but never correctness.
const MaxCPUs = 256

// Count returns the number of logical CPUs that Current can actually
// return, i.e. min(runtime.NumCPU(), MaxCPUs).
//
// Iteration over per-CPU state can use this as an upper bound instead of
// scanning all MaxCPUs slots.
func Count() int {
	n := runtime.NumCPU()
	if n > MaxCPUs {
		return MaxCPUs
	}
	return n
}

// Current returns the logical CPU id of the calling execution context,
// always in [0, MaxCPUs).
//
// The result may be stale by the time the caller uses it; see the package
// documentation for why that is acceptable.
func Current() int {
	id := currentCPU()
	if id < 0 {
		id = int(goroutineID())
	}
	return id % MaxCPUs
}
