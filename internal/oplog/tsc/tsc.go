// Copyright 2025 The oplog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tsc provides the timestamp source that orders logged operations
// across CPUs.
//
// The merge logger tags every operation with a timestamp and later applies
// operations from all CPUs in ascending timestamp order. For that order to
// approximate the real interleaving, the source must be monotonically
// non-decreasing within one execution context and closely aligned between
// contexts.
//
// The implementation reads Go's monotonic clock: Now is the nanosecond
// offset from a process-wide base captured at init. The monotonic clock is
// a single system-wide counter (on amd64 ultimately the invariant TSC, OS
// synchronized across sockets), so cross-CPU comparisons are meaningful at
// roughly the resolution of the clock source. That is the same property
// the original OpLog design gets from RDTSCP on invariant-TSC hardware,
// paid for with one vDSO call (~20ns) instead of one instruction.
//
// Ordering against locks: callers read Now while holding the lock that
// guards the destination logger, and the timestamp is written into memory
// before the lock is released. The happens-before edge from the unlock
// therefore orders the timestamp read after the lock acquisition: a
// timestamp can never predate the acquisition of the slot it is logged
// under.
package tsc

import "time"

// base anchors the timestamp scale. Taken once at process start; all
// timestamps are offsets from it, so they fit comfortably in uint64 and
// start near zero, which keeps dumps readable.
var base = time.Now()

// Now returns the current timestamp: monotonic nanoseconds since process
// start. Non-decreasing within one goroutine and comparable across
// goroutines.
func Now() uint64 {
	return uint64(time.Since(base))
}
