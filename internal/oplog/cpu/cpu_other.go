// Copyright 2025 The oplog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package cpu

import "github.com/klauspost/cpuid/v2"

// currentCPU returns the CPU the calling thread is running on using the
// APIC id reported by the CPUID instruction. This works on any OS but only
// on x86; klauspost/cpuid returns a negative value elsewhere, which tells
// the caller to fall back to the goroutine-id hash.
//
// Reading CPUID is a few tens of cycles, comparable to the Linux vDSO
// path. The id can be stale immediately after return, exactly like the
// getcpu(2) source; see the package documentation.
func currentCPU() int {
	return cpuid.CPU.LogicalCPU()
}
