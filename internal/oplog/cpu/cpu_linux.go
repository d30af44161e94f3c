// Copyright 2025 The oplog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package cpu

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// currentCPU returns the CPU the calling thread is running on via
// getcpu(2). x/sys/unix exports only the syscall number, so the call is
// made raw; getcpu never blocks, which makes RawSyscall safe here. The
// third argument (the defunct cache pointer) is always NULL.
//
// Returns -1 if the syscall fails, in which case the caller falls back
// to the goroutine-id hash.
func currentCPU() int {
	var cpu, node uint32
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return -1
	}
	return int(cpu)
}
