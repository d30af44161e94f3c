// Copyright 2025 The oplog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "runtime"

// goroutineID returns the current goroutine's id by parsing the first line
// of runtime.Stack output ("goroutine 123 [running]:").
//
// This is the universal last-resort CPU-id source: distinct goroutines get
// distinct ids, so hashing the id still spreads writers across logger
// slots even on platforms where the real CPU cannot be determined. It
// costs on the order of a microsecond, which is acceptable only because it
// is the fallback of the fallback.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the numeric goroutine id from stack trace bytes.
// Returns 0 if the buffer does not look like a stack trace header.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) {
		return 0
	}
	for i := 0; i < len(prefix); i++ {
		if buf[i] != prefix[i] {
			return 0
		}
	}

	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
