// Package cpuset implements a fixed-size, lock-free bitmap of CPU ids.
//
// A logged object uses one Set to record which CPUs currently hold pending
// operations for it. Writers set their bit without any lock on the logger
// acquisition fast path; only the object's synchronize path, holding the
// object lock, ever clears bits. The bitmap therefore only needs lock-free
// test/set/clear of individual bits plus iteration, not atomic snapshots
// of the whole set.
//
// Iteration order is word order then bit order, but callers must not rely
// on it. The guarantee that matters: a bit that is set for the entire
// duration of a ForEach call is visited at least once. Bits that flip
// concurrently with the scan may or may not be visited.
package cpuset

import (
	"math/bits"
	"sync/atomic"

	"github.com/kolkov/oplog/internal/oplog/cpu"
)

const (
	bitsPerWord = 64
	numWords    = (cpu.MaxCPUs + bitsPerWord - 1) / bitsPerWord
)

// Set is a bitmap with one bit per logical CPU. The zero value is an empty
// set ready for use. A Set must not be copied while in use.
type Set struct {
	words [numWords]atomic.Uint64
}

// Test reports whether bit id is set. Plain atomic load; the result may be
// stale by the time the caller acts on it, which every caller in this
// module tolerates.
//
//go:nosplit
func (s *Set) Test(id int) bool {
	return s.words[id/bitsPerWord].Load()&(1<<(uint(id)%bitsPerWord)) != 0
}

// Atomically sets bit id. Safe to call without any lock.
//
//go:nosplit
func (s *Set) Set(id int) {
	w := &s.words[id/bitsPerWord]
	mask := uint64(1) << (uint(id) % bitsPerWord)
	for {
		old := w.Load()
		if old&mask != 0 {
			return
		}
		if w.CompareAndSwap(old, old|mask) {
			return
		}
	}
}

// Clear atomically clears bit id.
//
// In OpLog the caller must hold the owning object's sync lock: bits may be
// set lock-free by any CPU, but only the one synchronizing thread clears
// them. The method itself does not check that; it is a plain atomic
// and-not.
//
//go:nosplit
func (s *Set) Clear(id int) {
	w := &s.words[id/bitsPerWord]
	mask := uint64(1) << (uint(id) % bitsPerWord)
	for {
		old := w.Load()
		if old&mask == 0 {
			return
		}
		if w.CompareAndSwap(old, old&^mask) {
			return
		}
	}
}

// Empty reports whether no bit was observed set. Like ForEach this is not
// an atomic snapshot: bits set concurrently with the scan may be missed.
// The one-sided guarantee is the useful one: if Empty returns true, every
// bit that was set before the scan started had been cleared.
func (s *Set) Empty() bool {
	for i := range s.words {
		if s.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// ForEach calls fn for every bit observed set, in unspecified order.
//
// The scan reads each word once with an atomic load. Any bit set before
// ForEach was entered and not cleared during the call is visited; bits
// flipping mid-scan carry no guarantee either way.
func (s *Set) ForEach(fn func(id int)) {
	for i := range s.words {
		w := s.words[i].Load()
		for w != 0 {
			id := i*bitsPerWord + bits.TrailingZeros64(w)
			fn(id)
			w &= w - 1 // clear lowest set bit
		}
	}
}
