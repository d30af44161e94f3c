package logcache

import (
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/oplog/internal/oplog/cpu"
	"github.com/kolkov/oplog/internal/oplog/spinlock"
)

// NumWays is the number of slots in each CPU's direct-mapped logger
// cache. Shared by all objects of one logger type; never resized.
const NumWays = 4096

// way is one slot of the per-CPU cache: the logger for whichever object
// currently owns the slot, the slot lock, and an atomic tag naming that
// object.
//
// The tag may be read without the lock as a fast-path hint, but every
// decision is re-checked after locking; the only authoritative read is a
// locked one.
type way[L any] struct {
	obj    atomic.Pointer[Object[L]]
	mu     spinlock.Mutex
	logger L
}

// cpuCache is one CPU's slice of the cache. It is only ever indexed by
// hashing an object's identity; there is no iteration order.
type cpuCache[L any] struct {
	ways [NumWays]way[L]
}

// wayFor returns the way an object maps to. Direct-mapped: one candidate
// slot, collisions evict.
func (cc *cpuCache[L]) wayFor(o *Object[L]) *way[L] {
	return &cc.ways[hashObject(uintptr(unsafe.Pointer(o)))]
}

// hashObject mixes an object address into a way index. Addresses are
// poorly distributed in their low bits (alignment) and high bits (heap
// layout), so the bits are folded down before the modulo; this is the
// re-hashing function from Java's HashMap.
func hashObject(p uintptr) int {
	x := uint64(p)
	x ^= (x >> 32) ^ (x >> 20) ^ (x >> 12)
	x ^= (x >> 7) ^ (x >> 4)
	return int(x % NumWays)
}

// Cache is the process-wide logger cache for one logger type L.
//
// Create exactly one Cache per logger type with NewCache, typically as a
// package-level variable next to the concrete logger, and pass it to
// Object.Init. Per-CPU way arrays are allocated lazily the first time a
// CPU touches the cache, so memory scales with CPUs actually used rather
// than with the MaxCPUs bound.
type Cache[L any] struct {
	percpu [cpu.MaxCPUs]atomic.Pointer[cpuCache[L]]
}

// NewCache creates an empty cache. All ways start free.
func NewCache[L any]() *Cache[L] {
	return &Cache[L]{}
}

// forCPU returns CPU id's way array, allocating it on first use. Lost CAS
// races leak one short-lived allocation to the GC, never a way.
func (c *Cache[L]) forCPU(id int) *cpuCache[L] {
	if cc := c.percpu[id].Load(); cc != nil {
		return cc
	}
	cc := new(cpuCache[L])
	if c.percpu[id].CompareAndSwap(nil, cc) {
		return cc
	}
	return c.percpu[id].Load()
}
