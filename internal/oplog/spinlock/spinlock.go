// Package spinlock implements the mutual-exclusion primitive used by the
// OpLog engine.
//
// Both locks in the engine, the per-way lock and the per-object sync
// lock, guard sub-microsecond critical sections: tagging a cache way,
// appending one operation, moving a logger aside. Parking a goroutine for
// that is far more expensive than the section itself, so Lock spins
// instead of blocking. TryLock exists because the eviction protocol needs
// a non-blocking acquire to break its lock-order cycle; it is the only
// reason this package exists instead of sync.Mutex.
//
// The locks are not reentrant and have no owner tracking. Unlocking a lock
// you do not hold corrupts it; that is a caller bug, like sync.Mutex.
package spinlock

import "sync/atomic"

// Mutex is a test-and-set spinlock. The zero value is unlocked. A Mutex
// must not be copied after first use.
type Mutex struct {
	state atomic.Uint32
}

// TryLock attempts to acquire the lock without spinning and reports
// whether it succeeded.
//
//go:nosplit
func (l *Mutex) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Lock spins until the lock is acquired.
//
// The spin reads the word before attempting the CAS so that waiters sit in
// a shared-state cache line load instead of bouncing the line with failed
// CAS traffic. There is no backoff and no yield: hold times are bounded by
// the engine's critical sections, and yielding would let the scheduler
// stack milliseconds of latency onto a nanosecond-scale protocol.
//
//go:nosplit
func (l *Mutex) Lock() {
	for {
		if l.state.CompareAndSwap(0, 1) {
			return
		}
		for l.state.Load() != 0 {
		}
	}
}

// Unlock releases the lock. Must only be called by the holder.
//
//go:nosplit
func (l *Mutex) Unlock() {
	l.state.Store(0)
}
