package logcache

import (
	"github.com/kolkov/oplog/internal/oplog/cpu"
	"github.com/kolkov/oplog/internal/oplog/cpuset"
	"github.com/kolkov/oplog/internal/oplog/spinlock"
)

// Hooks is the policy a concrete logged object supplies to the engine.
// Both hooks are invoked with locks held that exclude concurrent flushes
// of the same logger and concurrent AcquireLogger on its way.
type Hooks[L any] interface {
	// FlushLogger drains one per-CPU logger and resets it to empty. It may
	// apply the logger's operations immediately, or move them aside when a
	// consistent cross-CPU order is needed first (the timestamp-ordered
	// logger does the latter: applying one CPU's operations early would
	// interleave them wrongly with still-cached operations on other CPUs).
	// Called during Synchronize under the object lock, and during eviction
	// under the evicted object's lock.
	FlushLogger(l *L)

	// FlushFinish completes a synchronization after a consistent set of
	// loggers has been flushed. Called once per Synchronize, under the
	// object lock.
	FlushFinish()
}

// Object is the engine state embedded in every logged object: the CPU-set
// of pending loggers and the object lock. Embed one per logged object and
// call Init before use.
//
// An Object's identity is its address; the cache hashes it to pick ways.
// Objects must therefore not be moved or copied after Init.
type Object[L any] struct {
	cache *Cache[L]
	hooks Hooks[L]

	// cpus has bit c set while a live, unflushed logger for this object
	// occupies CPU c's cache slot. Bits are set lock-free by writers;
	// cleared only under mu by whoever holds it (Synchronize, or an
	// evictor that won TryLock).
	cpus cpuset.Set

	// mu serializes logger flushes and protects clearing cpus. Held
	// across an entire drain and merge.
	mu spinlock.Mutex
}

// Init binds the object to its logger cache and policy hooks. Must be
// called exactly once, before any AcquireLogger or Synchronize.
func (o *Object[L]) Init(c *Cache[L], h Hooks[L]) {
	if o.cache != nil {
		panic("oplog: Object initialized twice")
	}
	if c == nil || h == nil {
		panic("oplog: Object.Init with nil cache or hooks")
	}
	o.cache = c
	o.hooks = h
}

// LockedLogger is a logger handle that keeps the underlying way locked.
// Append operations through Logger, then Unlock. Holding a LockedLogger
// excludes any concurrent drain or eviction of that logger. Do not retain
// the *L past Unlock.
type LockedLogger[L any] struct {
	w  *way[L]
	id int
}

// Logger returns the locked per-CPU logger.
func (ll LockedLogger[L]) Logger() *L {
	return &ll.w.logger
}

// CPU returns the logical CPU whose logger is held. This is the id the
// logger was cached under, which is what linearization markers must key
// on, even if the goroutine has since migrated.
func (ll LockedLogger[L]) CPU() int {
	return ll.id
}

// Unlock releases the way lock. The handle must not be used afterwards.
func (ll LockedLogger[L]) Unlock() {
	ll.w.mu.Unlock()
}

// AcquireLogger returns a locked handle to the calling CPU's cached
// logger for this object, evicting a colliding object's logger if the way
// is taken.
//
// Eviction must take the victim's object lock to clear its CPU bit, but a
// blocking acquire there can deadlock: the victim may be mid-Synchronize,
// holding its object lock and waiting for this very way lock. So the
// acquire is a TryLock, and on failure the whole attempt, way lock
// included, is backed out and retried from scratch.
func (o *Object[L]) AcquireLogger() LockedLogger[L] {
	return o.acquireOn(cpu.Current())
}

// acquireOn is AcquireLogger for an explicit CPU id. The id normally
// comes from cpu.Current; tests pin it to make collisions deterministic.
func (o *Object[L]) acquireOn(id int) LockedLogger[L] {
	w := o.cache.forCPU(id).wayFor(o)

	for {
		w.mu.Lock()
		cur := w.obj.Load()
		if cur == o {
			break
		}
		if cur != nil {
			if !cur.mu.TryLock() {
				// Would deadlock with cur's Synchronize. Back out.
				w.mu.Unlock()
				continue
			}
			cur.hooks.FlushLogger(&w.logger)
			cur.cpus.Clear(id)
			cur.mu.Unlock()
		}
		w.obj.Store(o)
		break
	}

	// Benign race: the bit may already be set, and Synchronize may clear
	// it concurrently, but only before this way was flushed, and we hold
	// the way lock, so anything appended through this handle is covered
	// by a later pass or a later synchronize.
	if !o.cpus.Test(id) {
		o.cpus.Set(id)
	}
	return LockedLogger[L]{w: w, id: id}
}

// SyncGuard is the object lock, returned held by Synchronize so the
// caller can read the synchronized state for as long as it keeps it.
type SyncGuard struct {
	mu *spinlock.Mutex
}

// Unlock releases the object lock.
func (g *SyncGuard) Unlock() {
	mu := g.mu
	if mu == nil {
		panic("oplog: SyncGuard unlocked twice")
	}
	g.mu = nil
	mu.Unlock()
}

// Lock acquires the object lock without draining anything and returns it
// held. Most callers want Synchronize; this exists for synchronization
// variants that need work between taking the lock and draining, like the
// linearization-aware wait.
func (o *Object[L]) Lock() *SyncGuard {
	o.mu.Lock()
	return &SyncGuard{mu: &o.mu}
}

// Synchronize drains every per-CPU logger for this object, invokes the
// FlushFinish hook, and returns the object lock still held.
//
// Operations logged before Synchronize observed an empty CPU-set are
// guaranteed included. Operations logged concurrently with the drain may
// be included or left for a later synchronize, with no guarantee either
// way.
func (o *Object[L]) Synchronize() *SyncGuard {
	g := o.Lock()
	o.Drain()
	o.hooks.FlushFinish()
	return g
}

// Drain flushes loggers until a full pass over the CPU-set finds it
// empty. The caller must hold the object lock.
//
// The repeat is required because writers set bits mid-scan. The
// correctness argument is one-sided and hinges on who clears bits: only
// the object-lock holder does, so once one pass observes every bit zero,
// every operation logged before that observation has been flushed, no
// matter what happened between observing bit 0 and bit n.
func (o *Object[L]) Drain() {
	for {
		any := false
		o.cpus.ForEach(func(id int) {
			w := o.cache.forCPU(id).wayFor(o)
			w.mu.Lock()
			if w.obj.Load() != o {
				w.mu.Unlock()
				// The bit promised a live logger; eviction without
				// clearing it is impossible while we hold the object
				// lock. The engine's invariant is broken.
				panic("oplog: CPU bit set but way bound to another object")
			}
			o.hooks.FlushLogger(&w.logger)
			o.cpus.Clear(id)
			w.mu.Unlock()
			any = true
		})
		if !any {
			return
		}
	}
}

// Close tears the object down: every cached logger is reset through the
// reset callback (contents discarded, not applied) and its way unbound.
// After Close returns no way references the object, so the object may be
// dropped.
//
// The caller must guarantee that no writer uses the object concurrently
// with or after Close; a way found still bound to the object after the
// drain is a fatal invariant violation.
func (o *Object[L]) Close(reset func(l *L)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Walking the CPU-set is not enough here: a synchronize clears bits
	// but leaves loggers cached, so a way can be bound with its bit
	// clear. Sweep every CPU's candidate way instead. The hash is
	// per-object, so on each CPU only one way can be bound to it.
	for id := 0; id < cpu.MaxCPUs; id++ {
		cc := o.cache.percpu[id].Load()
		if cc == nil {
			continue
		}
		w := cc.wayFor(o)
		w.mu.Lock()
		if w.obj.Load() == o {
			reset(&w.logger)
			w.obj.Store(nil)
			o.cpus.Clear(id)
		}
		w.mu.Unlock()
	}

	// With no concurrent writers, every set bit had a bound way and was
	// cleared above.
	if !o.cpus.Empty() {
		panic("oplog: way still bound to object after teardown")
	}
}
