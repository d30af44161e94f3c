// Package logcache implements the core OpLog engine: a fixed-size,
// per-CPU, direct-mapped cache of operation loggers and the acquire /
// synchronize protocol that coordinates writers against readers.
//
// # Why
//
// An object that is written far more often than it is read should not
// make every writer serialize on one lock. OpLog defers writes instead:
// each CPU appends operations to its own logger for the object, and only
// when a reader needs a consistent view are all per-CPU loggers drained
// and their operations applied. Writers on different CPUs share nothing.
//
// Keeping a logger per (object, CPU) pair for every object would be
// memory-hostile, so loggers live in a fixed 4096-way direct-mapped cache
// per CPU, shared by all objects of one logger type. Only recently
// written objects occupy cache slots; a hash collision evicts the
// previous occupant by flushing its logger first.
//
// # Structure
//
// Cache[L] is the per-type slot cache: one lazily allocated array of 4096
// ways per CPU. Each way carries an atomic tag naming the object it is
// bound to, a way lock, and an embedded logger of type L.
//
// Object[L] is the state embedded in every logged object: a CPU-set of
// "this CPU has pending operations" bits and the object lock. The
// concrete logger semantics are supplied through the Hooks[L] policy:
// FlushLogger drains one logger, FlushFinish completes a full drain.
//
// # Protocol sketch
//
// AcquireLogger hashes the object's identity to a way on the calling CPU
// and locks it. If the way is bound to a different object, that object is
// evicted: its logger is flushed and its CPU bit cleared, but only after
// a non-blocking acquire of its object lock succeeds. If the try fails
// the whole attempt backs out and retries, which is what breaks the
// deadlock cycle against a concurrent Synchronize holding that object
// lock and wanting this way lock.
//
// Synchronize takes the object lock and repeatedly scans the CPU-set,
// flushing the logger behind every set bit, until a full pass finds the
// set empty. Bits can be set concurrently by writers, so the guarantee is
// one-sided: everything logged before the empty observation is included;
// operations racing with the scan may or may not be. The object lock is
// returned still held so the caller can read the synchronized state.
package logcache
