// Package oplog provides operation logs for scaling write-heavy shared objects.
//
// An operation log decouples writes from the shared object they target: instead
// of updating the object under a lock, each writer appends a closure describing
// the update to a per-CPU log. The logs are drained, merged in timestamp order,
// and applied only when a reader needs to observe up-to-date state. Writers on
// different CPUs therefore never contend with each other; the cost of ordering
// is paid once per read-side synchronization instead of once per write.
//
// # Quick Start
//
//	obj := oplog.NewObject()
//
//	// Write side: no cross-CPU contention.
//	ll := obj.AcquireLogger()
//	ll.Push(func() { state.apply(update) })
//	ll.Unlock()
//
//	// Read side: drain, merge, apply, observe.
//	g := obj.Synchronize()
//	result := state.read()
//	g.Unlock()
//
// For plain counting, [Counter] packages the same pattern behind Add/Value.
//
// # API Overview
//
// The package provides:
//   - Timestamp-ordered logged objects: [NewObject], [Object.AcquireLogger],
//     [Object.Synchronize]
//   - Linearization-aware objects for externally timestamped operations:
//     [NewLinearObject], [LinearObject.MarkStart], [LinearObject.MarkEnd],
//     [LinearObject.WaitSynchronize]
//   - Write-scalable counting: [NewCounter], [Counter.Add], [Counter.Value]
//   - CPU identity: [CurrentCPU], [MaxCPUs]
//   - Version information: [GetInfo], [Version]
//
// # How It Works
//
// Every (object, CPU) pair owns a logger, held in a per-CPU direct-mapped
// cache of 4096 ways so that thousands of logged objects share a bounded
// number of slots. AcquireLogger locks the calling CPU's way; if the way is
// bound to a different object, that object's logger is evicted first. Each
// pushed operation carries a timestamp read while the way lock is held, which
// is what lets Synchronize establish a single global order afterwards.
//
// Synchronize locks the object, repeatedly flushes the loggers of every CPU
// the object has touched until a full pass finds them all empty, sorts each
// flushed log, k-way merges them by timestamp, and runs the merged sequence.
// The returned guard keeps the object locked so the caller can read the
// synchronized state before new drains begin.
//
// The guarantee is one-sided, as with seqlocks: Synchronize observes every
// operation whose Push completed before Synchronize was called, and may
// additionally observe operations that raced with it. [LinearObject]
// strengthens this for operations whose linearization point is chosen by the
// caller: writers bracket each operation with MarkStart/MarkEnd, and
// WaitSynchronize(T) waits out any in-flight operation that may order before
// T, applies exactly the operations with timestamp below T, and leaves the
// rest buffered.
//
// # Performance Characteristics
//
//	Write path:   one spinlock on a per-CPU way, one append; no allocation
//	              beyond the closure's captures
//	Read path:    O(n log k) for n buffered operations across k loggers
//	Memory:       buffered closures live until the next synchronize
//	Scalability:  writers scale with CPU count; tested with hundreds of
//	              concurrent goroutines
//
// # Compatibility
//
//   - Operating systems: Linux (getcpu fast path), macOS, Windows
//   - Go version: 1.24 or later
//   - CGO requirement: none
//   - Architecture: amd64, arm64
//
// # Examples
//
// See package-level examples in the documentation:
//   - [Example] - basic push/synchronize usage
//   - [Example_counter] - write-scalable counter
//
// # Links
//
// Project repository:
// https://github.com/kolkov/oplog
//
// Documentation:
// https://pkg.go.dev/github.com/kolkov/oplog/oplog
//
// The OpLog design paper ("OpLog: a library for scaling update-heavy data
// structures", MIT CSAIL TR 2014-019):
// https://dspace.mit.edu/handle/1721.1/89653
package oplog
