// Package oplog provides the public API for operation-logged objects.
//
// See doc.go for detailed documentation and examples.
package oplog

import (
	"io"

	"github.com/kolkov/oplog/internal/oplog/cpu"
	"github.com/kolkov/oplog/internal/oplog/logcache"
	"github.com/kolkov/oplog/internal/oplog/tsclog"
)

// MaxCPUs is the number of per-CPU logger slots. CPU identifiers returned
// by [CurrentCPU] and accepted by [LinearObject.MarkStart] are always in
// [0, MaxCPUs).
const MaxCPUs = cpu.MaxCPUs

// NumWays is the number of logger slots in each CPU's direct-mapped
// cache. Objects sharing a way evict each other's loggers; correctness is
// unaffected, only write-side scalability.
const NumWays = logcache.NumWays

// CurrentCPU returns the identifier of the CPU the calling goroutine is
// running on, in [0, MaxCPUs).
//
// The value is advisory: the goroutine may migrate immediately after the
// call. The log protocol stays correct under migration; only write-side
// scalability degrades when many goroutines land on one identifier.
func CurrentCPU() int {
	return cpu.Current()
}

// Object is a logged object whose buffered operations apply in globally
// ascending timestamp order at the next [Object.Synchronize].
//
// The zero value is not usable; construct with [NewObject].
type Object struct {
	o *tsclog.Object
}

// NewObject creates an empty timestamp-ordered logged object.
func NewObject() *Object {
	return &Object{o: tsclog.NewObject()}
}

// AcquireLogger returns the calling CPU's logger for this object, locked.
//
// Push one or more operations through the returned handle, then Unlock.
// The handle must not be retained after Unlock:
//
//	ll := obj.AcquireLogger()
//	ll.Push(func() { /* apply the update */ })
//	ll.Unlock()
func (o *Object) AcquireLogger() LockedLogger {
	return LockedLogger{ll: o.o.AcquireLogger()}
}

// Synchronize applies every buffered operation in ascending timestamp
// order and returns the object lock held, so the caller can observe the
// synchronized state before new drains begin. Release it with
// [SyncGuard.Unlock].
//
// Synchronize observes every operation whose Push completed before the
// call; operations racing with it may or may not be included.
func (o *Object) Synchronize() *SyncGuard {
	return &SyncGuard{g: o.o.Synchronize()}
}

// DumpPending writes one line per buffered operation to w. Debugging aid;
// call only while the object is quiescent.
func (o *Object) DumpPending(w io.Writer) {
	o.o.DumpPending(w)
}

// Close tears the object down, discarding all buffered operations and
// releasing its cache slots. The caller must guarantee no concurrent use;
// the object must not be used after Close.
func (o *Object) Close() {
	o.o.Close()
}

// LockedLogger is a locked per-CPU logger handle returned by
// AcquireLogger. It is valid until Unlock.
type LockedLogger struct {
	ll logcache.LockedLogger[tsclog.Logger]
}

// Push appends fn to the log, tagged with the current timestamp. fn runs
// later, during a synchronize, under the object lock.
func (ll LockedLogger) Push(fn func()) {
	ll.ll.Logger().Push(fn)
}

// PushTsc appends fn with a caller-supplied timestamp, for operations
// whose linearization point was established outside the logger. Use with
// [LinearObject] and timestamps from [Now].
func (ll LockedLogger) PushTsc(fn func(), ts uint64) {
	ll.ll.Logger().PushTsc(fn, ts)
}

// CPU returns the CPU identifier whose logger this handle holds.
func (ll LockedLogger) CPU() int {
	return ll.ll.CPU()
}

// Unlock releases the logger.
func (ll LockedLogger) Unlock() {
	ll.ll.Unlock()
}

// SyncGuard holds the object lock after a synchronize. Unlock releases
// it; a guard must be unlocked exactly once.
type SyncGuard struct {
	g *logcache.SyncGuard
}

// Unlock releases the object.
func (g *SyncGuard) Unlock() {
	g.g.Unlock()
}
