package tsclog

import (
	"io"

	"github.com/kolkov/oplog/internal/oplog/logcache"
)

// cache is the process-wide logger cache for timestamp loggers. One per
// logger type, shared by every Object and LinearObject in the process.
var cache = logcache.NewCache[Logger]()

// Object is a logged object whose operations apply in global ascending
// timestamp order.
//
// Draining never applies anything: each CPU's logger is moved wholesale
// into the pending set, because its operations may interleave with
// still-cached operations on other CPUs and can only run once every
// logger is in hand. The finish step then sorts and k-way merges the
// pending set and runs the merged sequence.
//
// The pending set also absorbs evicted loggers, so an ordered object
// keeps every operation buffered until somebody synchronizes. That is
// inherent to ordered logging, not a leak: the order cannot be decided
// before a synchronization point.
type Object struct {
	base logcache.Object[Logger]

	// pending holds loggers moved out of the cache. Protected by the
	// object lock: every append happens inside a flush hook, and hooks
	// run with that lock held (Synchronize holds it; an evictor holds it
	// via the TryLock in the eviction protocol).
	pending []Logger
}

// NewObject creates an empty timestamp-ordered logged object.
func NewObject() *Object {
	o := &Object{}
	o.base.Init(cache, o)
	return o
}

// init wires an embedding variant (LinearObject) to the engine with the
// variant's own hook set.
func (o *Object) initAs(h logcache.Hooks[Logger]) {
	o.base.Init(cache, h)
}

// AcquireLogger returns the calling CPU's locked timestamp logger for
// this object. Push operations through it, then Unlock.
func (o *Object) AcquireLogger() logcache.LockedLogger[Logger] {
	return o.base.AcquireLogger()
}

// Synchronize applies all pending operations in ascending timestamp order
// and returns the object lock held, so the caller can observe the
// synchronized state before releasing it.
func (o *Object) Synchronize() *logcache.SyncGuard {
	return o.base.Synchronize()
}

// FlushLogger moves one CPU's logger into the pending set. Engine hook;
// called with locks held, never call directly.
func (o *Object) FlushLogger(l *Logger) {
	if l.Len() == 0 {
		return
	}
	o.pending = append(o.pending, l.take())
}

// FlushFinish sorts every pending logger, heap-merges them into one
// ascending sequence, runs it, and clears the pending set. Engine hook;
// called once per synchronize under the object lock.
func (o *Object) FlushFinish() {
	if len(o.pending) == 0 {
		return
	}
	loggers := make([]*Logger, 0, len(o.pending))
	for i := range o.pending {
		o.pending[i].sortOps()
		loggers = append(loggers, &o.pending[i])
	}
	mergeRunAll(loggers)

	for i := range o.pending {
		o.pending[i].Reset()
	}
	o.pending = o.pending[:0]
}

// noBound sorts at or after every timestamp. Note a bounded merge at
// noBound is still strict: it excludes an operation stamped with the
// maximum value itself, which is why the full flush uses mergeRunAll.
const noBound = ^uint64(0)

// DumpPending writes the timestamps of every pending operation, one
// logger at a time. Call with the object synchronized or otherwise
// quiescent; debugging aid only.
func (o *Object) DumpPending(w io.Writer) {
	for i := range o.pending {
		o.pending[i].Dump(w)
	}
}

// Close tears the object down, discarding all buffered operations and
// unbinding its cache ways. The caller must guarantee no concurrent use.
// The object must not be used after Close.
func (o *Object) Close() {
	o.base.Close(func(l *Logger) { l.Reset() })
	for i := range o.pending {
		o.pending[i].Reset()
	}
	o.pending = nil
}
