package oplog

import (
	"github.com/kolkov/oplog/internal/oplog/tsc"
	"github.com/kolkov/oplog/internal/oplog/tsclog"
)

// Now returns the current value of the timestamp source that orders
// logged operations. Use it to capture an operation's linearization point
// for [LockedLogger.PushTsc] and [LinearObject.WaitSynchronize].
func Now() uint64 {
	return tsc.Now()
}

// LinearObject is a logged object for operations whose linearization
// point is established by the caller, before the operation reaches a
// logger. It supports bounded synchronization: WaitSynchronize(T) applies
// exactly the operations ordered before T, waiting out writers that are
// between their linearization point and their Push.
//
// The write-side protocol, per operation:
//
//	id := oplog.CurrentCPU()
//	ts := oplog.Now()
//	obj.MarkStart(id, ts)
//	// ... perform the operation; ts is its linearization point ...
//	ll := obj.AcquireLogger()
//	ll.PushTsc(func() { /* apply */ }, ts)
//	ll.Unlock()
//	obj.MarkEnd(id, ts)
//
// The unbounded [Object.Synchronize] remains available and ignores
// markers.
//
// The zero value is not usable; construct with [NewLinearObject].
type LinearObject struct {
	Object
	lo *tsclog.LinearObject
}

// NewLinearObject creates an empty linearization-aware logged object.
func NewLinearObject() *LinearObject {
	lo := tsclog.NewLinearObject()
	return &LinearObject{Object: Object{o: &lo.Object}, lo: lo}
}

// MarkStart records that CPU id is starting an operation whose
// linearization timestamp is ts. Call before performing the operation.
func (o *LinearObject) MarkStart(id int, ts uint64) {
	o.lo.MarkStart(id, ts)
}

// MarkEnd records that CPU id has finished logging its operation. Call
// after the operation's Push; this releases waiting WaitSynchronize
// callers.
func (o *LinearObject) MarkEnd(id int, ts uint64) {
	o.lo.MarkEnd(id, ts)
}

// WaitSynchronize applies exactly the operations with timestamp below ts
// and returns the object lock held. It first waits for any in-flight
// operation that started before ts to finish logging, so the bounded
// result is complete; operations at or after ts stay buffered for a later
// synchronize.
func (o *LinearObject) WaitSynchronize(ts uint64) *SyncGuard {
	return &SyncGuard{g: o.lo.WaitSynchronize(ts)}
}
