package oplog

// Counter is a write-scalable counter: Add appends a deferred increment
// to the calling CPU's log, and Value synchronizes to fold every buffered
// increment into the total. Concurrent Adds on different CPUs do not
// contend.
//
// Use it when increments vastly outnumber reads. If reads are frequent a
// plain atomic counter is cheaper.
type Counter struct {
	obj *Object

	// total is written only by deferred increments and read by Value,
	// both under the object lock.
	total int64
}

// NewCounter creates a counter with value zero.
func NewCounter() *Counter {
	return &Counter{obj: NewObject()}
}

// Add defers adding delta to the counter.
func (c *Counter) Add(delta int64) {
	ll := c.obj.AcquireLogger()
	ll.Push(func() { c.total += delta })
	ll.Unlock()
}

// Value folds all buffered increments into the total and returns it. It
// includes every Add that completed before the call.
func (c *Counter) Value() int64 {
	g := c.obj.Synchronize()
	v := c.total
	g.Unlock()
	return v
}

// Close releases the counter's log slots, discarding buffered increments.
// The caller must guarantee no concurrent use.
func (c *Counter) Close() {
	c.obj.Close()
}
