package tsclog

import (
	"sync/atomic"

	"github.com/kolkov/oplog/internal/oplog/cpu"
	"github.com/kolkov/oplog/internal/oplog/logcache"
	"github.com/kolkov/oplog/internal/oplog/seqcount"
)

// marker is one seqcount-guarded per-CPU timestamp. The value word is
// atomic so readers on other CPUs never tear it; the counter is what
// makes the (start, end) pair readable as a unit and what the wait
// protocol observes to detect "this CPU finished logging".
type marker struct {
	seq seqcount.Seq
	tsc atomic.Uint64
}

func (m *marker) store(ts uint64) {
	m.seq.WriteBegin()
	m.tsc.Store(ts)
	m.seq.WriteEnd()
}

func (m *marker) load() uint64 {
	for {
		s := m.seq.ReadBegin()
		v := m.tsc.Load()
		if !m.seq.ReadRetry(s) {
			return v
		}
	}
}

// LinearObject is a timestamp-ordered logged object that can bound a
// synchronize by timestamp without missing in-flight operations.
//
// The ordered Object alone cannot answer "apply everything up to T":
// a writer may have passed its linearization point before T but not yet
// recorded its timestamp in any logger, so a drain at that moment would
// silently order the operation after T. LinearObject closes that window
// with per-CPU (start, end) markers: writers call MarkStart before
// performing a logged operation and MarkEnd after the operation is
// logged, and WaitSynchronize(T) spins out any CPU whose markers admit an
// unlogged operation starting before T.
//
// The full Synchronize of the embedded Object remains available and
// applies everything regardless of markers.
type LinearObject struct {
	Object

	start [cpu.MaxCPUs]marker
	end   [cpu.MaxCPUs]marker
}

// NewLinearObject creates an empty linearization-aware logged object.
func NewLinearObject() *LinearObject {
	lo := &LinearObject{}
	lo.initAs(&lo.Object)
	return lo
}

// MarkStart records that CPU id is beginning an operation whose
// linearization timestamp is ts. Call before performing the operation.
func (lo *LinearObject) MarkStart(id int, ts uint64) {
	lo.start[id].store(ts)
}

// MarkEnd records that CPU id has finished logging its operation. Call
// after the operation has been pushed; this is what releases a waiting
// WaitSynchronize.
func (lo *LinearObject) MarkEnd(id int, ts uint64) {
	lo.end[id].store(ts)
}

// WaitSynchronize applies exactly the operations with timestamp < waitTsc
// and returns the object lock held. Operations at or after waitTsc stay
// buffered and apply on a later synchronize.
//
// For each CPU, end < start means an operation is in flight; if that
// operation's start also precedes waitTsc it could linearize before the
// bound with its timestamp still unrecorded, so the drain must wait for
// the CPU's MarkEnd. CPUs whose in-flight operation started at or after
// waitTsc cannot affect the bounded merge and are not waited for.
func (lo *LinearObject) WaitSynchronize(waitTsc uint64) *logcache.SyncGuard {
	g := lo.base.Lock()

	for id := 0; id < cpu.MaxCPUs; id++ {
		for {
			start := lo.start[id].load()
			end := lo.end[id].load()
			if end >= start || start >= waitTsc {
				break
			}
			// In-flight operation that may precede waitTsc; spin until
			// its MarkEnd lands. Sub-microsecond by contract: the writer
			// is between its linearization point and one Push.
		}
	}

	lo.base.Drain()
	lo.flushFinishBefore(waitTsc)
	return g
}

// flushFinishBefore merges and applies pending operations with timestamp
// < max, splicing the remainder back into their pending loggers for a
// future synchronize. Runs under the object lock.
func (lo *LinearObject) flushFinishBefore(max uint64) {
	if len(lo.pending) == 0 {
		return
	}
	loggers := make([]*Logger, 0, len(lo.pending))
	for i := range lo.pending {
		lo.pending[i].sortOps()
		loggers = append(loggers, &lo.pending[i])
	}
	applied := mergeRun(loggers, max)

	// Erase the applied prefix of each logger; drop loggers that went
	// empty. Survivors keep ops >= max exactly once.
	kept := lo.pending[:0]
	for i := range lo.pending {
		l := &lo.pending[i]
		if applied[i] > 0 {
			n := copy(l.ops, l.ops[applied[i]:])
			clear(l.ops[n:])
			l.ops = l.ops[:n]
		}
		if l.Len() > 0 {
			kept = append(kept, *l)
		}
	}
	for i := len(kept); i < len(lo.pending); i++ {
		lo.pending[i] = Logger{}
	}
	lo.pending = kept
}
