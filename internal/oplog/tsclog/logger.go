package tsclog

import (
	"fmt"
	"io"
	"sort"

	"github.com/kolkov/oplog/internal/oplog/tsc"
)

// Op is one deferred operation: a closure to run at apply time and the
// timestamp that orders it against operations from other CPUs. Ops are
// stored by value; the only per-push allocation is whatever the closure
// itself captures.
type Op struct {
	Tsc uint64
	Fn  func()
}

// Logger is the per-(object, CPU) buffer of pending operations. It is
// never locked internally: the logcache way lock covers every Push, and
// the object lock covers everything the merge does.
type Logger struct {
	ops []Op
}

// Push appends fn tagged with the current timestamp.
//
// The timestamp is read here, after the caller acquired the way lock in
// AcquireLogger, and is stored into the buffer before the way lock is
// released. The release's happens-before edge therefore pins the
// timestamp between lock acquisition and lock release: a later reader
// of this slot can never observe an operation whose timestamp predates
// its own acquisition of the same way.
func (l *Logger) Push(fn func()) {
	l.ops = append(l.ops, Op{Tsc: tsc.Now(), Fn: fn})
}

// PushTsc appends fn with a caller-supplied timestamp, for operations
// whose linearization point is determined outside the logger (the
// timestamp was read at the point the operation actually took effect).
func (l *Logger) PushTsc(fn func(), ts uint64) {
	l.ops = append(l.ops, Op{Tsc: ts, Fn: fn})
}

// Len returns the number of pending operations.
func (l *Logger) Len() int {
	return len(l.ops)
}

// Reset clears the logger for reuse, keeping the buffer.
func (l *Logger) Reset() {
	clear(l.ops)
	l.ops = l.ops[:0]
}

// take moves the logger's contents out, leaving it empty. The moved-out
// buffer keeps its backing array; the logger starts fresh, so a reused
// cache way regrows capacity on demand.
func (l *Logger) take() Logger {
	out := Logger{ops: l.ops}
	l.ops = nil
	return out
}

// sortOps stable-sorts by timestamp. Entries pushed by one CPU are
// usually already in order (the timestamp source is monotonic within a
// context), but PushTsc entries arrive in commit order, not timestamp
// order, so the sort is required before merging.
func (l *Logger) sortOps() {
	sort.SliceStable(l.ops, func(i, j int) bool {
		return l.ops[i].Tsc < l.ops[j].Tsc
	})
}

// splitBefore returns the boundary index such that every entry below it
// has timestamp < max. The logger must already be sorted.
func (l *Logger) splitBefore(max uint64) int {
	return sort.Search(len(l.ops), func(i int) bool {
		return l.ops[i].Tsc >= max
	})
}

// Dump writes one line per pending operation, in buffer order. Debugging
// aid; the closures themselves cannot be printed, so only timestamps and
// positions are shown.
func (l *Logger) Dump(w io.Writer) {
	for i, op := range l.ops {
		fmt.Fprintf(w, "op[%d] tsc=%d\n", i, op.Tsc)
	}
}
