// Package seqcount implements a single-writer sequence counter for
// torn-read-safe publication of small values.
//
// The linearization-aware logger publishes a per-CPU timestamp pair that
// one CPU writes and any CPU may read. A lock would put the writer, who
// is on the operation hot path, behind readers; a sequence counter lets
// the writer proceed unconditionally and makes the reader detect and
// retry torn reads instead.
//
// Protocol: the writer brackets its update with WriteBegin/WriteEnd,
// leaving the counter odd while a write is in progress. A reader samples
// the counter, reads the value, and accepts it only if the counter was
// even and unchanged across the read.
//
// Single writer only. Two concurrent writers both flip the counter and
// the odd/even discipline collapses; in OpLog the writer is always the
// CPU that owns the slot, which gives that for free.
package seqcount

import "sync/atomic"

// Seq is a sequence counter. The zero value is ready for use with no write
// in progress.
type Seq struct {
	seq atomic.Uint32
}

// WriteBegin marks the start of a write section. The counter becomes odd,
// invalidating any concurrently started read.
//
//go:nosplit
func (s *Seq) WriteBegin() {
	s.seq.Add(1)
}

// WriteEnd marks the end of a write section. The counter becomes even
// again with a new value, so readers that overlapped the write retry.
//
//go:nosplit
func (s *Seq) WriteEnd() {
	s.seq.Add(1)
}

// ReadBegin samples the counter before a read section.
//
//go:nosplit
func (s *Seq) ReadBegin() uint32 {
	return s.seq.Load()
}

// ReadRetry reports whether a read section that started at sample start
// must be retried, either because a write was in progress (odd counter) or
// because a write completed during the read (counter changed).
//
//go:nosplit
func (s *Seq) ReadRetry(start uint32) bool {
	return start&1 != 0 || s.seq.Load() != start
}
