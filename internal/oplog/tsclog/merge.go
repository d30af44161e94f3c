package tsclog

import "container/heap"

// cursor walks one pending logger's sorted ops during a merge. end caps
// the walk for bounded merges; applied entries are ops[:next] when the
// merge finishes.
type cursor struct {
	logger *Logger
	next   int
	end    int
}

// opHeap is a min-heap of cursors keyed on each cursor's next timestamp.
// Ties compare equal and pop in arbitrary order; equal timestamps carry
// no ordering guarantee.
type opHeap []cursor

func (h opHeap) Len() int { return len(h) }

func (h opHeap) Less(i, j int) bool {
	return h[i].logger.ops[h[i].next].Tsc < h[j].logger.ops[h[j].next].Tsc
}

func (h opHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *opHeap) Push(x any) { *h = append(*h, x.(cursor)) }

func (h *opHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// mergeRun k-way merges the given loggers' entries with timestamp < max
// into one ascending sequence and runs them in that order. Each logger
// must already be sorted. Returns per-logger counts of applied entries so
// the caller can splice out what ran.
//
// The merged sequence is materialized before anything runs, exactly like
// a plain multi-way merge: running operations mid-merge would let an
// operation observe an object state that later, earlier-timestamped
// operations still change.
func mergeRun(loggers []*Logger, max uint64) []int {
	applied := make([]int, len(loggers))

	h := make(opHeap, 0, len(loggers))
	for i, l := range loggers {
		applied[i] = l.splitBefore(max)
		if applied[i] > 0 {
			h = append(h, cursor{logger: l, end: applied[i]})
		}
	}
	runMerged(h)
	return applied
}

// mergeRunAll merges and runs every entry of every logger, with no
// timestamp bound. A bound of ^uint64(0) is not equivalent: splitBefore
// is strict, so it would exclude an operation stamped with the maximum
// timestamp.
func mergeRunAll(loggers []*Logger) {
	h := make(opHeap, 0, len(loggers))
	for _, l := range loggers {
		if l.Len() > 0 {
			h = append(h, cursor{logger: l, end: l.Len()})
		}
	}
	runMerged(h)
}

// runMerged drains the cursor heap, materializing the merged sequence
// and then running it.
func runMerged(h opHeap) {
	if len(h) == 0 {
		return
	}
	heap.Init(&h)

	var merged []Op
	for len(h) > 0 {
		c := &h[0]
		merged = append(merged, c.logger.ops[c.next])
		c.next++
		if c.next == c.end {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}

	for i := 1; i < len(merged); i++ {
		if merged[i].Tsc < merged[i-1].Tsc {
			panic("oplog: heap merge produced out-of-order operations")
		}
	}

	for _, op := range merged {
		op.Fn()
	}
}
