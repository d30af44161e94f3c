// Package cpu identifies the logical CPU an execution context is running on.
//
// OpLog partitions its write-side state per CPU: every object keeps one
// operation logger per (object, CPU) pair, so that writers on different
// cores never touch the same cache lines. That only works if a writer can
// cheaply ask "which CPU am I on right now?". This package answers that
// question.
//
// # Accuracy contract
//
// The answer is a hint, not a guarantee. Go provides no way to pin a
// goroutine to a core, so by the time the caller uses the returned id the
// scheduler may have migrated it. That is acceptable for OpLog: a stale id
// only means an operation lands in a neighbouring CPU's logger, costing one
// cross-core cache miss. Correctness never depends on the id being current,
// only on it being stable enough to spread load and bounded by MaxCPUs.
//
// # Implementation selection
//
// Three sources, best first, selected by build tags:
//
//   - Linux: a raw getcpu(2) syscall issued through
//     golang.org/x/sys/unix.SYS_GETCPU (no wrapper exists in x/sys).
//   - Other OSes on x86: the APIC id reported by CPUID, via
//     github.com/klauspost/cpuid/v2.
//   - Everything else: a stable hash of the goroutine id parsed from
//     runtime.Stack output. Slow, but it still spreads goroutines across
//     logger slots evenly.
//
// All sources clamp their result to [0, MaxCPUs).
package cpu
