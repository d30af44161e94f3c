// Package tsclog implements the timestamp-ordered logger family on top of
// the logcache engine.
//
// The plain engine says nothing about the order operations apply in; it
// only brings them all to one place. For objects where operations do not
// commute (directory metadata, anything with last-writer-wins fields)
// the apply order must approximate the real interleaving of writers. This
// package imposes that order with timestamps.
//
// Logger is an append-only buffer of (timestamp, closure) entries. Push
// tags entries with the monotonic timestamp source; PushTsc lets the
// caller supply the timestamp when the operation's true linearization
// point is known externally, like a filesystem commit point.
//
// Object is the timestamp-ordered logged object. Draining moves each
// CPU's logger into a pending set untouched; the finish step sorts each
// pending logger and k-way heap-merges them into one globally ascending
// sequence before running anything. Ties between equal timestamps break
// arbitrarily.
//
// LinearObject adds the wait protocol needed to bound a merge by a
// timestamp T. A writer brackets every operation with MarkStart/MarkEnd;
// WaitSynchronize(T) first waits out any in-flight operation whose start
// precedes T (its timestamp is not recorded yet, so draining without
// waiting could miss an operation logically before T), then drains and
// merges only entries with timestamp < T, leaving the rest pending for a
// later synchronize.
package tsclog
