// ordered.go implements the 'oplogstress ordered' command.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kolkov/oplog/oplog"
)

// orderedConfig holds the ordered workload parameters.
type orderedConfig struct {
	writers int // concurrent writer goroutines (also distinct marker ids)
	ops     int // operations per writer
	syncs   int // bounded wait-synchronizes issued during the run
}

// orderedCommand implements the 'oplogstress ordered' command.
//
// The workload drives a LinearObject with the full write-side protocol:
// each writer owns a marker id, brackets every operation with
// MarkStart/MarkEnd, and pushes with the timestamp captured at its
// linearization point. A synchronizer thread issues bounded
// WaitSynchronize calls at the current time throughout the run.
//
// Verified properties:
//   - every operation applies exactly once across all synchronizes
//   - within each synchronize, timestamps apply in ascending order
func orderedCommand(args []string) {
	config, err := parseOrderedArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := runOrderedStress(config, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
}

func parseOrderedArgs(args []string) (*orderedConfig, error) {
	fs := flag.NewFlagSet("ordered", flag.ContinueOnError)
	config := &orderedConfig{}
	fs.IntVar(&config.writers, "writers", 8, "concurrent writer goroutines")
	fs.IntVar(&config.ops, "ops", 50000, "operations per writer")
	fs.IntVar(&config.syncs, "syncs", 20, "bounded synchronizes during the run")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if config.writers < 1 || config.writers > oplog.MaxCPUs {
		return nil, fmt.Errorf("writers must be in [1, %d], got %d", oplog.MaxCPUs, config.writers)
	}
	if config.ops < 1 || config.syncs < 0 {
		return nil, fmt.Errorf("invalid workload: ops=%d syncs=%d", config.ops, config.syncs)
	}
	return config, nil
}

func runOrderedStress(config *orderedConfig, w io.Writer) error {
	obj := oplog.NewLinearObject()
	defer obj.Close()

	// applied and lastTs are only touched by deferred closures and the
	// post-synchronize checks, all under the object lock.
	var (
		applied int64
		lastTs  uint64
	)

	done := make(chan struct{})
	var writers errgroup.Group
	start := time.Now()
	for id := 0; id < config.writers; id++ {
		id := id
		writers.Go(func() error {
			for n := 0; n < config.ops; n++ {
				ts := oplog.Now()
				obj.MarkStart(id, ts)
				ll := obj.AcquireLogger()
				ll.PushTsc(func() {
					if ts < lastTs {
						panic(fmt.Sprintf("apply order violated: %d after %d", ts, lastTs))
					}
					lastTs = ts
					applied++
				}, ts)
				ll.Unlock()
				obj.MarkEnd(id, ts)
			}
			return nil
		})
	}
	go func() {
		_ = writers.Wait() // writers never return errors
		close(done)
	}()

	// Bounded synchronizes spread over the run. Each merge run is its own
	// ascending sequence; lastTs resets under the lock between runs.
	for i := 0; i < config.syncs; i++ {
		select {
		case <-done:
		case <-time.After(time.Millisecond):
		}
		g := obj.WaitSynchronize(oplog.Now())
		lastTs = 0
		g.Unlock()
	}
	<-done

	// Final full synchronize picks up everything still buffered.
	g := obj.Synchronize()
	total := applied
	lastTs = 0
	g.Unlock()
	elapsed := time.Since(start)

	want := int64(config.writers) * int64(config.ops)
	if total != want {
		return fmt.Errorf("lost operations: applied %d, want %d", total, want)
	}

	fmt.Fprintf(w, "ordered: %d ops by %d writers, %d bounded synchronizes in %v (%.0f ops/sec)\n",
		want, config.writers, config.syncs, elapsed.Round(time.Millisecond),
		float64(want)/elapsed.Seconds())
	return nil
}
