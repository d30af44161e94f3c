// counter.go implements the 'oplogstress counter' command.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kolkov/oplog/oplog"
)

// counterConfig holds the counter workload parameters.
type counterConfig struct {
	writers int // concurrent writer goroutines
	adds    int // adds per writer
	readers int // concurrent polling readers
}

// counterCommand implements the 'oplogstress counter' command.
//
// The workload hammers a single oplog.Counter from many goroutines while
// readers poll Value concurrently, then verifies the final total. A lost
// or double-applied add shows up as a wrong total; a reader observing a
// value above the total or below a previously observed value is a
// snapshot violation.
func counterCommand(args []string) {
	config, err := parseCounterArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := runCounterStress(config, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
}

func parseCounterArgs(args []string) (*counterConfig, error) {
	fs := flag.NewFlagSet("counter", flag.ContinueOnError)
	config := &counterConfig{}
	fs.IntVar(&config.writers, "writers", 16, "concurrent writer goroutines")
	fs.IntVar(&config.adds, "adds", 100000, "adds per writer")
	fs.IntVar(&config.readers, "readers", 2, "concurrent polling readers")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if config.writers < 1 || config.adds < 1 || config.readers < 0 {
		return nil, fmt.Errorf("invalid workload: writers=%d adds=%d readers=%d",
			config.writers, config.adds, config.readers)
	}
	return config, nil
}

func runCounterStress(config *counterConfig, w io.Writer) error {
	c := oplog.NewCounter()
	defer c.Close()

	want := int64(config.writers) * int64(config.adds)
	var reads atomic.Int64
	stop := make(chan struct{})

	var g errgroup.Group
	for r := 0; r < config.readers; r++ {
		g.Go(func() error {
			var last int64
			for {
				select {
				case <-stop:
					return nil
				default:
				}
				v := c.Value()
				reads.Add(1)
				if v < last {
					return fmt.Errorf("counter went backwards: %d after %d", v, last)
				}
				if v > want {
					return fmt.Errorf("counter overshot: %d > %d", v, want)
				}
				last = v
			}
		})
	}

	start := time.Now()
	var writers errgroup.Group
	for i := 0; i < config.writers; i++ {
		writers.Go(func() error {
			for n := 0; n < config.adds; n++ {
				c.Add(1)
			}
			return nil
		})
	}
	err := writers.Wait()
	elapsed := time.Since(start)
	close(stop)
	if rerr := g.Wait(); err == nil {
		err = rerr
	}
	if err != nil {
		return err
	}

	if got := c.Value(); got != want {
		return fmt.Errorf("lost updates: counter = %d, want %d", got, want)
	}

	fmt.Fprintf(w, "counter: %d adds by %d writers in %v (%.0f adds/sec), %d reads\n",
		want, config.writers, elapsed.Round(time.Millisecond),
		float64(want)/elapsed.Seconds(), reads.Load())
	return nil
}
