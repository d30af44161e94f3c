//go:build ignore
// +build ignore

// This tool probes the CPU-id source available on this host and samples
// how well it spreads concurrent goroutines across logger slots.
// Run with: go run tools/calc_cpu_source.go
package main

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/kolkov/oplog/oplog"
)

func main() {
	fmt.Printf("OS/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("GOMAXPROCS: %d, NumCPU: %d\n", runtime.GOMAXPROCS(0), runtime.NumCPU())
	fmt.Printf("CPU: %s (%d logical cores)\n", cpuid.CPU.BrandName, cpuid.CPU.LogicalCores)
	fmt.Printf("APIC id of this thread: %d\n", cpuid.CPU.LogicalCPU())

	switch {
	case runtime.GOOS == "linux":
		fmt.Println("Source: getcpu syscall (fast path)")
	case cpuid.CPU.LogicalCPU() >= 0:
		fmt.Println("Source: cpuid APIC id")
	default:
		fmt.Println("Source: goroutine-id hash (last resort)")
	}

	// Sample the spread: many goroutines, each recording its slot. A
	// healthy source uses roughly NumCPU distinct slots; the goroutine-id
	// fallback uses many more, which still works but spreads one CPU's
	// writes over several ways.
	const goroutines = 512
	var (
		mu    sync.Mutex
		slots = make(map[int]int)
		wg    sync.WaitGroup
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := oplog.CurrentCPU()
			mu.Lock()
			slots[id]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	fmt.Printf("\n%d goroutines landed on %d distinct slots (MaxCPUs=%d)\n",
		goroutines, len(slots), oplog.MaxCPUs)
}
