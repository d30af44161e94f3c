// Package main implements the oplogstress CLI tool.
//
// oplogstress exercises the oplog runtime under configurable concurrent
// load and verifies its guarantees from the outside:
//
//  1. No lost updates: every pushed operation applies exactly once
//  2. Ordering: each synchronize applies operations in ascending
//     timestamp order
//  3. Bounded synchronization: wait-synchronize leaves later operations
//     buffered and they surface exactly once afterwards
//
// Usage:
//
//	oplogstress counter [flags]   # write-scalable counter workload
//	oplogstress ordered [flags]   # timestamp-ordered workload
//
// Both workloads print throughput on success and exit nonzero on any
// verification failure, so the tool doubles as a long-running soak test:
//
//	while oplogstress counter -writers 64; do :; done
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/oplog/oplog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "counter":
		counterCommand(os.Args[2:])
	case "ordered":
		orderedCommand(os.Args[2:])
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	info := oplog.GetInfo()
	fmt.Printf("oplogstress version %s (%d ways, %d CPU slots)\n",
		info.Version, info.Ways, info.MaxCPUs)
}

func printUsage() {
	fmt.Print(`oplogstress - operation log stress tool

USAGE:
    oplogstress <command> [flags]

COMMANDS:
    counter    Hammer a write-scalable counter and verify no lost adds
    ordered    Hammer a timestamp-ordered object and verify apply order
    version    Show version information
    help       Show this help message

EXAMPLES:
    # 32 writers, one million adds each, 4 polling readers
    oplogstress counter -writers 32 -adds 1000000 -readers 4

    # Ordered workload with periodic bounded synchronizes
    oplogstress ordered -writers 16 -ops 100000 -syncs 50
`)
}
