package oplog

// Version information for the oplog library.
const (
	// Version is the current version of the library.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the library.
type Info struct {
	// Version is the library version string.
	Version string

	// Ways is the number of cache ways per CPU.
	Ways int

	// MaxCPUs is the number of per-CPU logger slots.
	MaxCPUs int
}

// GetInfo returns information about the oplog runtime.
//
// Example:
//
//	info := oplog.GetInfo()
//	fmt.Printf("oplog %s (%d ways, %d CPUs)\n", info.Version, info.Ways, info.MaxCPUs)
func GetInfo() Info {
	return Info{
		Version: Version,
		Ways:    NumWays,
		MaxCPUs: MaxCPUs,
	}
}
