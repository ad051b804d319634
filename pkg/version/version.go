// Package version holds the build information of the flakime binary.
package version

import "fmt"

// Set through -ldflags "-X" at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("flakime %s (commit: %s, built: %s)", Version, Commit, Date)
}
