// Package version exposes build metadata for the codetally binary.
// The variables are overridden at link time via -ldflags.
package version

import "fmt"

var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String returns the full human-readable version line.
func String() string {
	return fmt.Sprintf("codetally %s (commit: %s, built: %s)", Version, Commit, Date)
}
