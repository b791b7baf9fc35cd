// Package version exposes build metadata injected at link time.
package version

import "fmt"

// Set via -ldflags at build time.
var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns the full version string.
func Info() string {
	return fmt.Sprintf("netlens %s (commit %s, built %s)", Version, Commit, Date)
}

// Short returns just the semantic version.
func Short() string {
	return Version
}
