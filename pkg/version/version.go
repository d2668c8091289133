// Package version holds build-time version information.
package version

// Build metadata, overridable at link time via -ldflags.
var (
	// Version is the semantic version of the binary.
	Version = "0.3.0"
	// Commit is the git commit the binary was built from.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)
