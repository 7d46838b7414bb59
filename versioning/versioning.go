// Package versioning holds the build information stamped in at link time.
package versioning

var (
	// Version is the main release tag
	Version = "dev"

	// Commit is the git commit the binary was built from
	Commit = ""

	// BuildTime is the time the binary was built at
	BuildTime = ""
)
