package version

import "fmt"

// Set at link time with -ldflags "-X github.com/banshee-data/detgeom/internal/version.Version=...".
var (
	// Version is the release of the geometry tools
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information for -version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
