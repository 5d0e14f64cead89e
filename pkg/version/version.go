// Package version holds build information injected with ldflags:
//
//	go build -ldflags "-X autodev/pkg/version.Version=v0.3.0 -X autodev/pkg/version.Commit=$(git rev-parse HEAD)"
package version

import "fmt"

//nolint:gochecknoglobals // set by the linker
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build information for display.
func String() string {
	return fmt.Sprintf("autodev %s\n  commit: %s\n  built:  %s", Version, Commit, Date)
}
