// Package buildinfo holds the version stamped into the binary.
//
// The variables are set with ldflags at release time:
//
//	go build -ldflags "-X github.com/matzehuels/diagramflow/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/diagramflow/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/diagramflow/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// The version also scopes layout cache keys, so a new release never reads
// passes cached by an older engine.
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build stamp as reported by the server's health endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build stamp.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// CacheScope is the prefix for layout cache keys. Development builds add
// the commit, since their engine changes without a version bump.
func CacheScope() string {
	if Version == "dev" && Commit != "none" {
		return fmt.Sprintf("dev-%.12s:", Commit)
	}
	return Version + ":"
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
