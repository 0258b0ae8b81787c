// Package buildinfo reports which pdnroute build is running.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/pdnroute/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/pdnroute/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/pdnroute/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/pdnroute
//
// Binaries built with go install carry no ldflags; for those the module
// version and VCS stamp recorded by the toolchain are used instead.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is a resolved build description.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Read returns the ldflags values, filling any left at their defaults from
// the toolchain's embedded build information.
func Read() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return info.fill(bi)
}

func (info Info) fill(bi *debug.BuildInfo) Info {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

// ShortCommit is the first 7 characters of the commit hash.
func (info Info) ShortCommit() string {
	if len(info.Commit) > 7 {
		return info.Commit[:7]
	}
	return info.Commit
}

// String formats the build as "pdnroute v0.3.0 (abc1234, 2025-01-02T03:04:05Z)".
func (info Info) String() string {
	return fmt.Sprintf("pdnroute %s (%s, %s)", info.Version, info.ShortCommit(), info.Date)
}

// Template returns the cobra version template for the running build.
func Template() string {
	return Read().String() + "\n"
}
