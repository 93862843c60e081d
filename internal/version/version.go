// Package version reports the samsungctl build version.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/tya/samsungctl/internal/version.Version=v0.4.0 \
//	                   -X github.com/tya/samsungctl/internal/version.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo(debug.ReadBuildInfo)
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills Version from the main module and Commit from VCS stamps.
func fromBuildInfo(read func() (*debug.BuildInfo, bool)) {
	info, ok := read()
	if !ok {
		return
	}

	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if Commit == "" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		Commit = revision
		if dirty {
			Commit += "-dirty"
		}
	}
}

// Full returns the version and commit together.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
