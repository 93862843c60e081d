package version

import (
	"runtime/debug"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "", ""
	fromBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v1.2.3"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	})

	if Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3", Version)
	}
	if Commit != "0123456-dirty" {
		t.Errorf("Commit = %q, want 0123456-dirty", Commit)
	}
}

func TestFromBuildInfo_Devel(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "", ""
	fromBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	})

	if Version != "" {
		t.Errorf("Version = %q, want empty for (devel)", Version)
	}
	if Commit != "" {
		t.Errorf("Commit = %q, want empty without vcs info", Commit)
	}
}
