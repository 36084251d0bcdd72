// Package version carries build metadata injected through -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/Sumatoshi-tech/pyrefactor/pkg/version.Version=v1.0.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const vcsRevisionKey = "vcs.revision"

// InitBinaryVersion fills Version and Commit from the embedded module build
// info when ldflags did not set them (e.g. `go install`).
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "none" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsRevisionKey {
			Commit = setting.Value
		}
	}
}

// String formats the metadata for `pyrefactor version`.
func String() string {
	return fmt.Sprintf("pyrefactor %s (commit: %s, built: %s)", Version, Commit, Date)
}
