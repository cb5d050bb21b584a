// Package version reports the amanrag build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Build metadata. Release builds set these with
// -ldflags "-X github.com/Aman-CERP/amanrag/pkg/version.Version=v0.3.0 ...".
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

var (
	infoOnce sync.Once
	info     BuildInfo
)

// GetInfo returns the build metadata. Commit and date fall back to the VCS
// stamp of `go build` when ldflags left them empty.
func GetInfo() BuildInfo {
	infoOnce.Do(func() {
		info = BuildInfo{
			Version:   Version,
			Commit:    Commit,
			Date:      Date,
			GoVersion: runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
		}
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch {
				case s.Key == "vcs.revision" && info.Commit == "":
					info.Commit = shortRevision(s.Value)
				case s.Key == "vcs.time" && info.Date == "":
					info.Date = s.Value
				}
			}
		}
		if info.Commit == "" {
			info.Commit = "unknown"
		}
		if info.Date == "" {
			info.Date = "unknown"
		}
	})
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String is the one-line banner printed by `amanrag version`.
func String() string {
	i := GetInfo()
	return fmt.Sprintf("amanrag %s (commit: %s, built: %s, go: %s, %s/%s)",
		i.Version, i.Commit, i.Date, i.GoVersion, i.OS, i.Arch)
}

// Short returns just the version string.
func Short() string {
	return Version
}

// UserAgent identifies amanrag in outgoing HTTP requests.
func UserAgent() string {
	return "amanrag/" + Version
}
