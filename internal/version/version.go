package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set at build time via -ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// readBuildInfo is replaced in tests
var readBuildInfo = debug.ReadBuildInfo

// commit falls back to the VCS revision stamped by the Go toolchain when
// -ldflags did not set one.
func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return Commit
}

// Info returns formatted version information
func Info() string {
	return Version + " (" + commit() + ")"
}

// Full returns full version information including build time and platform
func Full() string {
	return fmt.Sprintf("tideshell %s (commit: %s, built: %s, %s %s/%s)",
		Version, commit(), BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
