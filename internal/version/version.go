// Package version reports the build version.
package version

import "runtime/debug"

// Version is set at build time with -ldflags "-X github.com/neox5/decodeceph/internal/version.Version=...".
var Version = ""

// String returns the build version, falling back to module build info.
func String() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
