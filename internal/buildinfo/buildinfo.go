// Package buildinfo reports the version baked into the binary.
package buildinfo

import "runtime/debug"

// Version is overridden at link time:
//
//	go build -ldflags "-X aimonitor/internal/buildinfo.Version=v1.2.3"
var Version = "dev"

// Resolve returns Version, falling back to the module version recorded by
// the toolchain when the binary was installed with go install.
func Resolve() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}
	return info.Main.Version
}
