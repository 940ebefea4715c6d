// Package version holds application identity and build metadata.
// BuildDate and GoVersion are set at link time:
//
//	go build -ldflags "-X yt-play/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import "runtime"

const AppName = "yt-play"

var (
	BuildDate = ""
	GoVersion = runtime.Version()
)
