// Package version reports what build is running
package version

import (
	"runtime/debug"
	"sync"
)

// ServiceName identifies the API process in logs and meta endpoints
const ServiceName = "litscreen-api"

// Stamped at link time, e.g.
//
//	-ldflags "-X litscreen/internal/core/version.version=v0.3.0 -X litscreen/internal/core/version.commit=1a2b3c4"
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// BuildInfo is served on /meta/version and /meta/engine
type BuildInfo struct {
	Service  string `json:"service"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Modified bool   `json:"modified,omitempty"`
}

// ShortCommit is the first seven characters of Commit
func (b BuildInfo) ShortCommit() string {
	if len(b.Commit) > 7 {
		return b.Commit[:7]
	}
	return b.Commit
}

var vcs = sync.OnceValue(func() BuildInfo {
	var out BuildInfo
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.Date = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	return out
})

// Info merges link time stamps with the vcs settings the go tool embeds.
// Link time values win
func Info() BuildInfo {
	b := vcs()
	b.Service = ServiceName
	b.Version = version
	if commit != "" {
		b.Commit = commit
	}
	if date != "" {
		b.Date = date
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}
