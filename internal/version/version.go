// Package version reports the blescan build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/blescan/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/blescan/internal/version.Commit=abc1234 \
//	                   -X github.com/muurk/blescan/internal/version.Date=2026-10-01"
//
// Missing values are filled from the VCS stamp in the build info, falling
// back to "dev" and "unknown".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fill(info.Settings)
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fill completes unset variables from build settings
func fill(settings []debug.BuildSetting) {
	var revision, modified, vcsTime string
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision
		if len(Commit) > 7 {
			Commit = Commit[:7]
		}
		if modified == "true" {
			Commit += "-dirty"
		}
	}

	if vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			if Date == "" {
				Date = t.UTC().Format("2006-01-02")
			}
			if Version == "" {
				Version = "dev-" + t.UTC().Format("20060102")
			}
		}
	}
}

// Get returns the version info of the running binary
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line description
func (i Info) String() string {
	s := fmt.Sprintf("%s (commit: %s", i.Version, i.Commit)
	if i.Date != "" {
		s += ", built: " + i.Date
	}
	return s + fmt.Sprintf(", %s %s)", i.GoVersion, i.Platform)
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
