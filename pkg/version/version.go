package version

import (
	"runtime"
	"time"
)

// Values injected at build time with
// -ldflags "-X github.com/bacalhau-project/callback-relay/pkg/version.GITVERSION=..."
var (
	GITVERSION = "v0.0.0-dev"
	GITCOMMIT  = ""
	BUILDDATE  = ""
)

// BuildVersionInfo is the version of the running binary.
type BuildVersionInfo struct {
	GitVersion string    `json:"gitversion"`
	GitCommit  string    `json:"gitcommit"`
	BuildDate  time.Time `json:"builddate"`
	GOOS       string    `json:"goos"`
	GOARCH     string    `json:"goarch"`
}

func Get() *BuildVersionInfo {
	buildDate, _ := time.Parse(time.RFC3339, BUILDDATE)
	return &BuildVersionInfo{
		GitVersion: GITVERSION,
		GitCommit:  GITCOMMIT,
		BuildDate:  buildDate,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}
}
