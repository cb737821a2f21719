package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/r9s-ai/open-sync-router/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("open-sync-router %s (commit=%s built=%s %s %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
