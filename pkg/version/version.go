package version

import (
	"fmt"
	"runtime"
)

// Build-time variables, injected with -ldflags "-X authbridge/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo returns comprehensive build information
func BuildInfo() string {
	return fmt.Sprintf(`authbridge %s
Git Commit: %s
Built: %s
Go Version: %s
Platform: %s/%s`,
		Version,
		GitCommit,
		BuildDate,
		GoVersion,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// Short returns just the version string, with the abbreviated commit for
// development builds
func Short() string {
	if Version != "dev" {
		return Version
	}
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s-%s", Version, commit)
}

// UserAgent is sent with every identity provider request
func UserAgent() string {
	return "authbridge/" + Short()
}
