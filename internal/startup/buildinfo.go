package startup

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"media-relay/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

const banner = `
    __  ___         ___          ____       __
   /  |/  /__  ____/ (_)___ _   / __ \___  / /___ ___  __
  / /|_/ / _ \/ __  / / __ '/  / /_/ / _ \/ / __ '/ / / /
 / /  / /  __/ /_/ / / /_/ /  / _, _/  __/ / /_/ / /_/ /
/_/  /_/\___/\__,_/_/\__,_/  /_/ |_|\___/_/\__,_/\__, /
                                               /____/`

func printBanner() {
	fmt.Println(rule + banner + "\n" + rule)
	info := GetBuildInfo()
	logging.Info("  Version:    %s", info.Version)
	logging.Info("  Commit:     %s", info.Commit)
	logging.Info("  Build Time: %s", info.BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	procs := runtime.GOMAXPROCS(0)
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", procs)
	if procs < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected; encode workers follow GOMAXPROCS)")
	}
	if host, err := os.Hostname(); err == nil {
		logging.Debug("  Hostname:        %s", host)
	}
}
