package startup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"media-relay/internal/logging"
)

const rule = "------------------------------------------------------------"

// section starts a titled block of the startup log.
func section(title string) {
	logging.Info("")
	logging.Info(rule)
	logging.Info("%s", title)
	logging.Info(rule)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// VersionReporter is an external tool that can report its version.
type VersionReporter interface {
	Version(ctx context.Context) (string, error)
}

// CheckTools runs each tool's version command and logs the result. It
// returns an error naming the first tool, in name order, that could not be run.
func CheckTools(ctx context.Context, tools map[string]VersionReporter) error {
	section("EXTERNAL TOOLS")

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		version, err := tools[name].Version(checkCtx)
		cancel()

		if err != nil {
			logging.Error("  [FAIL] %s: %v", name, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s is not usable: %w", name, err)
			}
			continue
		}
		logging.Info("  [OK] %-8s %s", name, version)
	}
	return firstErr
}

// LogJournalInit logs run journal initialization
func LogJournalInit(path string, duration time.Duration) {
	section("JOURNAL INITIALIZATION")
	logging.Info("  [OK] Journal %s opened in %v", path, duration)
}

// LogJournalDisabled logs that finished runs are not being recorded
func LogJournalDisabled() {
	section("JOURNAL INITIALIZATION")
	logging.Warn("  Journal disabled; run history is available only while runs are active")
}

// PipelineInfo describes the assembled pipeline for the startup log.
type PipelineInfo struct {
	Workers int
	Sink    string
	Posters bool
	Rungs   []int
}

// LogPipelineInit logs the assembled pipeline
func LogPipelineInit(info PipelineInfo) {
	section("PIPELINE INITIALIZATION")
	logging.Info("  Encode workers:  %d", info.Workers)
	logging.Info("  Ladder:          %v then scaled fallback", info.Rungs)
	logging.Info("  Delivery sink:   %s", info.Sink)
	logging.Info("  Posters:         %s", enabledString(info.Posters))
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening endpoints and how long startup took
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  API:             http://0.0.0.0:%s/api", config.Port)
	logging.Info("  Health:          http://0.0.0.0:%s/health", config.Port)

	metricsEndpoint := "DISABLED"
	if config.MetricsEnabled {
		metricsEndpoint = fmt.Sprintf("http://0.0.0.0:%s/metrics", config.MetricsPort)
	}
	logging.Info("  Metrics:         %s", metricsEndpoint)
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}
