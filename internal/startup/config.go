package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-relay/internal/logging"
	"media-relay/internal/pipeline"
	"media-relay/internal/retrieval"
	"media-relay/internal/transcoder"
	"media-relay/internal/workers"
)

// Delivery modes.
const (
	DeliveryDirectory = "directory"
	DeliveryWebhook   = "webhook"
)

// Config holds all application configuration
type Config struct {
	WorkDir     string
	DatabaseDir string
	OutboxDir   string

	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	MetricsInterval time.Duration
	LogHealthChecks bool

	PreflightBudget    int64
	IntermediateTarget int64
	DeliveryLimit      int64
	Rendition          string
	LadderRungs        []int
	RunTimeout         time.Duration
	EncodeWorkers      int

	YtDlpPath  string
	YtDlpArgs  string
	FFmpegPath string

	DeliveryMode string
	WebhookURL   string

	APITokenHash    string
	AllowedChannels []string
	ThreadName      string
	JournalEnabled  bool

	// Derived paths
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")

	config, err := FromEnv()
	if err != nil {
		return nil, err
	}
	config.log()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	section("DIRECTORY SETUP")

	if err := config.resolvePaths(); err != nil {
		return nil, err
	}
	if err := config.prepareDirectories(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Journal:     %s", enabledString(config.JournalEnabled))
	logging.Info("    API auth:    %s", enabledString(config.APITokenHash != ""))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))
	logging.Info("    Delivery:    %s", config.DeliveryMode)

	return config, nil
}

// FromEnv reads every variable without logging or touching the filesystem.
func FromEnv() (*Config, error) {
	c := &Config{
		WorkDir:         getEnv("WORK_DIR", "/work"),
		DatabaseDir:     getEnv("DATABASE_DIR", "/database"),
		OutboxDir:       getEnv("OUTBOX_DIR", "/outbox"),
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		MetricsInterval: getEnvDuration("METRICS_INTERVAL", time.Minute),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", false),
		Rendition:       getEnv("RENDITION", retrieval.DefaultFormat),
		RunTimeout:      getEnvDuration("RUN_TIMEOUT", 0),
		YtDlpPath:       getEnv("YTDLP_PATH", "yt-dlp"),
		YtDlpArgs:       os.Getenv("YTDLP_ARGS"),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		DeliveryMode:    strings.ToLower(getEnv("DELIVERY_MODE", DeliveryDirectory)),
		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		APITokenHash:    os.Getenv("API_TOKEN_HASH"),
		AllowedChannels: parseList(os.Getenv("ALLOWED_CHANNELS")),
		ThreadName:      os.Getenv("THREAD_NAME"),
		JournalEnabled:  getEnvBool("JOURNAL_ENABLED", true),
	}

	var err error
	if c.PreflightBudget, err = getEnvSize("PREFLIGHT_BUDGET", 100*pipeline.MiB); err != nil {
		return nil, err
	}
	if c.IntermediateTarget, err = getEnvSize("INTERMEDIATE_TARGET", 10*pipeline.MiB); err != nil {
		return nil, err
	}
	if c.DeliveryLimit, err = getEnvSize("DELIVERY_LIMIT", 8*pipeline.MiB); err != nil {
		return nil, err
	}

	c.LadderRungs = append([]int(nil), transcoder.DefaultRungs...)
	if v := os.Getenv("LADDER_RUNGS"); v != "" {
		if c.LadderRungs, err = ParseRungs(v); err != nil {
			return nil, fmt.Errorf("LADDER_RUNGS: %w", err)
		}
	}

	// ENCODE_WORKERS is honoured by workers.Count
	c.EncodeWorkers = workers.ForCPU(0)

	return c, nil
}

func (c *Config) log() {
	logging.Info("  WORK_DIR:            %s", c.WorkDir)
	logging.Info("  DATABASE_DIR:        %s", c.DatabaseDir)
	logging.Info("  PORT:                %s", c.Port)
	logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", c.MetricsEnabled)
	logging.Info("  PREFLIGHT_BUDGET:    %s", FormatBytes(c.PreflightBudget))
	logging.Info("  INTERMEDIATE_TARGET: %s", FormatBytes(c.IntermediateTarget))
	logging.Info("  DELIVERY_LIMIT:      %s", FormatBytes(c.DeliveryLimit))
	logging.Info("  RENDITION:           %s", c.Rendition)
	logging.Info("  LADDER_RUNGS:        %v", c.LadderRungs)
	logging.Info("  ENCODE_WORKERS:      %d", c.EncodeWorkers)
	logging.Info("  RUN_TIMEOUT:         %s", durationOrNone(c.RunTimeout))
	logging.Info("  YTDLP_PATH:          %s", c.YtDlpPath)
	if c.YtDlpArgs != "" {
		logging.Info("  YTDLP_ARGS:          %s", c.YtDlpArgs)
	}
	logging.Info("  FFMPEG_PATH:         %s", c.FFmpegPath)
	logging.Info("  DELIVERY_MODE:       %s", c.DeliveryMode)
	switch c.DeliveryMode {
	case DeliveryDirectory:
		logging.Info("  OUTBOX_DIR:          %s", c.OutboxDir)
	case DeliveryWebhook:
		logging.Info("  WEBHOOK_URL:         %s", redactURL(c.WebhookURL))
	}
	if len(c.AllowedChannels) > 0 {
		logging.Info("  ALLOWED_CHANNELS:    %s", strings.Join(c.AllowedChannels, ", "))
	} else {
		logging.Info("  ALLOWED_CHANNELS:    (defaults)")
	}
	logging.Info("  JOURNAL_ENABLED:     %v", c.JournalEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

// Validate checks settings that do not depend on the filesystem.
func (c *Config) Validate() error {
	if err := c.PipelineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	switch c.DeliveryMode {
	case DeliveryDirectory:
		if c.OutboxDir == "" {
			return fmt.Errorf("OUTBOX_DIR is required when DELIVERY_MODE=%s", DeliveryDirectory)
		}
		if sameDir(c.OutboxDir, c.WorkDir) {
			return fmt.Errorf("OUTBOX_DIR must differ from WORK_DIR")
		}
	case DeliveryWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required when DELIVERY_MODE=%s", DeliveryWebhook)
		}
	default:
		return fmt.Errorf("unknown DELIVERY_MODE %q (want %s or %s)", c.DeliveryMode, DeliveryDirectory, DeliveryWebhook)
	}

	if c.APITokenHash != "" && !strings.HasPrefix(c.APITokenHash, "$2") {
		return fmt.Errorf("API_TOKEN_HASH does not look like a bcrypt hash")
	}
	return nil
}

// PipelineConfig returns the orchestrator settings.
func (c *Config) PipelineConfig() pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.PreflightBudget = c.PreflightBudget
	pc.IntermediateTarget = c.IntermediateTarget
	pc.DeliveryLimit = c.DeliveryLimit
	pc.RenditionPreference = c.Rendition
	pc.LadderRungs = append([]int(nil), c.LadderRungs...)
	pc.RunTimeout = c.RunTimeout
	return pc
}

func (c *Config) resolvePaths() error {
	var err error
	if c.WorkDir, err = filepath.Abs(c.WorkDir); err != nil {
		return fmt.Errorf("failed to resolve work directory path: %w", err)
	}
	logging.Info("  Work directory (absolute): %s", c.WorkDir)

	if c.DatabaseDir, err = filepath.Abs(c.DatabaseDir); err != nil {
		return fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	c.DatabasePath = filepath.Join(c.DatabaseDir, "runs.db")

	if c.DeliveryMode == DeliveryDirectory {
		if c.OutboxDir, err = filepath.Abs(c.OutboxDir); err != nil {
			return fmt.Errorf("failed to resolve outbox directory path: %w", err)
		}
		logging.Info("  Outbox directory (absolute): %s", c.OutboxDir)
	}
	return nil
}

func (c *Config) prepareDirectories() error {
	if err := ensureDirectory(c.WorkDir, "work"); err != nil {
		return fmt.Errorf("work directory error: %w", err)
	}
	if err := testWriteAccess(c.WorkDir); err != nil {
		return fmt.Errorf("work directory is not writable: %w", err)
	}
	logging.Info("  [OK] Work directory is writable")

	if c.DeliveryMode == DeliveryDirectory {
		if err := ensureDirectory(c.OutboxDir, "outbox"); err != nil {
			return fmt.Errorf("outbox directory error: %w", err)
		}
		if err := testWriteAccess(c.OutboxDir); err != nil {
			return fmt.Errorf("outbox directory is not writable: %w", err)
		}
		logging.Info("  [OK] Outbox directory is writable")
	}

	// The journal is optional: an unusable directory disables it
	if c.JournalEnabled {
		c.JournalEnabled = setupOptionalDir(c.DatabaseDir, "journal")
	}
	return nil
}

// ParseSize parses a byte size: a plain integer, or a number with a
// KB/MB/GB (powers of 1000) or KiB/MiB/GiB (powers of 1024) suffix.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	units := []struct {
		suffix string
		factor int64
	}{
		{"KiB", 1 << 10}, {"MiB", 1 << 20}, {"GiB", 1 << 30},
		{"KB", 1000}, {"MB", 1000 * 1000}, {"GB", 1000 * 1000 * 1000},
		{"B", 1},
	}

	number, factor := s, int64(1)
	for _, u := range units {
		if len(s) > len(u.suffix) && strings.EqualFold(s[len(s)-len(u.suffix):], u.suffix) {
			number, factor = strings.TrimSpace(s[:len(s)-len(u.suffix)]), u.factor
			break
		}
	}

	n, err := strconv.ParseFloat(number, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int64(n * float64(factor)), nil
}

// ParseRungs parses a comma-separated list of quality values.
func ParseRungs(s string) ([]int, error) {
	var rungs []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		q, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid rung %q", part)
		}
		rungs = append(rungs, q)
	}
	if len(rungs) == 0 {
		return nil, fmt.Errorf("no rungs in %q", s)
	}
	return rungs, nil
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// redactURL hides the path of a webhook URL, which carries its secret.
func redactURL(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		if j := strings.Index(raw[i+3:], "/"); j >= 0 {
			return raw[:i+3+j] + "/..."
		}
	}
	return raw
}

func durationOrNone(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvSize(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := ParseSize(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
