package startup

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-relay/internal/pipeline"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("RELAY_TEST_SET", "custom")
	t.Setenv("RELAY_TEST_EMPTY", "")

	if got := getEnv("RELAY_TEST_SET", "default"); got != "custom" {
		t.Errorf("set variable: got %q", got)
	}
	if got := getEnv("RELAY_TEST_EMPTY", "default"); got != "default" {
		t.Errorf("empty variable: got %q, want default", got)
	}
	if got := getEnv("RELAY_TEST_UNSET_XYZ", "default"); got != "default" {
		t.Errorf("unset variable: got %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"0", true, false},
		{"not-a-bool", true, true},
	}
	for _, tt := range tests {
		t.Setenv("RELAY_TEST_BOOL", tt.value)
		if got := getEnvBool("RELAY_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("RELAY_TEST_DUR", "90s")
	if got := getEnvDuration("RELAY_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("got %v", got)
	}
	t.Setenv("RELAY_TEST_DUR", "soon")
	if got := getEnvDuration("RELAY_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("invalid value should fall back, got %v", got)
	}
	t.Setenv("RELAY_TEST_DUR", "-5s")
	if got := getEnvDuration("RELAY_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("negative value should fall back, got %v", got)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10MiB", 10 << 20, false},
		{"8MB", 8_000_000, false},
		{"8 mb", 8_000_000, false},
		{"100MiB", 100 << 20, false},
		{"1.5KiB", 1536, false},
		{"1GiB", 1 << 30, false},
		{"2KB", 2000, false},
		{"8388608", 8388608, false},
		{"512B", 512, false},
		{"", 0, true},
		{"MiB", 0, true},
		{"ten", 0, true},
		{"-1MiB", 0, true},
		{"0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRungs(t *testing.T) {
	got, err := ParseRungs(" 30, 35,40 ,45,")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{30, 35, 40, 45}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rung %d = %d, want %d", i, got[i], want[i])
		}
	}

	for _, bad := range []string{"", ",", "30,abc"} {
		if _, err := ParseRungs(bad); err == nil {
			t.Errorf("ParseRungs(%q) should fail", bad)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{8 << 20, "8.0 MiB"},
		{100 << 20, "100.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// clearConfigEnv blanks every variable FromEnv reads.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WORK_DIR", "DATABASE_DIR", "OUTBOX_DIR", "PORT", "METRICS_PORT", "METRICS_ENABLED",
		"METRICS_INTERVAL", "LOG_HEALTH_CHECKS", "RENDITION", "RUN_TIMEOUT", "YTDLP_PATH",
		"YTDLP_ARGS", "FFMPEG_PATH", "DELIVERY_MODE", "WEBHOOK_URL", "API_TOKEN_HASH",
		"ALLOWED_CHANNELS", "THREAD_NAME", "JOURNAL_ENABLED", "PREFLIGHT_BUDGET",
		"INTERMEDIATE_TARGET", "DELIVERY_LIMIT", "LADDER_RUNGS", "ENCODE_WORKERS",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	clearConfigEnv(t)

	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}

	def := pipeline.DefaultConfig()
	pc := c.PipelineConfig()
	if pc.PreflightBudget != def.PreflightBudget || pc.IntermediateTarget != def.IntermediateTarget || pc.DeliveryLimit != def.DeliveryLimit {
		t.Errorf("thresholds = %d/%d/%d, want defaults", pc.PreflightBudget, pc.IntermediateTarget, pc.DeliveryLimit)
	}
	if pc.RenditionPreference != def.RenditionPreference {
		t.Errorf("rendition = %q", pc.RenditionPreference)
	}
	if len(pc.LadderRungs) != 4 || pc.LadderRungs[0] != 30 || pc.LadderRungs[3] != 45 {
		t.Errorf("rungs = %v", pc.LadderRungs)
	}
	if c.DeliveryMode != DeliveryDirectory || !c.JournalEnabled || !c.MetricsEnabled {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.EncodeWorkers < 1 {
		t.Errorf("EncodeWorkers = %d", c.EncodeWorkers)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PREFLIGHT_BUDGET", "50MiB")
	t.Setenv("INTERMEDIATE_TARGET", "25MB")
	t.Setenv("DELIVERY_LIMIT", "24000000")
	t.Setenv("LADDER_RUNGS", "28,33")
	t.Setenv("ALLOWED_CHANNELS", "general, music ,")
	t.Setenv("RUN_TIMEOUT", "10m")
	t.Setenv("DELIVERY_MODE", "Webhook")
	t.Setenv("WEBHOOK_URL", "https://chat.example/api/webhooks/1/secret")

	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.PreflightBudget != 50<<20 || c.IntermediateTarget != 25_000_000 || c.DeliveryLimit != 24_000_000 {
		t.Errorf("thresholds = %d/%d/%d", c.PreflightBudget, c.IntermediateTarget, c.DeliveryLimit)
	}
	if len(c.LadderRungs) != 2 || c.LadderRungs[1] != 33 {
		t.Errorf("rungs = %v", c.LadderRungs)
	}
	if len(c.AllowedChannels) != 2 || c.AllowedChannels[1] != "music" {
		t.Errorf("channels = %q", c.AllowedChannels)
	}
	if c.PipelineConfig().RunTimeout != 10*time.Minute {
		t.Errorf("run timeout = %v", c.RunTimeout)
	}
	if c.DeliveryMode != DeliveryWebhook {
		t.Errorf("delivery mode = %q", c.DeliveryMode)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfigFromEnvRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"DELIVERY_LIMIT":   "eight",
		"PREFLIGHT_BUDGET": "-3MiB",
		"LADDER_RUNGS":     "30,x",
	} {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("%s=%q should be rejected", key, value)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		clearConfigEnv(t)
		c, err := FromEnv()
		if err != nil {
			t.Fatal(err)
		}
		c.WorkDir = "/tmp/relay-work"
		c.OutboxDir = "/tmp/relay-outbox"
		return c
	}

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"threshold order", func(c *Config) { c.DeliveryLimit = c.IntermediateTarget }, "delivery limit"},
		{"webhook without url", func(c *Config) { c.DeliveryMode = DeliveryWebhook }, "WEBHOOK_URL"},
		{"unknown mode", func(c *Config) { c.DeliveryMode = "carrier-pigeon" }, "DELIVERY_MODE"},
		{"outbox is workdir", func(c *Config) { c.OutboxDir = c.WorkDir + "/" }, "OUTBOX_DIR"},
		{"empty outbox", func(c *Config) { c.OutboxDir = "" }, "OUTBOX_DIR"},
		{"bad token hash", func(c *Config) { c.APITokenHash = "plaintext" }, "bcrypt"},
		{"empty ladder", func(c *Config) { c.LadderRungs = nil }, "rung"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			err := c.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoadConfigCreatesDirectories(t *testing.T) {
	clearConfigEnv(t)
	root := t.TempDir()
	t.Setenv("WORK_DIR", filepath.Join(root, "work"))
	t.Setenv("OUTBOX_DIR", filepath.Join(root, "outbox"))
	t.Setenv("DATABASE_DIR", filepath.Join(root, "db"))

	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{c.WorkDir, c.OutboxDir, c.DatabaseDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", dir)
		}
	}
	if c.DatabasePath != filepath.Join(root, "db", "runs.db") {
		t.Errorf("DatabasePath = %s", c.DatabasePath)
	}
	if !c.JournalEnabled {
		t.Error("journal should be enabled with a writable directory")
	}
}

func TestLoadConfigDisablesJournalOnUnusableDir(t *testing.T) {
	clearConfigEnv(t)
	root := t.TempDir()
	blocker := filepath.Join(root, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORK_DIR", filepath.Join(root, "work"))
	t.Setenv("OUTBOX_DIR", filepath.Join(root, "outbox"))
	t.Setenv("DATABASE_DIR", blocker)

	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.JournalEnabled {
		t.Error("journal should be disabled when its directory is a file")
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://chat.example/api/webhooks/1/secret")
	if got != "https://chat.example/..." {
		t.Errorf("redactURL() = %q", got)
	}
	if got := redactURL("not a url"); got != "not a url" {
		t.Errorf("redactURL() = %q", got)
	}
}

type fakeTool struct {
	version string
	err     error
}

func (f fakeTool) Version(context.Context) (string, error) { return f.version, f.err }

func TestCheckTools(t *testing.T) {
	ok := map[string]VersionReporter{
		"ffmpeg": fakeTool{version: "ffmpeg version 6.1"},
		"yt-dlp": fakeTool{version: "2024.08.06"},
	}
	if err := CheckTools(context.Background(), ok); err != nil {
		t.Errorf("CheckTools() = %v", err)
	}

	broken := map[string]VersionReporter{
		"ffmpeg": fakeTool{version: "ffmpeg version 6.1"},
		"yt-dlp": fakeTool{err: errors.New("executable file not found")},
	}
	err := CheckTools(context.Background(), broken)
	if err == nil || !strings.Contains(err.Error(), "yt-dlp") {
		t.Errorf("CheckTools() = %v, want error naming yt-dlp", err)
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ingest", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodPost)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatal(err)
	}

	found := map[string]bool{}
	for _, route := range routes {
		found[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{"GET /health", "POST /api/ingest"} {
		if !found[want] {
			t.Errorf("route %q not found in %v", want, routes)
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/health":        "health",
		"/api/runs":      "api/runs",
		"/api/runs/{id}": "api/runs",
		"/":              "",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}
