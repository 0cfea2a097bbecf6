package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"media-relay/internal/delivery"
	"media-relay/internal/handlers"
	"media-relay/internal/middleware"
	"media-relay/internal/pipeline"
	"media-relay/internal/retrieval"
	"media-relay/internal/startup"
	"media-relay/internal/transcoder"
	"media-relay/internal/trigger"
	"media-relay/internal/workers"
)

type nopClient struct{}

func (nopClient) Probe(context.Context, string, string) (*retrieval.Metadata, error) {
	return &retrieval.Metadata{Title: "clip"}, nil
}

func (nopClient) Download(_ context.Context, _, _, dest string) error {
	return os.WriteFile(dest, []byte("video"), 0o644)
}

type nopEncoder struct{}

func (nopEncoder) Encode(_ context.Context, job transcoder.Job) error {
	return os.WriteFile(job.Output, []byte("small"), 0o644)
}

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	root := t.TempDir()
	return &startup.Config{
		WorkDir:            filepath.Join(root, "work"),
		OutboxDir:          filepath.Join(root, "outbox"),
		PreflightBudget:    100 * pipeline.MiB,
		IntermediateTarget: 10 * pipeline.MiB,
		DeliveryLimit:      8 * pipeline.MiB,
		Rendition:          retrieval.DefaultFormat,
		LadderRungs:        []int{30, 35, 40, 45},
		DeliveryMode:       startup.DeliveryDirectory,
		FFmpegPath:         "ffmpeg",
	}
}

func TestNewSink(t *testing.T) {
	config := testConfig(t)

	sink, err := newSink(config)
	if err != nil {
		t.Fatal(err)
	}
	if sink.Name() != "directory" {
		t.Errorf("sink = %s, want directory", sink.Name())
	}

	config.DeliveryMode = startup.DeliveryWebhook
	config.WebhookURL = "https://chat.example/hook"
	sink, err = newSink(config)
	if err != nil {
		t.Fatal(err)
	}
	if sink.Name() != "webhook" {
		t.Errorf("sink = %s, want webhook", sink.Name())
	}

	config.WebhookURL = ""
	if _, err := newSink(config); err == nil {
		t.Error("webhook sink without URL should fail")
	}
}

func TestBuildPipelineDeliversToOutbox(t *testing.T) {
	config := testConfig(t)
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		t.Fatal(err)
	}

	pool := workers.NewPool(1)
	orch, sink, err := buildPipeline(config, nopClient{}, nopEncoder{}, pool, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.(*delivery.DirectorySink); !ok {
		t.Fatalf("sink is %T", sink)
	}

	out := orch.Run(context.Background(), pipeline.NewRequest("https://youtu.be/abc", "alice"))
	if !out.Delivered {
		t.Fatalf("run not delivered: %s %s", out.Label(), out.Detail)
	}

	entries, err := os.ReadDir(config.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("work directory not empty after run: %d entries", len(entries))
	}
	delivered, err := filepath.Glob(filepath.Join(config.OutboxDir, "*.webm"))
	if err != nil || len(delivered) != 1 {
		t.Errorf("expected one delivered file, got %v (%v)", delivered, err)
	}
}

func TestBuildPipelineRejectsBadThresholds(t *testing.T) {
	config := testConfig(t)
	config.DeliveryLimit = config.PreflightBudget

	if _, _, err := buildPipeline(config, nopClient{}, nopEncoder{}, workers.NewPool(1), nil); err == nil {
		t.Error("expected invalid thresholds to be rejected")
	}
}

func TestBuildHandlerChain(t *testing.T) {
	h := handlers.New(nil, trigger.NewDetector(nil, "", nil), nil, handlers.Options{})
	handler := buildHandler(h, handlers.NewRouter(h), false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("response is missing a request id")
	}
}
