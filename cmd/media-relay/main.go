package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-relay/internal/database"
	"media-relay/internal/delivery"
	"media-relay/internal/handlers"
	"media-relay/internal/logging"
	"media-relay/internal/metrics"
	"media-relay/internal/middleware"
	"media-relay/internal/pipeline"
	"media-relay/internal/retrieval"
	"media-relay/internal/startup"
	"media-relay/internal/thumbnail"
	"media-relay/internal/transcoder"
	"media-relay/internal/trigger"
	"media-relay/internal/workers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 30 * time.Second
	// drainTimeout bounds how long shutdown waits for in-flight runs before
	// cancelling them.
	drainTimeout = 2 * time.Minute
)

// services are the long-lived components shutdown has to stop.
type services struct {
	server     *http.Server
	metricsSrv *http.Server
	handlers   *handlers.Handlers
	collector  *metrics.Collector
	ffmpeg     *transcoder.FFmpeg
	db         *database.Database
	cancelRuns context.CancelFunc
}

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ytdlp, err := retrieval.NewYtDlp(config.YtDlpPath, config.YtDlpArgs)
	if err != nil {
		startup.LogFatal("Invalid YTDLP_ARGS: %v", err)
	}
	ffmpeg := transcoder.NewFFmpeg(config.FFmpegPath, transcoder.DefaultProfile())

	if err := startup.CheckTools(context.Background(), map[string]startup.VersionReporter{
		"ffmpeg": ffmpeg,
		"yt-dlp": ytdlp,
	}); err != nil {
		startup.LogFatal("External tool check failed: %v", err)
	}

	svc := &services{ffmpeg: ffmpeg}

	if config.JournalEnabled {
		dbStart := time.Now()
		db, err := database.New(context.Background(), config.DatabasePath)
		if err != nil {
			logging.Error("Failed to open journal, continuing without it: %v", err)
		} else {
			svc.db = db
			startup.LogJournalInit(config.DatabasePath, time.Since(dbStart))
		}
	}
	if svc.db == nil {
		startup.LogJournalDisabled()
	}

	pool := workers.NewPool(config.EncodeWorkers)
	orch, sink, err := buildPipeline(config, ytdlp, ffmpeg, pool, svc.db)
	if err != nil {
		startup.LogFatal("Failed to assemble pipeline: %v", err)
	}
	startup.LogPipelineInit(startup.PipelineInfo{
		Workers: pool.Size(),
		Sink:    sink.Name(),
		Posters: true,
		Rungs:   config.LadderRungs,
	})

	baseCtx, cancelRuns := context.WithCancel(context.Background())
	svc.cancelRuns = cancelRuns

	var runs handlers.RunStore
	if svc.db != nil {
		runs = svc.db
	}
	detector := trigger.NewDetector(config.AllowedChannels, config.ThreadName, nil)
	h := handlers.New(orch, detector, runs, handlers.Options{
		TokenHash:   config.APITokenHash,
		BaseContext: baseCtx,
	})
	svc.handlers = h

	router := handlers.NewRouter(h)
	if config.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	startup.LogHTTPRoutes(router, h.AuthEnabled(), config.LogHealthChecks)

	svc.server = &http.Server{
		Addr:              ":" + config.Port,
		Handler:           buildHandler(h, router, config.LogHealthChecks),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		svc.collector = metrics.NewCollector(pool, config.WorkDir, config.MetricsInterval)
		svc.collector.Start()
		svc.metricsSrv = startMetricsServer(config.MetricsPort)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(svc)
	}()

	h.SetReady(true)
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := svc.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// buildPipeline assembles the orchestrator and its sink.
func buildPipeline(config *startup.Config, client retrieval.Client, encoder transcoder.Encoder, pool *workers.Pool, db *database.Database) (*pipeline.Orchestrator, delivery.Sink, error) {
	cfg := config.PipelineConfig()

	deps, err := pipeline.StandardDeps(cfg, client, encoder, pool)
	if err != nil {
		return nil, nil, err
	}

	sink, err := newSink(config)
	if err != nil {
		return nil, nil, err
	}
	deps.Sink = sink
	deps.Poster = thumbnail.NewGenerator(config.FFmpegPath, nil)
	if db != nil {
		deps.Journal = db
	}

	orch, err := pipeline.New(cfg, config.WorkDir, deps)
	if err != nil {
		return nil, nil, err
	}
	return orch, sink, nil
}

func newSink(config *startup.Config) (delivery.Sink, error) {
	switch config.DeliveryMode {
	case startup.DeliveryWebhook:
		return delivery.NewWebhookSink(config.WebhookURL, nil)
	default:
		return delivery.NewDirectorySink(config.OutboxDir)
	}
}

// buildHandler wraps the router: request id, then access log, then auth.
func buildHandler(h *handlers.Handlers, router *mux.Router, logHealthChecks bool) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = logHealthChecks

	return middleware.RequestID(middleware.Logger(loggingConfig)(h.AuthMiddleware(router)))
}

func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(svc *services) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	shutdown(svc)
	startup.LogShutdownComplete()
}

func shutdown(svc *services) {
	svc.handlers.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := svc.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Waiting for in-flight runs")
	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	err := svc.handlers.Wait(drainCtx)
	drainCancel()
	if err != nil {
		logging.Warn("Runs still active after %v, cancelling %d", drainTimeout, len(svc.handlers.ActiveRuns()))
		svc.cancelRuns()
		if err := svc.handlers.Wait(ctx); err != nil {
			logging.Warn("Runs did not stop after cancellation: %v", err)
		}
	}
	svc.cancelRuns()
	startup.LogShutdownStepComplete("Runs finished")

	startup.LogShutdownStep("Stopping encoder processes")
	svc.ffmpeg.Cleanup()
	startup.LogShutdownStepComplete("Encoder cleanup complete")

	if svc.collector != nil {
		svc.collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}
	if svc.metricsSrv != nil {
		if err := svc.metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if svc.db != nil {
		if err := svc.db.Close(); err != nil {
			logging.Warn("Journal close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Journal closed")
		}
	}
}
