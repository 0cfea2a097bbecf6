package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_relay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"}, // "delivered" or a failure kind
	)

	PipelineRunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_pipeline_runs_in_flight",
			Help: "Number of pipeline runs currently executing",
		},
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_relay_pipeline_run_duration_seconds",
			Help:    "End-to-end pipeline run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_relay_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"}, // "probe", "fetch", "transcode", "deliver"
	)

	PreflightDeclaredBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_relay_preflight_declared_bytes",
			Help:    "Declared source size reported by the prober (0 when unknown)",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 10), // 1MiB .. 512MiB
		},
	)
)

// Compression ladder metrics
var (
	LadderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_ladder_attempts_total",
			Help: "Total number of encoder invocations by rung and result",
		},
		[]string{"rung", "result"}, // result: "fit", "too_large", "failed"
	)

	LadderOutputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_relay_ladder_output_bytes",
			Help:    "Size of encoder output per attempt",
			Buckets: prometheus.ExponentialBuckets(512*1024, 2, 10), // 512KiB .. 256MiB
		},
	)

	EncodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_relay_encode_duration_seconds",
			Help:    "Duration of a single encoder invocation in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	WorkerPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_worker_pool_size",
			Help: "Maximum number of concurrent encoder processes",
		},
	)

	WorkerPoolInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_worker_pool_in_flight",
			Help: "Number of encoder processes currently running",
		},
	)

	WorkerPoolQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_worker_pool_queued",
			Help: "Number of encode jobs waiting for a free worker",
		},
	)
)

// Artifact metrics
var (
	ArtifactsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_artifacts_created_total",
			Help: "Total number of ephemeral artifacts registered",
		},
		[]string{"kind"},
	)

	ArtifactsRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_artifacts_removed_total",
			Help: "Total number of ephemeral artifacts removed from storage",
		},
		[]string{"kind"},
	)

	ArtifactRemoveErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_artifact_remove_errors_total",
			Help: "Total number of failed artifact removals",
		},
		[]string{"kind"},
	)

	ArtifactScopesOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_artifact_scopes_open",
			Help: "Number of request scopes that have not been released yet",
		},
	)

	WorkDirBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_work_dir_bytes",
			Help: "Total size of files in the working directory",
		},
	)

	WorkDirFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_relay_work_dir_files",
			Help: "Number of files in the working directory",
		},
	)
)

// Delivery metrics
var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_deliveries_total",
			Help: "Total number of delivery sink calls",
		},
		[]string{"sink", "status"},
	)

	DeliveredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_relay_delivered_bytes_total",
			Help: "Total bytes handed to delivery sinks",
		},
	)

	PosterGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_poster_generations_total",
			Help: "Total number of poster thumbnail generations by source and status",
		},
		[]string{"source", "status"}, // source: "remote", "frame"
	)
)

// Trigger metrics
var (
	MessagesScannedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_relay_messages_scanned_total",
			Help: "Total number of chat messages scanned for links",
		},
	)

	TriggerDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_trigger_decisions_total",
			Help: "Total number of trigger decisions by action",
		},
		[]string{"action"}, // "ingest", "acknowledge", "ignore"
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_relay_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_relay_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors encountered",
		},
		[]string{"operation"},
	)
)
