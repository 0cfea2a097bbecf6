// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - WORK_DIR: Scratch directory for request-scoped artifacts (default: /work)
//   - DATABASE_DIR: Run journal directory (default: /database)
//   - OUTBOX_DIR: Directory sink target; must differ from WORK_DIR (default: /outbox)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - METRICS_INTERVAL: Work directory scan interval (default: 1m)
//   - PREFLIGHT_BUDGET: Largest declared source size accepted (default: 100MiB)
//   - INTERMEDIATE_TARGET: Size the compression ladder aims for (default: 10MiB)
//   - DELIVERY_LIMIT: Hard limit checked before delivery (default: 8MiB)
//   - RENDITION: yt-dlp format selector (default: mp4[height<=360]/mp4)
//   - LADDER_RUNGS: Comma-separated CRF values (default: 30,35,40,45)
//   - ENCODE_WORKERS: Concurrent encoder processes (default: GOMAXPROCS)
//   - RUN_TIMEOUT: Bound on a whole run as Go duration (default: none)
//   - YTDLP_PATH, YTDLP_ARGS: yt-dlp binary and extra shell-quoted arguments
//   - FFMPEG_PATH: ffmpeg binary (default: ffmpeg)
//   - DELIVERY_MODE: directory or webhook (default: directory)
//   - WEBHOOK_URL: Required in webhook mode
//   - API_TOKEN_HASH: bcrypt hash of the API bearer token; empty disables auth
//   - ALLOWED_CHANNELS: Comma-separated channel allow-list for chat messages
//   - THREAD_NAME: Thread that is always monitored
//   - JOURNAL_ENABLED: Record run outcomes in SQLite (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//
// Sizes accept raw bytes or KB/MB/GB and KiB/MiB/GiB suffixes.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [CheckTools], [LogPipelineInit], [LogJournalInit], [LogHTTPRoutes],
// [LogServerStarted] and the shutdown helpers print the sectioned startup
// and shutdown log.
package startup
