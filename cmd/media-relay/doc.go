// Package main provides the entry point for the media relay service.
//
// The service watches chat messages (POST /api/messages) or explicit
// requests (POST /api/ingest) for video links, downloads each linked video
// with yt-dlp, compresses it with ffmpeg until it fits the delivery limit and
// hands the result to a delivery sink: an outbox directory or a chat webhook.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and prepares the
//     work, outbox and journal directories
//  2. Tool Checks: Runs ffmpeg -version and yt-dlp --version; either failing
//     is fatal
//  3. Journal: Opens the SQLite run journal (optional)
//  4. Pipeline: Encoder worker pool, prober, fetcher, compression ladder,
//     poster generator and sink
//  5. HTTP Server Setup: Routes, auth, logging and metrics middleware
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM
//
// # Graceful Shutdown
//
//  1. Mark the service not ready and stop accepting HTTP requests
//  2. Wait for in-flight runs, cancelling them after a grace period
//  3. Kill any encoder process still running
//  4. Stop the metrics collector and metrics server
//  5. Close the journal
//
// Every run releases its own artifacts, so a cancelled run leaves nothing
// behind in WORK_DIR.
//
// See package startup for the environment variables.
package main
