// Package handlers provides the HTTP API of the relay.
//
// It includes handlers for:
//   - Chat message intake and trigger detection (POST /api/messages)
//   - Direct ingestion of a URL (POST /api/ingest)
//   - The run journal (GET /api/runs, GET /api/runs/{id})
//   - Health, readiness and version probes
//
// Pipeline runs are started in the background; intake endpoints answer 202
// with the request id. When a token hash is configured, /api routes require
// an "Authorization: Bearer <token>" header.
package handlers
