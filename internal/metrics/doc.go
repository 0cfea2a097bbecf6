// Package metrics provides Prometheus instrumentation for the media relay.
//
// All metrics are prefixed with "media_relay_" and registered through promauto
// at package initialization. [InitializeMetrics] pre-creates every known label
// combination so dashboards see zero-valued series before the first run.
//
// # Metric Categories
//
//   - HTTP: request counts, durations and in-flight requests
//   - Pipeline: runs by outcome, stage durations, declared source sizes
//   - Ladder: encoder invocations per rung and result, output sizes, encode time
//   - Worker pool: size, running and queued encode jobs
//   - Artifacts: created/removed per kind, removal errors, open request scopes,
//     working directory occupancy
//   - Delivery: sink calls, delivered bytes, poster generation
//   - Trigger: scanned messages and trigger decisions
//   - Database: run journal query counts and durations
//
// The [Collector] samples gauges that are not updated inline (worker pool
// occupancy and working directory size) on a fixed interval.
package metrics
