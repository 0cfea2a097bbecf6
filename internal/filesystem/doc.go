/*
Package filesystem provides filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

The relay's working directory is often a shared volume. Encoder output and
downloaded sources are stat'ed and removed there by many concurrent pipeline
runs; on NFS those calls can fail transiently with ESTALE. This package wraps
os.Stat and os.Remove with a bounded exponential backoff that retries only on
ESTALE and returns every other error immediately.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	// Removing a file that is already gone is not an error.
	err := filesystem.RemoveWithRetry(path, filesystem.DefaultRetryConfig())

Retry attempts, stale errors and final failures are recorded in the
media_relay_filesystem_* Prometheus series.
*/
package filesystem
