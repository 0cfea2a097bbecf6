// Package artifact owns the lifecycle of the request-scoped temporary files a
// pipeline run creates: the downloaded source, the compressed output and the
// optional poster thumbnail.
//
// Every file name is derived from the request id and the artifact kind, so
// concurrent runs sharing one working directory never touch each other's
// files and no locking is needed. A [Scope] is opened per run and released
// with defer; Release removes everything the run registered plus any sidecar
// files carrying the request id, and is safe to call more than once.
package artifact
