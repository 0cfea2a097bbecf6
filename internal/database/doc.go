// Package database is the SQLite run journal.
//
// Every finished pipeline run is recorded with its outcome, failure kind,
// compression trace and timings. Only outcomes are stored; media artifacts
// never reach the database. The database uses WAL mode so the HTTP handlers
// can read while runs are being recorded.
package database
