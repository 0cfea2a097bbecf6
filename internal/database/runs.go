package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"media-relay/internal/pipeline"
)

// ErrRunNotFound is returned by GetRun for unknown request ids.
var ErrRunNotFound = errors.New("run not found")

// RecordRun stores a finished run. Recording the same request id again
// replaces the earlier entry.
func (d *Database) RecordRun(ctx context.Context, outcome pipeline.Outcome) (err error) {
	start := time.Now()
	defer func() { recordQuery("record_run", start, err) }()

	run := runFromOutcome(outcome)
	attempts, err := json.Marshal(run.Attempts)
	if err != nil {
		return fmt.Errorf("failed to encode attempts: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO runs (request_id, source_url, title, outcome, delivered, detail, attempts, final_size, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			source_url = excluded.source_url,
			title = excluded.title,
			outcome = excluded.outcome,
			delivered = excluded.delivered,
			detail = excluded.detail,
			attempts = excluded.attempts,
			final_size = excluded.final_size,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`,
		run.RequestID, run.SourceURL, run.Title, run.Outcome, run.Delivered, run.Detail,
		string(attempts), run.FinalSize, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
	)
	return err
}

const runColumns = `request_id, source_url, title, outcome, delivered, detail, attempts, final_size, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                 Run
		title, detail       sql.NullString
		attempts            string
		startedMs, finishMs int64
	)
	if err := row.Scan(&run.RequestID, &run.SourceURL, &title, &run.Outcome, &run.Delivered,
		&detail, &attempts, &run.FinalSize, &startedMs, &finishMs); err != nil {
		return nil, err
	}

	run.Title = title.String
	run.Detail = detail.String
	run.StartedAt = time.UnixMilli(startedMs)
	run.FinishedAt = time.UnixMilli(finishMs)
	run.DurationMs = finishMs - startedMs
	if err := json.Unmarshal([]byte(attempts), &run.Attempts); err != nil {
		return nil, fmt.Errorf("corrupt attempts for %s: %w", run.RequestID, err)
	}
	return &run, nil
}

// GetRun returns the journal entry for requestID.
func (d *Database) GetRun(ctx context.Context, requestID string) (run *Run, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrRunNotFound) {
			recordQuery("get_run", start, nil)
			return
		}
		recordQuery("get_run", start, err)
	}()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE request_id = ?", requestID)
	run, err = scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns the most recently finished runs first.
func (d *Database) ListRuns(ctx context.Context, opts ListOptions) (runs []Run, err error) {
	start := time.Now()
	defer func() { recordQuery("list_runs", start, err) }()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := "SELECT " + runColumns + " FROM runs"
	args := []any{}
	if opts.Outcome != "" {
		query += " WHERE outcome = ?"
		args = append(args, opts.Outcome)
	}
	query += " ORDER BY finished_at DESC LIMIT ?"
	args = append(args, limit)

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs = []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CountByOutcome returns the number of journaled runs per outcome label.
func (d *Database) CountByOutcome(ctx context.Context) (counts map[string]int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_runs", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM runs GROUP BY outcome")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts = make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
