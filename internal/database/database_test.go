package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"media-relay/internal/metrics"
	"media-relay/internal/pipeline"
	"media-relay/internal/transcoder"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func outcome(id string, delivered bool, kind pipeline.Kind, finished time.Time) pipeline.Outcome {
	return pipeline.Outcome{
		RequestID: id,
		SourceURL: "https://youtu.be/" + id,
		Delivered: delivered,
		Title:     "Title " + id,
		Failure:   kind,
		Attempts: []transcoder.Attempt{
			{Rung: 1, Quality: 30, SizeBytes: 40 << 10, Succeeded: true},
			{Quality: 45, SizeBytes: 7 << 10, Succeeded: true, Fallback: true},
		},
		FinalSize:  7 << 10,
		StartedAt:  finished.Add(-1500 * time.Millisecond),
		FinishedAt: finished,
	}
}

func TestRecordAndGetRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	if err := db.RecordRun(ctx, outcome("run-1", true, pipeline.KindNone, now)); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	run, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Outcome != "delivered" || !run.Delivered {
		t.Errorf("outcome = %s delivered=%v", run.Outcome, run.Delivered)
	}
	if run.Title != "Title run-1" || run.SourceURL != "https://youtu.be/run-1" {
		t.Errorf("unexpected run %+v", run)
	}
	if len(run.Attempts) != 2 || run.Attempts[0].Rung != "1" || run.Attempts[1].Rung != "fallback" {
		t.Errorf("attempts = %+v", run.Attempts)
	}
	if !run.FinishedAt.Equal(now) {
		t.Errorf("FinishedAt = %v, want %v", run.FinishedAt, now)
	}
	if run.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", run.DurationMs)
	}
}

func TestRecordRunReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_ = db.RecordRun(ctx, outcome("run-1", false, pipeline.KindRetrievalFailure, now))
	if err := db.RecordRun(ctx, outcome("run-1", true, pipeline.KindNone, now)); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Outcome != "delivered" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestGetRunNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now()

	records := []pipeline.Outcome{
		outcome("a", true, pipeline.KindNone, base.Add(-3*time.Minute)),
		outcome("b", false, pipeline.KindCompressionExhausted, base.Add(-2*time.Minute)),
		outcome("c", false, pipeline.KindTooLargeForRetrieval, base.Add(-1*time.Minute)),
		outcome("d", true, pipeline.KindNone, base),
	}
	for _, o := range records {
		if err := db.RecordRun(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all newest first", ListOptions{}, []string{"d", "c", "b", "a"}},
		{"limit", ListOptions{Limit: 2}, []string{"d", "c"}},
		{"delivered only", ListOptions{Outcome: "delivered"}, []string{"d", "a"}},
		{"failure kind", ListOptions{Outcome: "compression_exhausted"}, []string{"b"}},
		{"no matches", ListOptions{Outcome: "delivery_failure"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := db.ListRuns(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("got %d runs, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if runs[i].RequestID != id {
					t.Errorf("runs[%d] = %s, want %s", i, runs[i].RequestID, id)
				}
			}
		})
	}

	counts, err := db.CountByOutcome(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["delivered"] != 2 || counts["too_large_for_retrieval"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRecordRunMetrics(t *testing.T) {
	db := newTestDB(t)
	before := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("record_run", "success"))

	if err := db.RecordRun(context.Background(), outcome("m", true, pipeline.KindNone, time.Now())); err != nil {
		t.Fatal(err)
	}

	after := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("record_run", "success"))
	if after != before+1 {
		t.Errorf("record_run success count = %v, want %v", after, before+1)
	}
}

func TestJournalSatisfiesPipeline(t *testing.T) {
	var _ pipeline.Journal = (*Database)(nil)
}

func TestNewInvalidDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "sub", FileName))
	if err == nil {
		t.Fatal("expected error for a missing parent directory")
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
