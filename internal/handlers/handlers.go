package handlers

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"media-relay/internal/database"
	"media-relay/internal/pipeline"
	"media-relay/internal/trigger"
)

// Runner executes a pipeline request.
type Runner interface {
	Run(ctx context.Context, req pipeline.MediaRequest) pipeline.Outcome
}

// RunStore reads the run journal.
type RunStore interface {
	ListRuns(ctx context.Context, opts database.ListOptions) ([]database.Run, error)
	GetRun(ctx context.Context, requestID string) (*database.Run, error)
	CountByOutcome(ctx context.Context) (map[string]int, error)
}

// Options configure Handlers.
type Options struct {
	// TokenHash is a bcrypt hash; empty disables authentication.
	TokenHash string
	// BaseContext is the parent of every background run. Cancelling it
	// cancels in-flight runs.
	BaseContext context.Context
}

// ActiveRun describes a run still in progress.
type ActiveRun struct {
	RequestID string    `json:"requestId"`
	SourceURL string    `json:"sourceUrl"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

type Handlers struct {
	runner    Runner
	detector  *trigger.Detector
	runs      RunStore
	tokenHash []byte
	baseCtx   context.Context
	startTime time.Time
	ready     atomic.Bool

	wg       sync.WaitGroup
	activeMu sync.Mutex
	active   map[string]ActiveRun
}

// New creates the handlers. runs may be nil when the journal is disabled.
func New(runner Runner, detector *trigger.Detector, runs RunStore, opts Options) *Handlers {
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	h := &Handlers{
		runner:    runner,
		detector:  detector,
		runs:      runs,
		baseCtx:   opts.BaseContext,
		startTime: time.Now(),
		active:    make(map[string]ActiveRun),
	}
	if opts.TokenHash != "" {
		h.tokenHash = []byte(opts.TokenHash)
	}
	return h
}

// SetReady marks the service as accepting work.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service accepts work.
func (h *Handlers) IsReady() bool {
	return h.ready.Load()
}

// startRun launches req in the background and tracks it until it finishes.
func (h *Handlers) startRun(req pipeline.MediaRequest) {
	h.activeMu.Lock()
	h.active[req.RequestID] = ActiveRun{
		RequestID: req.RequestID,
		SourceURL: req.SourceURL,
		Status:    "running",
		StartedAt: req.RequestedAt,
	}
	h.activeMu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.activeMu.Lock()
			delete(h.active, req.RequestID)
			h.activeMu.Unlock()
		}()
		h.runner.Run(h.baseCtx, req)
	}()
}

// Wait blocks until every background run has finished or ctx is done.
func (h *Handlers) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveRuns returns the runs in progress, oldest first.
func (h *Handlers) ActiveRuns() []ActiveRun {
	h.activeMu.Lock()
	defer h.activeMu.Unlock()

	out := make([]ActiveRun, 0, len(h.active))
	for _, r := range h.active {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (h *Handlers) activeRun(id string) (ActiveRun, bool) {
	h.activeMu.Lock()
	defer h.activeMu.Unlock()
	r, ok := h.active[id]
	return r, ok
}
