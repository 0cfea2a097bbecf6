package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// OverrideEnv is the environment variable that pins the worker count.
const OverrideEnv = "ENCODE_WORKERS"

// Count returns the optimal number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier scales the CPU count; encodes use 1.0.
//
// The limit parameter caps the worker count to prevent resource exhaustion.
// Use 0 for no limit.
//
// Can be overridden with the ENCODE_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
// The limit parameter caps the maximum number of workers.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Pool bounds how many blocking jobs run at once. Callers submit a job and
// wait on the returned channel, so the submitting goroutine never performs the
// work itself.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	queued   atomic.Int64
}

// NewPool creates a pool that runs at most size jobs concurrently.
// A size below 1 is treated as 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the maximum number of concurrent jobs.
func (p *Pool) Size() int {
	return p.size
}

// InFlight returns the number of jobs currently running.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Queued returns the number of jobs waiting for a free slot.
func (p *Pool) Queued() int {
	return int(p.queued.Load())
}

// Submit schedules fn and returns a channel that receives exactly one value:
// the job's error, or ctx.Err() if the context ended before a slot was free.
// A panic inside fn is not recovered here; jobs own their own recovery.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)

	p.queued.Add(1)
	go func() {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.queued.Add(-1)
			done <- err
			return
		}
		p.queued.Add(-1)
		p.inFlight.Add(1)
		defer func() {
			p.inFlight.Add(-1)
			p.sem.Release(1)
		}()

		done <- fn(ctx)
	}()

	return done
}

// Run submits fn and blocks until it returns. If ctx ends while fn is still
// waiting for a slot, Run returns ctx.Err() and fn never starts; once fn has
// started, Run waits for it even after ctx ends.
func (p *Pool) Run(ctx context.Context, fn func(context.Context) error) error {
	return <-p.Submit(ctx, fn)
}
