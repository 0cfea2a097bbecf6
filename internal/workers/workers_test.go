package workers

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Very low multiplier",
			multiplier: 0.01,
			limit:      0,
			minExpect:  1,
			maxExpect:  1 + availableCPU/100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
	}{
		{"Valid override", "8", 0, 8},
		{"Override with limit", "20", 10, 10},
		{"Override below limit", "5", 10, 5},
		{"Invalid override (non-numeric)", "invalid", 0, -1},
		{"Invalid override (zero)", "0", 0, -1},
		{"Invalid override (negative)", "-5", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OverrideEnv, tt.envValue)

			got := Count(1.0, tt.limit)

			if tt.expected < 0 {
				if got < 1 {
					t.Errorf("Count with invalid override should return at least 1, got %d", got)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, OverrideEnv, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForCPU(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
	if got := ForCPU(0); got < 1 {
		t.Errorf("ForCPU(0) = %d, want at least 1", got)
	}
}

func TestNewPoolMinimumSize(t *testing.T) {
	for _, size := range []int{-3, 0, 1} {
		if got := NewPool(size).Size(); got != 1 {
			t.Errorf("NewPool(%d).Size() = %d, want 1", size, got)
		}
	}
	if got := NewPool(3).Size(); got != 3 {
		t.Errorf("NewPool(3).Size() = %d, want 3", got)
	}
}

func TestPoolSubmitReturnsJobError(t *testing.T) {
	pool := NewPool(1)
	want := errors.New("encoder exploded")

	err := <-pool.Submit(context.Background(), func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Submit() error = %v, want %v", err, want)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const size = 2
	pool := NewPool(size)

	var running, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Run(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if peak.Load() > size {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), size)
	}
	if pool.InFlight() != 0 || pool.Queued() != 0 {
		t.Errorf("pool not drained: inFlight=%d queued=%d", pool.InFlight(), pool.Queued())
	}
}

func TestPoolSubmitCancelledWhileQueued(t *testing.T) {
	pool := NewPool(1)

	release := make(chan struct{})
	started := make(chan struct{})
	first := pool.Submit(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	second := pool.Submit(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	cancel()

	if err := <-second; !errors.Is(err, context.Canceled) {
		t.Errorf("queued Submit() error = %v, want context.Canceled", err)
	}
	close(release)
	if err := <-first; err != nil {
		t.Errorf("first Submit() error = %v", err)
	}
	if ran.Load() {
		t.Error("cancelled job should never run")
	}
}

func TestPoolRunWaitsForStartedJob(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var finished atomic.Bool
	err := pool.Run(ctx, func(context.Context) error {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	if err != nil {
		t.Errorf("Run() error = %v, want the job's nil error", err)
	}
	if !finished.Load() {
		t.Error("Run() returned before the job finished")
	}
	if pool.InFlight() != 0 {
		t.Errorf("InFlight() = %d after Run, want 0", pool.InFlight())
	}
}

func TestPoolRunCancelledBeforeStart(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := pool.Run(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if ran.Load() {
		t.Error("job ran after its context was cancelled")
	}
}
