package transcoder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"media-relay/internal/artifact"
	"media-relay/internal/filesystem"
	"media-relay/internal/logging"
	"media-relay/internal/metrics"
	"media-relay/internal/workers"
)

// MaxRungs caps the sweep so a run never exceeds MaxRungs+1 encoder calls.
const MaxRungs = 4

// DefaultRungs are the CRF values swept in order, least aggressive first.
var DefaultRungs = []int{30, 35, 40, 45}

// DefaultFallbackScale is the reduced resolution used by the fallback call.
const DefaultFallbackScale = "-2:240"

// Ladder errors.
var (
	// ErrEncodingFailure means an encoder invocation failed; the sweep stops.
	ErrEncodingFailure = errors.New("encoding failure")
	// ErrCompressionExhausted means no rung, fallback included, met the target.
	ErrCompressionExhausted = errors.New("compression exhausted")
)

// Attempt records one encoder invocation.
type Attempt struct {
	Rung      int // 1-based position; 0 for the fallback call
	Quality   int
	SizeBytes int64
	Succeeded bool
	Fallback  bool
}

// Label returns the metric label for the attempt's rung.
func (a Attempt) Label() string {
	if a.Fallback {
		return "fallback"
	}
	return strconv.Itoa(a.Rung)
}

// Result is the outcome of a ladder run. Attempts is always populated;
// Artifact and Final are set only when the search succeeded.
type Result struct {
	Artifact *artifact.Artifact
	Attempts []Attempt
	Final    Attempt
}

// LadderConfig holds the search parameters.
type LadderConfig struct {
	Rungs              []int
	IntermediateTarget int64
	FallbackScale      string
}

// Validate checks the rung list and target.
func (c LadderConfig) Validate() error {
	if len(c.Rungs) == 0 || len(c.Rungs) > MaxRungs {
		return fmt.Errorf("ladder needs between 1 and %d rungs, got %d", MaxRungs, len(c.Rungs))
	}
	for i, q := range c.Rungs {
		if q < 0 || q > 63 {
			return fmt.Errorf("rung %d quality %d outside 0-63", i+1, q)
		}
		if i > 0 && q <= c.Rungs[i-1] {
			return fmt.Errorf("rungs must increase in aggressiveness: %v", c.Rungs)
		}
	}
	if c.IntermediateTarget <= 0 {
		return errors.New("intermediate target must be positive")
	}
	if c.FallbackScale == "" {
		return errors.New("fallback scale must be set")
	}
	return nil
}

// Ladder runs the adaptive compression search.
type Ladder struct {
	encoder Encoder
	pool    *workers.Pool
	config  LadderConfig
}

// NewLadder creates a ladder. Encoder calls are executed on pool.
func NewLadder(encoder Encoder, pool *workers.Pool, config LadderConfig) (*Ladder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rungs := make([]int, len(config.Rungs))
	copy(rungs, config.Rungs)
	config.Rungs = rungs

	return &Ladder{encoder: encoder, pool: pool, config: config}, nil
}

// Compress encodes src into the scope's Compressed artifact. It returns the
// first rung whose output is within the intermediate target. If every rung
// succeeds but none fits, one fallback call at the most aggressive quality and
// reduced resolution is made. Any encoder failure ends the search with
// ErrEncodingFailure. The returned Result is never nil.
func (l *Ladder) Compress(ctx context.Context, src *artifact.Artifact, scope *artifact.Scope) (*Result, error) {
	log := logging.ForRequest(scope.RequestID())
	res := &Result{}

	out, err := scope.Acquire(artifact.KindCompressed)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrEncodingFailure, err)
	}

	for i, quality := range l.config.Rungs {
		job := Job{Input: src.Path, Output: out.Path, Quality: quality}
		attempt, err := l.run(ctx, scope, out, job, Attempt{Rung: i + 1, Quality: quality})
		res.Attempts = append(res.Attempts, attempt)
		if err != nil {
			log.Error("Encoder failed at rung %d (crf %d): %v", attempt.Rung, quality, err)
			return res, fmt.Errorf("%w: rung %d: %w", ErrEncodingFailure, attempt.Rung, err)
		}

		if attempt.SizeBytes <= l.config.IntermediateTarget {
			log.Info("Compression fits at rung %d (crf %d): %d bytes", attempt.Rung, quality, attempt.SizeBytes)
			res.Artifact, res.Final = out, attempt
			return res, nil
		}
		log.Debug("Rung %d (crf %d) too large: %d > %d bytes", attempt.Rung, quality, attempt.SizeBytes, l.config.IntermediateTarget)
	}

	quality := l.config.Rungs[len(l.config.Rungs)-1]
	log.Info("Attempting fallback low-res compression (crf %d, scale %s)", quality, l.config.FallbackScale)

	job := Job{Input: src.Path, Output: out.Path, Quality: quality, Scale: l.config.FallbackScale}
	attempt, err := l.run(ctx, scope, out, job, Attempt{Quality: quality, Fallback: true})
	res.Attempts = append(res.Attempts, attempt)
	if err != nil {
		log.Warn("Fallback encode failed: %v", err)
		return res, fmt.Errorf("%w: fallback: %w", ErrCompressionExhausted, err)
	}
	if attempt.SizeBytes > l.config.IntermediateTarget {
		log.Info("Fallback output still too large: %d > %d bytes", attempt.SizeBytes, l.config.IntermediateTarget)
		return res, fmt.Errorf("%w: fallback produced %d bytes, target %d",
			ErrCompressionExhausted, attempt.SizeBytes, l.config.IntermediateTarget)
	}

	log.Info("Fallback compression fits: %d bytes", attempt.SizeBytes)
	res.Artifact, res.Final = out, attempt
	return res, nil
}

// run executes one encoder call on the pool and measures its output. The
// previous rung's output is removed first so that "output exists" reflects
// this call only.
func (l *Ladder) run(ctx context.Context, scope *artifact.Scope, out *artifact.Artifact, job Job, attempt Attempt) (Attempt, error) {
	if err := scope.Discard(out); err != nil {
		return attempt, err
	}

	start := time.Now()
	err := l.pool.Run(ctx, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("encoder panic: %v", r)
			}
		}()
		return l.encoder.Encode(ctx, job)
	})
	metrics.EncodeDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		size, statErr := filesystem.SizeOf(out.Path)
		if statErr != nil {
			err = fmt.Errorf("%w: output missing: %w", ErrEncoderFailed, statErr)
		} else {
			attempt.SizeBytes = size
			attempt.Succeeded = true
		}
	}

	result := "failed"
	switch {
	case err != nil:
	case attempt.SizeBytes <= l.config.IntermediateTarget:
		result = "fit"
		metrics.LadderOutputBytes.Observe(float64(attempt.SizeBytes))
	default:
		result = "too_large"
		metrics.LadderOutputBytes.Observe(float64(attempt.SizeBytes))
	}
	metrics.LadderAttemptsTotal.WithLabelValues(attempt.Label(), result).Inc()

	return attempt, err
}
