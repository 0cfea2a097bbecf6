package database

import (
	"time"

	"media-relay/internal/pipeline"
	"media-relay/internal/transcoder"
)

// Attempt is one compression ladder step as stored in the journal.
type Attempt struct {
	Rung      string `json:"rung"`
	Quality   int    `json:"quality"`
	SizeBytes int64  `json:"sizeBytes"`
	Succeeded bool   `json:"succeeded"`
}

// Run is a journaled pipeline run.
type Run struct {
	RequestID  string    `json:"requestId"`
	SourceURL  string    `json:"sourceUrl"`
	Title      string    `json:"title,omitempty"`
	Outcome    string    `json:"outcome"`
	Delivered  bool      `json:"delivered"`
	Detail     string    `json:"detail,omitempty"`
	Attempts   []Attempt `json:"attempts"`
	FinalSize  int64     `json:"finalSize"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Outcome restricts results to one outcome label, e.g. "delivered".
	Outcome string
	Limit   int
}

// DefaultListLimit and MaxListLimit bound ListRuns.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

func runFromOutcome(o pipeline.Outcome) Run {
	attempts := make([]Attempt, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		attempts = append(attempts, attemptFromTranscoder(a))
	}
	return Run{
		RequestID:  o.RequestID,
		SourceURL:  o.SourceURL,
		Title:      o.Title,
		Outcome:    o.Label(),
		Delivered:  o.Delivered,
		Detail:     o.Detail,
		Attempts:   attempts,
		FinalSize:  o.FinalSize,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
		DurationMs: o.Duration().Milliseconds(),
	}
}

func attemptFromTranscoder(a transcoder.Attempt) Attempt {
	return Attempt{Rung: a.Label(), Quality: a.Quality, SizeBytes: a.SizeBytes, Succeeded: a.Succeeded}
}
