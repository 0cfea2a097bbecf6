package pipeline

import (
	"time"

	"media-relay/internal/transcoder"

	"github.com/google/uuid"
)

// MediaRequest is one detected URL. Author is optional and only used for the
// repost announcement.
type MediaRequest struct {
	RequestID   string
	SourceURL   string
	Author      string
	RequestedAt time.Time
}

// NewRequest creates a request with a fresh id.
func NewRequest(sourceURL, author string) MediaRequest {
	return MediaRequest{
		RequestID:   uuid.NewString(),
		SourceURL:   sourceURL,
		Author:      author,
		RequestedAt: time.Now(),
	}
}

// Outcome is the result of a run. It carries no artifact references; every
// file it mentions has been removed by the time it is returned.
type Outcome struct {
	RequestID string
	SourceURL string
	Delivered bool
	Title     string
	// Failure is KindNone for delivered runs.
	Failure Kind
	// Detail is the failure message, empty on success.
	Detail string
	// Attempts is the compression ladder trace, if the ladder ran.
	Attempts []transcoder.Attempt
	// FinalSize is the size of the delivered (or gated) artifact in bytes.
	FinalSize  int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Label is the metrics and journal label for the outcome.
func (o Outcome) Label() string {
	if o.Delivered {
		return "delivered"
	}
	return o.Failure.String()
}

// Duration returns how long the run took.
func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

func (o *Outcome) fail(err *StageError) {
	o.Delivered = false
	o.Failure = err.Kind
	if err.Title != "" {
		o.Title = err.Title
	}
	o.Detail = err.Error()
}
