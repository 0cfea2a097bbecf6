package pipeline

import (
	"errors"
	"fmt"

	"media-relay/internal/retrieval"
	"media-relay/internal/transcoder"
)

// Kind classifies why a run did not deliver.
type Kind int

const (
	KindNone Kind = iota
	KindResolutionFailure
	KindTooLargeForRetrieval
	KindRetrievalFailure
	KindEncodingFailure
	KindCompressionExhausted
	KindDeliveryLimitExceeded
	KindDeliveryFailure
	// KindInternalFailure covers panics and local setup errors.
	KindInternalFailure
)

var kindNames = map[Kind]string{
	KindNone:                  "none",
	KindResolutionFailure:     "resolution_failure",
	KindTooLargeForRetrieval:  "too_large_for_retrieval",
	KindRetrievalFailure:      "retrieval_failure",
	KindEncodingFailure:       "encoding_failure",
	KindCompressionExhausted:  "compression_exhausted",
	KindDeliveryLimitExceeded: "delivery_limit_exceeded",
	KindDeliveryFailure:       "delivery_failure",
	KindInternalFailure:       "internal_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindNone, false
}

// StageError is the terminal error of a failed run.
type StageError struct {
	Kind  Kind
	Title string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// classify maps a collaborator error to its stage kind. fallback is used when
// the error carries no recognised sentinel.
func classify(err error, fallback Kind) Kind {
	switch {
	case errors.Is(err, retrieval.ErrTooLargeForRetrieval):
		return KindTooLargeForRetrieval
	case errors.Is(err, retrieval.ErrResolutionFailure):
		return KindResolutionFailure
	case errors.Is(err, retrieval.ErrRetrievalFailure):
		return KindRetrievalFailure
	case errors.Is(err, transcoder.ErrCompressionExhausted):
		return KindCompressionExhausted
	case errors.Is(err, transcoder.ErrEncodingFailure):
		return KindEncodingFailure
	}
	return fallback
}
