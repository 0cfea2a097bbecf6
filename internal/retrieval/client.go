package retrieval

import (
	"context"
	"errors"
)

// Metadata is what a probe learns about a source without downloading it.
type Metadata struct {
	Title        string
	DeclaredSize int64 // 0 when the source does not report a size
	ThumbnailURL string
	Duration     float64
	WebpageURL   string
}

// Client is the retrieval collaborator used by the prober and the fetcher.
type Client interface {
	// Probe resolves metadata for the rendition selected by format without
	// transferring the payload.
	Probe(ctx context.Context, url, format string) (*Metadata, error)
	// Download writes the rendition selected by format to dest.
	Download(ctx context.Context, url, format, dest string) error
}

// ErrNoMetadata is returned by a Client when a probe completes but yields
// nothing usable.
var ErrNoMetadata = errors.New("no metadata resolved")

// Stage errors. The pipeline classifies failures with errors.Is against these.
var (
	// ErrResolutionFailure means the source could not be resolved at all.
	ErrResolutionFailure = errors.New("resolution failure")
	// ErrTooLargeForRetrieval means the declared size exceeds the pre-flight budget.
	ErrTooLargeForRetrieval = errors.New("too large for retrieval")
	// ErrRetrievalFailure means the download did not produce a usable file.
	ErrRetrievalFailure = errors.New("retrieval failure")
)
