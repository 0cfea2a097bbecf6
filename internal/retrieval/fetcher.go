package retrieval

import (
	"context"
	"errors"
	"fmt"

	"media-relay/internal/artifact"
	"media-relay/internal/filesystem"
	"media-relay/internal/logging"
)

// partialSuffixes are the temporary names yt-dlp writes next to the target.
var partialSuffixes = []string{".part", ".ytdl", ".temp"}

// Fetcher downloads one rendition into the request's Source artifact.
type Fetcher struct {
	client Client
	format string
}

// NewFetcher creates a fetcher that downloads the rendition selected by format.
func NewFetcher(client Client, format string) *Fetcher {
	return &Fetcher{client: client, format: format}
}

// Fetch downloads url into a new Source artifact of scope. On any failure the
// artifact and its partial files are removed before ErrRetrievalFailure is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, url string, scope *artifact.Scope) (*artifact.Artifact, error) {
	src, err := scope.Acquire(artifact.KindSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}

	if err := f.download(ctx, url, src.Path); err != nil {
		f.discard(scope, src)
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}
	return src, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	if err := f.client.Download(ctx, url, f.format, dest); err != nil {
		return err
	}

	size, err := filesystem.SizeOf(dest)
	if err != nil {
		return fmt.Errorf("downloaded file missing: %w", err)
	}
	if size == 0 {
		return errors.New("downloaded file is empty")
	}
	logging.Debug("Fetched %s (%d bytes)", dest, size)
	return nil
}

func (f *Fetcher) discard(scope *artifact.Scope, src *artifact.Artifact) {
	if err := scope.Discard(src); err != nil {
		logging.Warn("Failed to remove partial download %s: %v", src.Path, err)
	}
	for _, suffix := range partialSuffixes {
		if err := filesystem.RemoveWithRetry(src.Path+suffix, filesystem.DefaultRetryConfig()); err != nil {
			logging.Warn("Failed to remove partial download %s: %v", src.Path+suffix, err)
		}
	}
}
