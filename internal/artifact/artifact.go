package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"media-relay/internal/filesystem"
	"media-relay/internal/logging"
	"media-relay/internal/metrics"
)

// Kind identifies what an ephemeral artifact holds.
type Kind int

const (
	// KindSource is the rendition downloaded from the remote URL.
	KindSource Kind = iota
	// KindCompressed is the encoder output produced by the compression ladder.
	KindCompressed
	// KindFallbackThumbnail is the poster image handed to preview-capable sinks.
	KindFallbackThumbnail
)

// String returns the metric label for the kind.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindCompressed:
		return "compressed"
	case KindFallbackThumbnail:
		return "thumbnail"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) extension() string {
	switch k {
	case KindSource:
		return ".mp4"
	case KindCompressed:
		return ".webm"
	case KindFallbackThumbnail:
		return ".jpg"
	default:
		return ".bin"
	}
}

// ErrScopeReleased is returned when registering an artifact on a released scope.
var ErrScopeReleased = errors.New("artifact scope already released")

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Artifact is one request-scoped file on transient storage.
type Artifact struct {
	Path      string
	Kind      Kind
	RequestID string
}

// FileName returns the deterministic file name for a request and kind.
func FileName(requestID string, kind Kind) string {
	return kind.String() + "_" + requestID + kind.extension()
}

// Scope tracks every artifact a single request creates and removes them all on
// Release.
type Scope struct {
	dir       string
	requestID string
	retry     filesystem.RetryConfig

	mu        sync.Mutex
	artifacts map[Kind]*Artifact
	released  bool
}

// NewScope opens a scope for requestID inside dir. The request id must be
// non-empty and consist of letters, digits and dashes only, so that it can be
// embedded in file names and glob patterns verbatim.
func NewScope(dir, requestID string) (*Scope, error) {
	if dir == "" {
		return nil, errors.New("artifact scope requires a directory")
	}
	if !validRequestID.MatchString(requestID) {
		return nil, fmt.Errorf("invalid request id %q", requestID)
	}

	metrics.ArtifactScopesOpen.Inc()
	return &Scope{
		dir:       dir,
		requestID: requestID,
		retry:     filesystem.DefaultRetryConfig(),
		artifacts: make(map[Kind]*Artifact),
	}, nil
}

// RequestID returns the id the scope was opened for.
func (s *Scope) RequestID() string {
	return s.requestID
}

// Dir returns the working directory.
func (s *Scope) Dir() string {
	return s.dir
}

// PathFor returns the path an artifact of the given kind will use.
func (s *Scope) PathFor(kind Kind) string {
	return filepath.Join(s.dir, FileName(s.requestID, kind))
}

// Acquire registers an artifact of the given kind and returns it. The file is
// not created; registration happens before any tool writes to the path so that
// a crash mid-write still leaves the file owned by the scope. Acquiring the
// same kind twice returns the same artifact.
func (s *Scope) Acquire(kind Kind) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, ErrScopeReleased
	}
	if a, ok := s.artifacts[kind]; ok {
		return a, nil
	}

	a := &Artifact{
		Path:      s.PathFor(kind),
		Kind:      kind,
		RequestID: s.requestID,
	}
	s.artifacts[kind] = a
	metrics.ArtifactsCreatedTotal.WithLabelValues(kind.String()).Inc()
	return a, nil
}

// Discard removes an artifact's file immediately. The artifact stays
// registered, so Release will still sweep it if it is recreated.
func (s *Scope) Discard(a *Artifact) error {
	if a == nil {
		return nil
	}
	return s.remove(a.Path, a.Kind)
}

// Artifacts returns the registered artifacts ordered by kind.
func (s *Scope) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Release removes every registered artifact and any other file in the working
// directory whose name carries the request id (partial downloads, encoder
// logs). It is idempotent: later calls repeat the sweep and return nil when
// nothing is left. Errors from individual removals are joined.
func (s *Scope) Release() error {
	s.mu.Lock()
	first := !s.released
	s.released = true
	registered := make([]*Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		registered = append(registered, a)
	}
	s.mu.Unlock()

	if first {
		metrics.ArtifactScopesOpen.Dec()
	}

	var errs []error
	for _, a := range registered {
		if err := s.remove(a.Path, a.Kind); err != nil {
			errs = append(errs, err)
		}
	}

	leftovers, err := Leftovers(s.dir, s.requestID)
	if err != nil {
		errs = append(errs, err)
	}
	for _, path := range leftovers {
		if err := filesystem.RemoveWithRetry(path, s.retry); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		logging.Debug("Removed sidecar file %s", path)
	}

	return errors.Join(errs...)
}

func (s *Scope) remove(path string, kind Kind) error {
	if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := filesystem.RemoveWithRetry(path, s.retry); err != nil {
		metrics.ArtifactRemoveErrors.WithLabelValues(kind.String()).Inc()
		return fmt.Errorf("remove %s artifact %s: %w", kind, path, err)
	}
	metrics.ArtifactsRemovedTotal.WithLabelValues(kind.String()).Inc()
	logging.Debug("Removed %s artifact %s", kind, path)
	return nil
}

// Leftovers lists files in dir whose names contain requestID. An empty result
// after Release is the cleanup guarantee for a run.
func Leftovers(dir, requestID string) ([]string, error) {
	if !validRequestID.MatchString(requestID) {
		return nil, fmt.Errorf("invalid request id %q", requestID)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+requestID+"*"))
	if err != nil {
		return nil, fmt.Errorf("glob leftovers: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}
