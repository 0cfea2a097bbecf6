package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"media-relay/internal/artifact"
	"media-relay/internal/delivery"
	"media-relay/internal/filesystem"
	"media-relay/internal/logging"
	"media-relay/internal/metrics"
	"media-relay/internal/retrieval"
	"media-relay/internal/transcoder"
	"media-relay/internal/workers"
)

// Prober resolves metadata and applies the pre-flight budget.
type Prober interface {
	Probe(ctx context.Context, url string) (*retrieval.Metadata, error)
}

// Fetcher downloads the source into the scope.
type Fetcher interface {
	Fetch(ctx context.Context, url string, scope *artifact.Scope) (*artifact.Artifact, error)
}

// Compressor runs the compression ladder. The returned Result must be
// non-nil even on error.
type Compressor interface {
	Compress(ctx context.Context, src *artifact.Artifact, scope *artifact.Scope) (*transcoder.Result, error)
}

// PosterMaker builds a preview image for sinks that accept one.
type PosterMaker interface {
	Poster(ctx context.Context, remoteURL string, video *artifact.Artifact, scope *artifact.Scope) (*artifact.Artifact, error)
}

// Journal records finished runs.
type Journal interface {
	RecordRun(ctx context.Context, outcome Outcome) error
}

// Deps are the collaborators of an Orchestrator. Poster and Journal are
// optional.
type Deps struct {
	Prober     Prober
	Fetcher    Fetcher
	Compressor Compressor
	Sink       delivery.Sink
	Poster     PosterMaker
	Journal    Journal
}

// StandardDeps wires the retrieval client and encoder into the prober,
// fetcher and ladder configured by cfg. Sink, Poster and Journal are left for
// the caller.
func StandardDeps(cfg Config, client retrieval.Client, encoder transcoder.Encoder, pool *workers.Pool) (Deps, error) {
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	ladder, err := transcoder.NewLadder(encoder, pool, cfg.ladderConfig())
	if err != nil {
		return Deps{}, err
	}
	return Deps{
		Prober:     retrieval.NewProber(client, cfg.RenditionPreference, cfg.PreflightBudget),
		Fetcher:    retrieval.NewFetcher(client, cfg.RenditionPreference),
		Compressor: ladder,
	}, nil
}

// Orchestrator runs requests. It is safe for concurrent use; concurrent runs
// share the working directory and are kept apart by request id.
type Orchestrator struct {
	config  Config
	workDir string
	deps    Deps
}

// New validates cfg and creates an Orchestrator working in workDir.
func New(cfg Config, workDir string, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if workDir == "" {
		return nil, errors.New("working directory not set")
	}
	if deps.Prober == nil || deps.Fetcher == nil || deps.Compressor == nil || deps.Sink == nil {
		return nil, errors.New("prober, fetcher, compressor and sink are required")
	}
	return &Orchestrator{config: cfg, workDir: workDir, deps: deps}, nil
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// Run processes one request. It never panics and never leaves artifacts for
// req on storage once it returns.
func (o *Orchestrator) Run(ctx context.Context, req MediaRequest) (out Outcome) {
	log := logging.ForRequest(req.RequestID)
	out = Outcome{RequestID: req.RequestID, SourceURL: req.SourceURL, StartedAt: time.Now()}

	metrics.PipelineRunsInFlight.Inc()
	defer metrics.PipelineRunsInFlight.Dec()

	if o.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.RunTimeout)
		defer cancel()
	}

	log.Info("Processing %s", req.SourceURL)

	scope, err := artifact.NewScope(o.workDir, req.RequestID)
	if err != nil {
		out.fail(&StageError{Kind: KindInternalFailure, Err: err})
		o.finish(ctx, &out)
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Pipeline panic: %v\n%s", r, debug.Stack())
			out.fail(&StageError{Kind: KindInternalFailure, Err: fmt.Errorf("panic: %v", r)})
		}
		if err := scope.Release(); err != nil {
			log.Warn("Cleanup incomplete: %v", err)
		}
		o.finish(ctx, &out)
	}()

	if err := o.execute(ctx, req, scope, &out); err != nil {
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			stageErr = &StageError{Kind: KindInternalFailure, Err: err}
		}
		out.fail(stageErr)
		return out
	}
	out.Delivered = true
	return out
}

func (o *Orchestrator) execute(ctx context.Context, req MediaRequest, scope *artifact.Scope, out *Outcome) error {
	log := logging.ForRequest(req.RequestID)

	done := stageTimer("probe")
	meta, err := o.deps.Prober.Probe(ctx, req.SourceURL)
	done()
	if meta != nil {
		out.Title = meta.Title
	}
	if err != nil {
		return &StageError{Kind: classify(err, KindResolutionFailure), Title: out.Title, Err: err}
	}
	if meta == nil {
		return &StageError{Kind: KindResolutionFailure, Err: retrieval.ErrNoMetadata}
	}

	done = stageTimer("fetch")
	src, err := o.deps.Fetcher.Fetch(ctx, req.SourceURL, scope)
	done()
	if err != nil {
		return &StageError{Kind: classify(err, KindRetrievalFailure), Title: out.Title, Err: err}
	}

	done = stageTimer("transcode")
	res, err := o.deps.Compressor.Compress(ctx, src, scope)
	done()
	if res != nil {
		out.Attempts = res.Attempts
	}
	if err != nil {
		return &StageError{Kind: classify(err, KindEncodingFailure), Title: out.Title, Err: err}
	}
	if res == nil || res.Artifact == nil {
		return &StageError{Kind: KindEncodingFailure, Title: out.Title, Err: errors.New("compressor returned no artifact")}
	}

	// The source is no longer needed; free the shared working directory early.
	if err := scope.Discard(src); err != nil {
		log.Warn("Failed to remove source early: %v", err)
	}

	size, err := filesystem.SizeOf(res.Artifact.Path)
	if err != nil {
		return &StageError{Kind: KindEncodingFailure, Title: out.Title, Err: fmt.Errorf("compressed output missing: %w", err)}
	}
	out.FinalSize = size
	if size > o.config.DeliveryLimit {
		log.Info("Compressed output %d bytes exceeds delivery limit %d", size, o.config.DeliveryLimit)
		return &StageError{
			Kind:  KindDeliveryLimitExceeded,
			Title: out.Title,
			Err:   fmt.Errorf("%d bytes exceeds delivery limit of %d", size, o.config.DeliveryLimit),
		}
	}

	item := delivery.Item{
		Path:         res.Artifact.Path,
		DisplayName:  out.Title,
		Announcement: delivery.Announcement(req.Author, req.SourceURL, out.Title),
		RequestID:    req.RequestID,
	}
	item.PosterPath = o.poster(ctx, meta, res.Artifact, size, scope)

	done = stageTimer("deliver")
	err = o.deps.Sink.Deliver(ctx, item)
	done()
	sink := o.deps.Sink.Name()
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues(sink, "error").Inc()
		return &StageError{Kind: KindDeliveryFailure, Title: out.Title, Err: err}
	}
	metrics.DeliveriesTotal.WithLabelValues(sink, "success").Inc()
	metrics.DeliveredBytes.Add(float64(size))
	return nil
}

// poster returns the path of a preview image, or "" when the sink does not
// want one or none could be made. Sinks upload the poster alongside the
// video, so a poster that would push the pair past the delivery limit is
// dropped. A poster problem never fails the run.
func (o *Orchestrator) poster(ctx context.Context, meta *retrieval.Metadata, video *artifact.Artifact, videoSize int64, scope *artifact.Scope) string {
	ps, ok := o.deps.Sink.(delivery.PreviewSink)
	if !ok || !ps.WantsPreview() || o.deps.Poster == nil {
		return ""
	}

	log := logging.ForRequest(scope.RequestID())
	poster, err := o.deps.Poster.Poster(ctx, meta.ThumbnailURL, video, scope)
	if err != nil {
		log.Debug("No poster: %v", err)
		return ""
	}

	size, err := filesystem.SizeOf(poster.Path)
	if err == nil && videoSize+size > o.config.DeliveryLimit {
		err = fmt.Errorf("video and poster total %d bytes, delivery limit %d", videoSize+size, o.config.DeliveryLimit)
	}
	if err != nil {
		log.Debug("Dropping poster: %v", err)
		if err := scope.Discard(poster); err != nil {
			log.Warn("Failed to remove poster: %v", err)
		}
		return ""
	}
	return poster.Path
}

func (o *Orchestrator) finish(ctx context.Context, out *Outcome) {
	out.FinishedAt = time.Now()
	log := logging.ForRequest(out.RequestID)

	metrics.PipelineRunsTotal.WithLabelValues(out.Label()).Inc()
	metrics.PipelineRunDuration.Observe(out.Duration().Seconds())

	if out.Delivered {
		log.Info("Delivered %q (%d bytes) in %s", out.Title, out.FinalSize, out.Duration().Round(time.Millisecond))
	} else {
		log.Warn("Not delivered: %s", out.Detail)
	}

	if o.deps.Journal != nil {
		if err := o.deps.Journal.RecordRun(context.WithoutCancel(ctx), *out); err != nil {
			log.Warn("Failed to journal run: %v", err)
		}
	}
}

func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
