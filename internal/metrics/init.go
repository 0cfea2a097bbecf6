package metrics

// Label values shared with the packages that record them.
var (
	RungLabels       = []string{"1", "2", "3", "4", "fallback"}
	AttemptResults   = []string{"fit", "too_large", "failed"}
	ArtifactKinds    = []string{"source", "compressed", "thumbnail"}
	PipelineStages   = []string{"probe", "fetch", "transcode", "deliver"}
	PipelineOutcomes = []string{
		"delivered",
		"resolution_failure",
		"too_large_for_retrieval",
		"retrieval_failure",
		"encoding_failure",
		"compression_exhausted",
		"delivery_limit_exceeded",
		"delivery_failure",
		"internal_failure",
	}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range PipelineOutcomes {
		PipelineRunsTotal.WithLabelValues(outcome)
	}

	for _, stage := range PipelineStages {
		PipelineStageDuration.WithLabelValues(stage)
	}

	for _, rung := range RungLabels {
		for _, result := range AttemptResults {
			LadderAttemptsTotal.WithLabelValues(rung, result)
		}
	}

	for _, kind := range ArtifactKinds {
		ArtifactsCreatedTotal.WithLabelValues(kind)
		ArtifactsRemovedTotal.WithLabelValues(kind)
		ArtifactRemoveErrors.WithLabelValues(kind)
	}

	for _, sink := range []string{"directory", "webhook"} {
		DeliveriesTotal.WithLabelValues(sink, "success")
		DeliveriesTotal.WithLabelValues(sink, "error")
	}

	for _, source := range []string{"remote", "frame"} {
		PosterGenerationsTotal.WithLabelValues(source, "success")
		PosterGenerationsTotal.WithLabelValues(source, "error")
	}

	for _, action := range []string{"ingest", "acknowledge", "ignore"} {
		TriggerDecisionsTotal.WithLabelValues(action)
	}

	for _, op := range []string{"initialize_schema", "record_run", "list_runs", "get_run", "count_runs"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "remove"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
