package retrieval

import (
	"context"
	"fmt"

	"media-relay/internal/logging"
	"media-relay/internal/metrics"
)

// Prober resolves source metadata and applies the pre-flight size budget.
type Prober struct {
	client Client
	format string
	budget int64
}

// NewProber creates a prober. budget is the declared-size rejection threshold
// in bytes.
func NewProber(client Client, format string, budget int64) *Prober {
	return &Prober{client: client, format: format, budget: budget}
}

// Probe returns the source metadata. It fails with ErrResolutionFailure when
// nothing could be resolved, and with ErrTooLargeForRetrieval (alongside the
// metadata, so the title is still available) when the declared size is known
// and exceeds the budget. An unknown size never blocks.
func (p *Prober) Probe(ctx context.Context, url string) (*Metadata, error) {
	meta, err := p.client.Probe(ctx, url, p.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolutionFailure, err)
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %w", ErrResolutionFailure, ErrNoMetadata)
	}
	if meta.DeclaredSize < 0 {
		meta.DeclaredSize = 0
	}

	metrics.PreflightDeclaredBytes.Observe(float64(meta.DeclaredSize))

	if meta.DeclaredSize > p.budget {
		logging.Info("Source too large: %d bytes declared, budget %d (%s)", meta.DeclaredSize, p.budget, url)
		return meta, fmt.Errorf("%w: declared %d bytes, budget %d", ErrTooLargeForRetrieval, meta.DeclaredSize, p.budget)
	}

	if meta.DeclaredSize == 0 {
		logging.Debug("Source size unknown, continuing: %s", url)
	}
	return meta, nil
}
