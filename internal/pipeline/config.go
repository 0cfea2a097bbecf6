package pipeline

import (
	"fmt"
	"time"

	"media-relay/internal/retrieval"
	"media-relay/internal/transcoder"
)

// Size constants.
const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
)

// Config holds the thresholds and ladder for an Orchestrator.
type Config struct {
	// PreflightBudget rejects sources whose declared size is larger.
	PreflightBudget int64
	// IntermediateTarget is the size the compression ladder aims for.
	IntermediateTarget int64
	// DeliveryLimit is the hard limit checked before handing off to the sink.
	DeliveryLimit int64
	// RenditionPreference is the retrieval format selector.
	RenditionPreference string
	LadderRungs         []int
	FallbackScale       string
	// RunTimeout bounds a whole run when positive.
	RunTimeout time.Duration
}

// DefaultConfig returns the standard thresholds: 100 MiB pre-flight, 10 MiB
// intermediate and 8 MiB delivery.
func DefaultConfig() Config {
	return Config{
		PreflightBudget:     100 * MiB,
		IntermediateTarget:  10 * MiB,
		DeliveryLimit:       8 * MiB,
		RenditionPreference: retrieval.DefaultFormat,
		LadderRungs:         append([]int(nil), transcoder.DefaultRungs...),
		FallbackScale:       transcoder.DefaultFallbackScale,
	}
}

// Validate checks threshold ordering and the ladder.
func (c Config) Validate() error {
	if c.DeliveryLimit <= 0 {
		return fmt.Errorf("delivery limit must be positive, got %d", c.DeliveryLimit)
	}
	if c.DeliveryLimit >= c.IntermediateTarget {
		return fmt.Errorf("delivery limit (%d) must be below the intermediate target (%d)", c.DeliveryLimit, c.IntermediateTarget)
	}
	if c.IntermediateTarget >= c.PreflightBudget {
		return fmt.Errorf("intermediate target (%d) must be below the pre-flight budget (%d)", c.IntermediateTarget, c.PreflightBudget)
	}
	if c.RenditionPreference == "" {
		return fmt.Errorf("rendition preference must be set")
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative")
	}
	return c.ladderConfig().Validate()
}

func (c Config) ladderConfig() transcoder.LadderConfig {
	return transcoder.LadderConfig{
		Rungs:              c.LadderRungs,
		IntermediateTarget: c.IntermediateTarget,
		FallbackScale:      c.FallbackScale,
	}
}
