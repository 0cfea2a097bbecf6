// Package pipeline runs one media request from URL to delivery.
//
// An Orchestrator sequences the prober, fetcher and compression ladder,
// applies the delivery size gate, hands the result to a delivery.Sink and
// releases every request-scoped artifact on every exit path, panics
// included. Each run returns an Outcome; failures are classified into a
// StageError Kind and never escape as errors or panics.
//
// Size thresholds and the ladder are fixed per Orchestrator by Config, whose
// limits must satisfy DeliveryLimit < IntermediateTarget < PreflightBudget.
package pipeline
