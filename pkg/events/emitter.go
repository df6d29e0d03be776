// Package events emits domain events for merges and import runs.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/kafka"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes route planner lifecycle events. Event emission is
// best-effort: failures are logged, never propagated, so a broker outage
// cannot fail a merge or an import run.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// CompanyMerged emits a company.merged event.
func (e *Emitter) CompanyMerged(ctx context.Context, decision models.MergeDecision, provenance string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.CompanyMerged")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version":   SchemaVersion,
		"source_id":        decision.SourceID,
		"target_id":        decision.TargetID,
		"matched_score":    decision.MatchedScore,
		"matched_distance": decision.MatchedDistance,
		"provenance":       provenance,
	})

	event := &kafka.Event{
		EventType: "company.merged",
		Key:       decision.TargetID,
		Data:      data,
	}

	if err := e.producer.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit company.merged event")
	}
}

// ImportCompleted emits an import.completed event with the run's summary.
func (e *Emitter) ImportCompleted(ctx context.Context, summary models.ImportSummary) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ImportCompleted")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"summary":        summary,
	})

	event := &kafka.Event{
		EventType: "import.completed",
		Key:       "import",
		Data:      data,
	}

	if err := e.producer.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit import.completed event")
	}
}
