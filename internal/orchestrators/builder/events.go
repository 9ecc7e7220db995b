package builder

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
)

// Event types published on the configured bus
const (
	EventStepApplied      = "builder.draft.step_applied"
	EventReadyForFinalize = "builder.draft.ready_for_finalize"
)

// Event context keys
const (
	ContextKeyOwnerID        = "owner_id"
	ContextKeyStep           = "step"
	ContextKeyStatus         = "status"
	ContextKeyPreviousStatus = "previous_status"
)

// publish emits eventType with the draft as source.
// The draft is already persisted, so a failing subscriber is logged and not returned.
func (o *Orchestrator) publish(ctx context.Context, eventType string, draft *entities.Draft, data map[string]any) {
	if o.eventBus == nil {
		return
	}

	event := events.NewGameEvent(eventType, draft, nil)
	event.Context().Set(ContextKeyOwnerID, draft.OwnerID)
	for k, v := range data {
		event.Context().Set(k, v)
	}

	if err := o.eventBus.Publish(ctx, event); err != nil {
		slog.Warn("event subscriber failed",
			"event", eventType,
			"draft_id", draft.ID,
			"error", err)
	}
}
