package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	ActorID uuid.UUID       `json:"actorId"`
	Type    enums.ActorType `json:"type"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
