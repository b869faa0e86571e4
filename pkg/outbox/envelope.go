package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

// Envelope is the JSON document stored in outbox_events.payload and
// published verbatim. EventID equals the outbox row id, so subscribers can
// deduplicate redeliveries on it.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	EventID       uuid.UUID       `json:"event_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Actor         *ActorRef       `json:"actor,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// ActorRef names whoever caused the event. ID is absent for system sweeps.
type ActorRef struct {
	ID   *uuid.UUID      `json:"id,omitempty"`
	Type enums.ActorType `json:"type"`
}

// ActorOf converts an authenticated actor into its event reference.
func ActorOf(actor types.Actor) *ActorRef {
	return &ActorRef{ID: actor.IDPtr(), Type: actor.Type}
}
