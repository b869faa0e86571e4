package types

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Actor is the authenticated party performing an engine operation.
type Actor struct {
	ID   uuid.UUID
	Type enums.ActorType
}

// SystemActor is used by sweeps and batch jobs.
func SystemActor() Actor {
	return Actor{Type: enums.ActorSystem}
}

// Validate checks the actor type and that non-system actors carry an id.
func (a Actor) Validate() error {
	if !a.Type.IsValid() {
		return fmt.Errorf("invalid actor type %q", a.Type)
	}
	if a.Type != enums.ActorSystem && a.ID == uuid.Nil {
		return fmt.Errorf("actor id required for %s", a.Type)
	}
	return nil
}

// IDPtr returns nil for system actors.
func (a Actor) IDPtr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

// Is reports whether the actor is of type t with the given id.
func (a Actor) Is(t enums.ActorType, id uuid.UUID) bool {
	return a.Type == t && a.ID == id
}
