package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ActorID   uuid.UUID
	ActorType enums.ActorType
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to buyers, vendors and
// back-office staff.
type AccessTokenClaims struct {
	ActorID   uuid.UUID       `json:"actor_id"`
	ActorType enums.ActorType `json:"actor_type"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the engine's actor identity.
func (c AccessTokenClaims) Actor() types.Actor {
	return types.Actor{ID: c.ActorID, Type: c.ActorType}
}
