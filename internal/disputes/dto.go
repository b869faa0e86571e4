package disputes

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

// CreateInput opens a dispute against an order.
type CreateInput struct {
	OrderID        uuid.UUID
	Actor          types.Actor
	Reason         enums.DisputeReason
	Description    string
	DisputedAmount decimal.Decimal
	// IssueID links the dispute to the issue it was escalated from.
	IssueID *uuid.UUID
	// Priority overrides the derived priority when set.
	Priority *enums.DisputePriority
}

// AssignInput hands a dispute to a back-office agent.
type AssignInput struct {
	DisputeID  uuid.UUID
	Actor      types.Actor
	AssigneeID uuid.UUID
}

// EvidenceInput attaches one piece of evidence.
type EvidenceInput struct {
	DisputeID   uuid.UUID
	Actor       types.Actor
	Type        enums.EvidenceType
	URL         string
	Description string
}

// ResolveInput closes a dispute with an outcome.
type ResolveInput struct {
	DisputeID    uuid.UUID
	Actor        types.Actor
	Outcome      enums.DisputeStatus
	RefundAmount *decimal.Decimal
	Note         string
}

// EscalateInput raises a dispute to critical.
type EscalateInput struct {
	DisputeID uuid.UUID
	Actor     types.Actor
	Reason    string
}
