package disputes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// DisputeView is the public shape of a dispute.
type DisputeView struct {
	ID               uuid.UUID             `json:"id"`
	OrderID          uuid.UUID             `json:"order_id"`
	IssueID          *uuid.UUID            `json:"issue_id,omitempty"`
	BuyerID          uuid.UUID             `json:"buyer_id"`
	VendorID         uuid.UUID             `json:"vendor_id"`
	Reason           enums.DisputeReason   `json:"reason"`
	Description      string                `json:"description"`
	Status           enums.DisputeStatus   `json:"status"`
	Priority         enums.DisputePriority `json:"priority"`
	DisputedAmount   decimal.Decimal       `json:"disputed_amount"`
	RefundAmount     decimal.NullDecimal   `json:"refund_amount"`
	RaisedBy         uuid.UUID             `json:"raised_by"`
	RaisedByRole     enums.ActorType       `json:"raised_by_role"`
	AssignedTo       *uuid.UUID            `json:"assigned_to,omitempty"`
	AssignedAt       *time.Time            `json:"assigned_at,omitempty"`
	ResolutionNote   *string               `json:"resolution_note,omitempty"`
	ResolvedAt       *time.Time            `json:"resolved_at,omitempty"`
	ResolvedBy       *uuid.UUID            `json:"resolved_by,omitempty"`
	EscalationReason *string               `json:"escalation_reason,omitempty"`
	EscalatedAt      *time.Time            `json:"escalated_at,omitempty"`
	Version          int64                 `json:"version"`
	Evidence         []EvidenceView        `json:"evidence"`
	CreatedAt        time.Time             `json:"created_at"`
}

type EvidenceView struct {
	ID           uuid.UUID          `json:"id"`
	Type         enums.EvidenceType `json:"type"`
	URL          string             `json:"url"`
	UploadedBy   uuid.UUID          `json:"uploaded_by"`
	UploaderRole enums.ActorType    `json:"uploader_role"`
	Description  *string            `json:"description,omitempty"`
	UploadedAt   time.Time          `json:"uploaded_at"`
}

type TimelineView struct {
	Sequence    int64           `json:"sequence"`
	ActorID     *uuid.UUID      `json:"actor_id,omitempty"`
	ActorType   enums.ActorType `json:"actor_type"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewDisputeView maps a dispute and any preloaded evidence.
func NewDisputeView(d *models.Dispute) DisputeView {
	view := DisputeView{
		ID:               d.ID,
		OrderID:          d.OrderID,
		IssueID:          d.IssueID,
		BuyerID:          d.BuyerID,
		VendorID:         d.VendorID,
		Reason:           d.Reason,
		Description:      d.Description,
		Status:           d.Status,
		Priority:         d.Priority,
		DisputedAmount:   d.DisputedAmount,
		RefundAmount:     d.RefundAmount,
		RaisedBy:         d.RaisedBy,
		RaisedByRole:     d.RaisedByRole,
		AssignedTo:       d.AssignedTo,
		AssignedAt:       d.AssignedAt,
		ResolutionNote:   d.ResolutionNote,
		ResolvedAt:       d.ResolvedAt,
		ResolvedBy:       d.ResolvedBy,
		EscalationReason: d.EscalationReason,
		EscalatedAt:      d.EscalatedAt,
		Version:          d.Version,
		Evidence:         make([]EvidenceView, 0, len(d.Evidence)),
		CreatedAt:        d.CreatedAt,
	}
	for i := range d.Evidence {
		view.Evidence = append(view.Evidence, newEvidenceView(&d.Evidence[i]))
	}
	return view
}

func newEvidenceView(e *models.DisputeEvidence) EvidenceView {
	return EvidenceView{
		ID:           e.ID,
		Type:         e.Type,
		URL:          e.URL,
		UploadedBy:   e.UploadedBy,
		UploaderRole: e.UploaderRole,
		Description:  e.Description,
		UploadedAt:   e.UploadedAt,
	}
}

func newTimelineViews(rows []models.DisputeTimelineEntry) []TimelineView {
	out := make([]TimelineView, 0, len(rows))
	for _, row := range rows {
		out = append(out, TimelineView{
			Sequence:    row.Sequence,
			ActorID:     row.ActorID,
			ActorType:   row.ActorType,
			Action:      row.Action,
			Description: row.Description,
			Metadata:    row.Metadata,
			OccurredAt:  row.OccurredAt,
		})
	}
	return out
}
