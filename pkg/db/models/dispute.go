package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Dispute is a back-office case raised against an order.
type Dispute struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	IssueID        *uuid.UUID            `gorm:"column:issue_id;type:uuid"`
	BuyerID        uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	VendorID       uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;index"`
	Reason         enums.DisputeReason   `gorm:"column:reason;type:text;not null"`
	Description    string                `gorm:"column:description;not null"`
	Status         enums.DisputeStatus   `gorm:"column:status;type:text;not null;default:'open'"`
	Priority       enums.DisputePriority `gorm:"column:priority;type:text;not null"`
	DisputedAmount decimal.Decimal       `gorm:"column:disputed_amount;type:numeric(14,2);not null"`
	RefundAmount   decimal.NullDecimal   `gorm:"column:refund_amount;type:numeric(14,2)"`
	RaisedBy       uuid.UUID             `gorm:"column:raised_by;type:uuid;not null"`
	RaisedByRole   enums.ActorType       `gorm:"column:raised_by_role;type:text;not null"`

	AssignedTo       *uuid.UUID `gorm:"column:assigned_to;type:uuid"`
	AssignedAt       *time.Time `gorm:"column:assigned_at"`
	ResolutionNote   *string    `gorm:"column:resolution_note"`
	ResolvedAt       *time.Time `gorm:"column:resolved_at"`
	ResolvedBy       *uuid.UUID `gorm:"column:resolved_by;type:uuid"`
	EscalationReason *string    `gorm:"column:escalation_reason"`
	EscalatedAt      *time.Time `gorm:"column:escalated_at"`
	Version          int64      `gorm:"column:version;not null;default:1"`

	Evidence  []DisputeEvidence      `gorm:"foreignKey:DisputeID;constraint:OnDelete:CASCADE"`
	Timeline  []DisputeTimelineEntry `gorm:"foreignKey:DisputeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
