package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// OrderIssue is a lightweight problem report against an order.
type OrderIssue struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ReporterID         uuid.UUID         `gorm:"column:reporter_id;type:uuid;not null"`
	ReporterRole       enums.ActorType   `gorm:"column:reporter_role;type:text;not null"`
	Description        string            `gorm:"column:description;not null"`
	IssueType          string            `gorm:"column:issue_type;not null"`
	Status             enums.IssueStatus `gorm:"column:status;type:text;not null;default:'open'"`
	Resolution         *string           `gorm:"column:resolution"`
	ResolvedBy         *uuid.UUID        `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt         *time.Time        `gorm:"column:resolved_at"`
	EscalatedToDispute bool              `gorm:"column:escalated_to_dispute;not null;default:false"`
	DisputeID          *uuid.UUID        `gorm:"column:dispute_id;type:uuid"`
	EscalatedAt        *time.Time        `gorm:"column:escalated_at"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
