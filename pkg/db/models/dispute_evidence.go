package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// DisputeEvidence is immutable once uploaded.
type DisputeEvidence struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	DisputeID    uuid.UUID          `gorm:"column:dispute_id;type:uuid;not null;index"`
	Type         enums.EvidenceType `gorm:"column:type;type:text;not null"`
	URL          string             `gorm:"column:url;not null"`
	UploadedBy   uuid.UUID          `gorm:"column:uploaded_by;type:uuid;not null"`
	UploaderRole enums.ActorType    `gorm:"column:uploader_role;type:text;not null"`
	Description  *string            `gorm:"column:description"`
	UploadedAt   time.Time          `gorm:"column:uploaded_at;not null"`
}

// TableName pins the evidence table name.
func (DisputeEvidence) TableName() string {
	return "dispute_evidence"
}
