package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// DisputeTimelineEntry is an append-only record of a dispute state change.
type DisputeTimelineEntry struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DisputeID   uuid.UUID       `gorm:"column:dispute_id;type:uuid;not null;index:idx_dispute_timeline_dispute_seq,priority:1"`
	Sequence    int64           `gorm:"column:sequence;not null;index:idx_dispute_timeline_dispute_seq,priority:2"`
	ActorID     *uuid.UUID      `gorm:"column:actor_id;type:uuid"`
	ActorType   enums.ActorType `gorm:"column:actor_type;type:text;not null"`
	Action      string          `gorm:"column:action;not null"`
	Description string          `gorm:"column:description;not null"`
	Metadata    map[string]any  `gorm:"column:metadata;type:jsonb;serializer:json"`
	OccurredAt  time.Time       `gorm:"column:occurred_at;not null"`
}

// TableName pins the timeline table name.
func (DisputeTimelineEntry) TableName() string {
	return "dispute_timeline"
}
