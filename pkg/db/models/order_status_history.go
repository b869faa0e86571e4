package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// OrderStatusHistory is an append-only audit row written with every order transition.
type OrderStatusHistory struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index:idx_order_status_history_order_seq,priority:1"`
	Sequence       int64              `gorm:"column:sequence;not null;index:idx_order_status_history_order_seq,priority:2"`
	PreviousStatus *enums.OrderStatus `gorm:"column:previous_status;type:text"`
	NewStatus      enums.OrderStatus  `gorm:"column:new_status;type:text;not null"`
	Event          *enums.OrderEvent  `gorm:"column:event;type:text"`
	ActorID        *uuid.UUID         `gorm:"column:actor_id;type:uuid"`
	ActorType      enums.ActorType    `gorm:"column:actor_type;type:text;not null"`
	Reason         *string            `gorm:"column:reason"`
	OccurredAt     time.Time          `gorm:"column:occurred_at;not null"`
}

// TableName pins the audit table name.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
