package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Delivery carries fulfillment logistics for an order.
type Delivery struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method         enums.DeliveryMethod `gorm:"column:method;type:text;not null"`
	TrackingNumber *string              `gorm:"column:tracking_number"`
	Carrier        *string              `gorm:"column:carrier"`
	ScheduledAt    *time.Time           `gorm:"column:scheduled_at"`
	DispatchedAt   *time.Time           `gorm:"column:dispatched_at"`
	DeliveredAt    *time.Time           `gorm:"column:delivered_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
