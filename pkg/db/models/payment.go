package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Payment tracks the buyer's money for an order. AmountRefunded never exceeds Amount.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method         enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	AmountPaid     decimal.Decimal     `gorm:"column:amount_paid;type:numeric(14,2);not null;default:0"`
	AmountRefunded decimal.Decimal     `gorm:"column:amount_refunded;type:numeric(14,2);not null;default:0"`
	TransactionRef *string             `gorm:"column:transaction_ref"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
