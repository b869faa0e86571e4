package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a priced material line owned by an order.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	Position   int             `gorm:"column:position;not null"`
	MaterialID uuid.UUID       `gorm:"column:material_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;not null"`
	Unit       string          `gorm:"column:unit;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	TaxRate    decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	LineTotal  decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null"`
	TaxAmount  decimal.Decimal `gorm:"column:tax_amount;type:numeric(14,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
