package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// OrderLabor is a labor booking owned by an order.
type OrderLabor struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Position      int                 `gorm:"column:position;not null"`
	LaborRateID   uuid.UUID           `gorm:"column:labor_rate_id;type:uuid;not null"`
	SkillName     string              `gorm:"column:skill_name;not null"`
	RateBasis     enums.RateBasis     `gorm:"column:rate_basis;type:text;not null"`
	Rate          decimal.Decimal     `gorm:"column:rate;type:numeric(14,2);not null"`
	HoursBooked   decimal.NullDecimal `gorm:"column:hours_booked;type:numeric(8,2)"`
	DaysBooked    decimal.NullDecimal `gorm:"column:days_booked;type:numeric(8,2)"`
	Workers       int                 `gorm:"column:workers;not null;default:1"`
	ScheduledDate *time.Time          `gorm:"column:scheduled_date"`
	LineTotal     decimal.Decimal     `gorm:"column:line_total;type:numeric(14,2);not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
