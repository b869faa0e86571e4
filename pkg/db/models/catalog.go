package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Material is a vendor's priced catalog entry.
type Material struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Unit      string          `gorm:"column:unit;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	TaxRate   decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	Active    bool            `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LaborRate is a vendor's quoted price for a labor skill.
type LaborRate struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	SkillName string          `gorm:"column:skill_name;not null"`
	RateBasis enums.RateBasis `gorm:"column:rate_basis;type:text;not null"`
	Rate      decimal.Decimal `gorm:"column:rate;type:numeric(14,2);not null"`
	Active    bool            `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
