package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Settlement aggregates one vendor's payouts for a settlement cycle.
type Settlement struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	SettlementNumber     string                 `gorm:"column:settlement_number;type:text;not null;uniqueIndex"`
	VendorID             uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	CycleStart           time.Time              `gorm:"column:cycle_start;not null"`
	CutoffAt             time.Time              `gorm:"column:cutoff_at;not null"`
	TotalAmount          decimal.Decimal        `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Deductions           decimal.Decimal        `gorm:"column:deductions;type:numeric(14,2);not null;default:0"`
	Adjustment           decimal.Decimal        `gorm:"column:adjustment;type:numeric(14,2);not null;default:0"`
	NetAmount            decimal.Decimal        `gorm:"column:net_amount;type:numeric(14,2);not null;default:0"`
	OrderCount           int                    `gorm:"column:order_count;not null;default:0"`
	BankDetails          *BankDetails           `gorm:"column:bank_details;type:jsonb;serializer:json"`
	Status               enums.SettlementStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentReference     *string                `gorm:"column:payment_reference"`
	SettlementDate       time.Time              `gorm:"column:settlement_date;not null"`
	ProcessedAt          *time.Time             `gorm:"column:processed_at"`
	CorrectsSettlementID *uuid.UUID             `gorm:"column:corrects_settlement_id;type:uuid"`
	Notes                *string                `gorm:"column:notes"`
	Lines                []SettlementLine       `gorm:"foreignKey:SettlementID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BankDetails is the payout account snapshot frozen onto a settlement.
type BankDetails struct {
	AccountHolder       string `json:"account_holder"`
	AccountNumberMasked string `json:"account_number_masked"`
	IFSC                string `json:"ifsc"`
	BankName            string `json:"bank_name"`
}

// SettlementLine records one order's contribution to a settlement.
type SettlementLine struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SettlementID uuid.UUID       `gorm:"column:settlement_id;type:uuid;not null;index"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	OrderNumber  string          `gorm:"column:order_number;not null"`
	Payout       decimal.Decimal `gorm:"column:payout;type:numeric(14,2);not null"`
	Deductions   decimal.Decimal `gorm:"column:deductions;type:numeric(14,2);not null;default:0"`
	CompletedAt  time.Time       `gorm:"column:completed_at;not null"`
}
