package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Order is the aggregate root for one buyer transaction with a single vendor.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string            `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	BuyerID           uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	VendorID          uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null"`
	OrderType         enums.OrderType   `gorm:"column:order_type;type:text;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DeliveryAddressID *uuid.UUID        `gorm:"column:delivery_address_id;type:uuid"`

	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null;default:0"`
	TaxAmount       decimal.Decimal `gorm:"column:tax_amount;type:numeric(14,2);not null;default:0"`
	DeliveryCharge  decimal.Decimal `gorm:"column:delivery_charge;type:numeric(14,2);not null;default:0"`
	Discount        decimal.Decimal `gorm:"column:discount;type:numeric(14,2);not null;default:0"`
	GrandTotal      decimal.Decimal `gorm:"column:grand_total;type:numeric(14,2);not null;default:0"`
	PlatformFeeRate decimal.Decimal `gorm:"column:platform_fee_rate;type:numeric(5,2);not null;default:0"`
	PlatformFee     decimal.Decimal `gorm:"column:platform_fee;type:numeric(14,2);not null;default:0"`
	LogisticsFee    decimal.Decimal `gorm:"column:logistics_fee;type:numeric(14,2);not null;default:0"`
	Deductions      decimal.Decimal `gorm:"column:deductions;type:numeric(14,2);not null;default:0"`
	VendorPayout    decimal.Decimal `gorm:"column:vendor_payout;type:numeric(14,2);not null;default:0"`

	OfferedAt       time.Time  `gorm:"column:offered_at;not null"`
	OfferExpiresAt  *time.Time `gorm:"column:offer_expires_at"`
	RespondedAt     *time.Time `gorm:"column:responded_at"`
	AcceptedAt      *time.Time `gorm:"column:accepted_at"`
	RejectedAt      *time.Time `gorm:"column:rejected_at"`
	RejectionReason *string    `gorm:"column:rejection_reason"`

	ProcessingAt         *time.Time `gorm:"column:processing_at"`
	ReadyAt              *time.Time `gorm:"column:ready_at"`
	ExpectedDeliveryDate *time.Time `gorm:"column:expected_delivery_date"`
	ActualDeliveryDate   *time.Time `gorm:"column:actual_delivery_date"`
	CompletedAt          *time.Time `gorm:"column:completed_at"`
	CancelledAt          *time.Time `gorm:"column:cancelled_at"`
	CancellationReason   *string    `gorm:"column:cancellation_reason"`
	RefundRequired       bool       `gorm:"column:refund_required;not null;default:false"`

	HasActiveDispute bool                `gorm:"column:has_active_dispute;not null;default:false"`
	ActiveDisputeID  *uuid.UUID          `gorm:"column:active_dispute_id;type:uuid;index"`
	SettlementID     *uuid.UUID          `gorm:"column:settlement_id;type:uuid"`
	SettlementStatus *enums.PayoutStatus `gorm:"column:settlement_status;type:text"`
	SettledAt        *time.Time          `gorm:"column:settled_at"`

	Rating  *int       `gorm:"column:rating"`
	Review  *string    `gorm:"column:review"`
	RatedAt *time.Time `gorm:"column:rated_at"`
	Version int64      `gorm:"column:version;not null;default:1"`

	Items     []OrderItem  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Labor     []OrderLabor `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment   *Payment     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery  *Delivery    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
