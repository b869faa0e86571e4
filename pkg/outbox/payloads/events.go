package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// OrderCreatedEvent announces a new pending offer to a vendor.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	BuyerID        uuid.UUID       `json:"buyer_id"`
	VendorID       uuid.UUID       `json:"vendor_id"`
	OrderType      enums.OrderType `json:"order_type"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	OfferExpiresAt *time.Time      `json:"offer_expires_at,omitempty"`
}

// OrderStateChangedEvent mirrors one OrderStatusHistory row.
type OrderStateChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	VendorID       uuid.UUID         `json:"vendor_id"`
	BuyerID        uuid.UUID         `json:"buyer_id"`
	Event          enums.OrderEvent  `json:"event"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	ActorType      enums.ActorType   `json:"actor_type"`
	Reason         string            `json:"reason,omitempty"`
}

// OrderExpiredEvent is emitted by the offer expiry sweep.
type OrderExpiredEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	VendorID       uuid.UUID `json:"vendor_id"`
	OfferExpiresAt time.Time `json:"offer_expires_at"`
}

// OrderRefundRequiredEvent flags a paid order that was cancelled.
type OrderRefundRequiredEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Reason     string          `json:"reason"`
}

// OrderPaymentRecordedEvent reports money received against an order.
type OrderPaymentRecordedEvent struct {
	OrderID    uuid.UUID           `json:"order_id"`
	Amount     decimal.Decimal     `json:"amount"`
	AmountPaid decimal.Decimal     `json:"amount_paid"`
	Status     enums.PaymentStatus `json:"status"`
}

// OrderDeductionAppliedEvent reports a charge posted against a vendor payout.
type OrderDeductionAppliedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Deductions   decimal.Decimal `json:"deductions"`
	VendorPayout decimal.Decimal `json:"vendor_payout"`
	Reason       string          `json:"reason"`
}

// IssueEvent covers issue reports and resolutions.
type IssueEvent struct {
	IssueID   uuid.UUID         `json:"issue_id"`
	OrderID   uuid.UUID         `json:"order_id"`
	IssueType string            `json:"issue_type"`
	Status    enums.IssueStatus `json:"status"`
}

// DisputeEvent covers every dispute lifecycle change.
type DisputeEvent struct {
	DisputeID      uuid.UUID             `json:"dispute_id"`
	OrderID        uuid.UUID             `json:"order_id"`
	IssueID        *uuid.UUID            `json:"issue_id,omitempty"`
	Reason         enums.DisputeReason   `json:"reason"`
	Status         enums.DisputeStatus   `json:"status"`
	Priority       enums.DisputePriority `json:"priority"`
	DisputedAmount decimal.Decimal       `json:"disputed_amount"`
	RefundAmount   *decimal.Decimal      `json:"refund_amount,omitempty"`
}

// SettlementEvent covers settlement creation and processing.
type SettlementEvent struct {
	SettlementID     uuid.UUID              `json:"settlement_id"`
	SettlementNumber string                 `json:"settlement_number"`
	VendorID         uuid.UUID              `json:"vendor_id"`
	Status           enums.SettlementStatus `json:"status"`
	NetAmount        decimal.Decimal        `json:"net_amount"`
	OrderCount       int                    `json:"order_count"`
	PaymentReference string                 `json:"payment_reference,omitempty"`
}
