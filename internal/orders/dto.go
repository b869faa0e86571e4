package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

// ItemInput is one material line requested by the buyer.
type ItemInput struct {
	MaterialID uuid.UUID
	Quantity   decimal.Decimal
}

// LaborInput is one labor booking requested by the buyer.
type LaborInput struct {
	LaborRateID   uuid.UUID
	Hours         decimal.NullDecimal
	Days          decimal.NullDecimal
	Workers       int
	ScheduledDate *time.Time
}

// CreateOrderInput carries everything needed to place an order offer.
type CreateOrderInput struct {
	Actor             types.Actor
	BuyerID           uuid.UUID
	VendorID          uuid.UUID
	Items             []ItemInput
	Labor             []LaborInput
	DeliveryAddressID *uuid.UUID
	DeliveryMethod    enums.DeliveryMethod
	PaymentMethod     enums.PaymentMethod
	// DeliveryCharge overrides the configured default when set.
	DeliveryCharge *decimal.Decimal
	Discount       decimal.Decimal
}

// TransitionInput drives a single lifecycle event.
type TransitionInput struct {
	OrderID uuid.UUID
	Actor   types.Actor
	Reason  string
	// TrackingNumber and Carrier are only read on dispatch.
	TrackingNumber string
	Carrier        string
}

// RecordPaymentInput records money received against an order.
type RecordPaymentInput struct {
	OrderID        uuid.UUID
	Actor          types.Actor
	Amount         decimal.Decimal
	TransactionRef string
}

// CorrectQuantityInput adjusts one material line's quantity.
type CorrectQuantityInput struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Actor    types.Actor
	Quantity decimal.Decimal
	Reason   string
}

// DeductionInput posts a charge against the vendor's payout.
type DeductionInput struct {
	OrderID uuid.UUID
	Actor   types.Actor
	Amount  decimal.Decimal
	Reason  string
}

// RateInput is the buyer's post-completion feedback.
type RateInput struct {
	OrderID uuid.UUID
	Actor   types.Actor
	Rating  int
	Review  string
}

// SweepResult summarises a background sweep run.
type SweepResult struct {
	Processed int
	Skipped   int
}
