package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// OrderView is the public representation of an order aggregate.
type OrderView struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	BuyerID              uuid.UUID           `json:"buyer_id"`
	VendorID             uuid.UUID           `json:"vendor_id"`
	OrderType            enums.OrderType     `json:"order_type"`
	Status               enums.OrderStatus   `json:"status"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	TaxAmount            decimal.Decimal     `json:"tax_amount"`
	DeliveryCharge       decimal.Decimal     `json:"delivery_charge"`
	Discount             decimal.Decimal     `json:"discount"`
	GrandTotal           decimal.Decimal     `json:"grand_total"`
	PlatformFee          decimal.Decimal     `json:"platform_fee"`
	LogisticsFee         decimal.Decimal     `json:"logistics_fee"`
	Deductions           decimal.Decimal     `json:"deductions"`
	VendorPayout         decimal.Decimal     `json:"vendor_payout"`
	OfferedAt            time.Time           `json:"offered_at"`
	OfferExpiresAt       *time.Time          `json:"offer_expires_at,omitempty"`
	RejectionReason      *string             `json:"rejection_reason,omitempty"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time          `json:"actual_delivery_date,omitempty"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
	CancellationReason   *string             `json:"cancellation_reason,omitempty"`
	RefundRequired       bool                `json:"refund_required"`
	HasActiveDispute     bool                `json:"has_active_dispute"`
	ActiveDisputeID      *uuid.UUID          `json:"active_dispute_id,omitempty"`
	SettlementStatus     *enums.PayoutStatus `json:"settlement_status,omitempty"`
	Rating               *int                `json:"rating,omitempty"`
	Review               *string             `json:"review,omitempty"`
	Version              int64               `json:"version"`
	Items                []ItemView          `json:"items"`
	Labor                []LaborView         `json:"labor"`
	Payment              *PaymentView        `json:"payment,omitempty"`
	Delivery             *DeliveryView       `json:"delivery,omitempty"`
}

type ItemView struct {
	ID         uuid.UUID       `json:"id"`
	MaterialID uuid.UUID       `json:"material_id"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	LineTotal  decimal.Decimal `json:"line_total"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
}

type LaborView struct {
	ID            uuid.UUID           `json:"id"`
	LaborRateID   uuid.UUID           `json:"labor_rate_id"`
	SkillName     string              `json:"skill_name"`
	RateBasis     enums.RateBasis     `json:"rate_basis"`
	Rate          decimal.Decimal     `json:"rate"`
	Hours         decimal.NullDecimal `json:"hours"`
	Days          decimal.NullDecimal `json:"days"`
	Workers       int                 `json:"workers"`
	ScheduledDate *time.Time          `json:"scheduled_date,omitempty"`
	LineTotal     decimal.Decimal     `json:"line_total"`
}

type PaymentView struct {
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	Amount         decimal.Decimal     `json:"amount"`
	AmountPaid     decimal.Decimal     `json:"amount_paid"`
	AmountRefunded decimal.Decimal     `json:"amount_refunded"`
	TransactionRef *string             `json:"transaction_ref,omitempty"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
}

type DeliveryView struct {
	Method         enums.DeliveryMethod `json:"method"`
	TrackingNumber *string              `json:"tracking_number,omitempty"`
	Carrier        *string              `json:"carrier,omitempty"`
	DispatchedAt   *time.Time           `json:"dispatched_at,omitempty"`
	DeliveredAt    *time.Time           `json:"delivered_at,omitempty"`
}

// HistoryView is one row of an order's status history.
type HistoryView struct {
	Sequence       int64              `json:"sequence"`
	PreviousStatus *enums.OrderStatus `json:"previous_status,omitempty"`
	NewStatus      enums.OrderStatus  `json:"new_status"`
	Event          *enums.OrderEvent  `json:"event,omitempty"`
	ActorID        *uuid.UUID         `json:"actor_id,omitempty"`
	ActorType      enums.ActorType    `json:"actor_type"`
	Reason         *string            `json:"reason,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		BuyerID:              order.BuyerID,
		VendorID:             order.VendorID,
		OrderType:            order.OrderType,
		Status:               order.Status,
		Subtotal:             order.Subtotal,
		TaxAmount:            order.TaxAmount,
		DeliveryCharge:       order.DeliveryCharge,
		Discount:             order.Discount,
		GrandTotal:           order.GrandTotal,
		PlatformFee:          order.PlatformFee,
		LogisticsFee:         order.LogisticsFee,
		Deductions:           order.Deductions,
		VendorPayout:         order.VendorPayout,
		OfferedAt:            order.OfferedAt,
		OfferExpiresAt:       order.OfferExpiresAt,
		RejectionReason:      order.RejectionReason,
		ExpectedDeliveryDate: order.ExpectedDeliveryDate,
		ActualDeliveryDate:   order.ActualDeliveryDate,
		CompletedAt:          order.CompletedAt,
		CancellationReason:   order.CancellationReason,
		RefundRequired:       order.RefundRequired,
		HasActiveDispute:     order.HasActiveDispute,
		ActiveDisputeID:      order.ActiveDisputeID,
		SettlementStatus:     order.SettlementStatus,
		Rating:               order.Rating,
		Review:               order.Review,
		Version:              order.Version,
		Items:                make([]ItemView, 0, len(order.Items)),
		Labor:                make([]LaborView, 0, len(order.Labor)),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, ItemView{
			ID:         item.ID,
			MaterialID: item.MaterialID,
			Name:       item.Name,
			Unit:       item.Unit,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			TaxRate:    item.TaxRate,
			LineTotal:  item.LineTotal,
			TaxAmount:  item.TaxAmount,
		})
	}
	for _, labor := range order.Labor {
		view.Labor = append(view.Labor, LaborView{
			ID:            labor.ID,
			LaborRateID:   labor.LaborRateID,
			SkillName:     labor.SkillName,
			RateBasis:     labor.RateBasis,
			Rate:          labor.Rate,
			Hours:         labor.HoursBooked,
			Days:          labor.DaysBooked,
			Workers:       labor.Workers,
			ScheduledDate: labor.ScheduledDate,
			LineTotal:     labor.LineTotal,
		})
	}
	if p := order.Payment; p != nil {
		view.Payment = &PaymentView{
			Method:         p.Method,
			Status:         p.Status,
			Amount:         p.Amount,
			AmountPaid:     p.AmountPaid,
			AmountRefunded: p.AmountRefunded,
			TransactionRef: p.TransactionRef,
			PaidAt:         p.PaidAt,
		}
	}
	if d := order.Delivery; d != nil {
		view.Delivery = &DeliveryView{
			Method:         d.Method,
			TrackingNumber: d.TrackingNumber,
			Carrier:        d.Carrier,
			DispatchedAt:   d.DispatchedAt,
			DeliveredAt:    d.DeliveredAt,
		}
	}
	return view
}

func newOrderViews(rows []models.Order) []OrderView {
	out := make([]OrderView, 0, len(rows))
	for i := range rows {
		out = append(out, newOrderView(&rows[i]))
	}
	return out
}

func newHistoryViews(rows []models.OrderStatusHistory) []HistoryView {
	out := make([]HistoryView, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryView{
			Sequence:       row.Sequence,
			PreviousStatus: row.PreviousStatus,
			NewStatus:      row.NewStatus,
			Event:          row.Event,
			ActorID:        row.ActorID,
			ActorType:      row.ActorType,
			Reason:         row.Reason,
			OccurredAt:     row.OccurredAt,
		})
	}
	return out
}
