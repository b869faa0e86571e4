package orders

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/api/middleware"
	"github.com/angelmondragon/buildmart-backend/api/responses"
	"github.com/angelmondragon/buildmart-backend/api/validators"
	internalorders "github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

type createItemRequest struct {
	MaterialID string          `json:"material_id" validate:"required,uuid"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
}

type createLaborRequest struct {
	LaborRateID   string              `json:"labor_rate_id" validate:"required,uuid"`
	Hours         decimal.NullDecimal `json:"hours" validate:"omitempty,gte=0"`
	Days          decimal.NullDecimal `json:"days" validate:"omitempty,gte=0"`
	Workers       int                 `json:"workers" validate:"gte=1"`
	ScheduledDate *time.Time          `json:"scheduled_date"`
}

type createOrderRequest struct {
	BuyerID           string               `json:"buyer_id" validate:"omitempty,uuid"`
	VendorID          string               `json:"vendor_id" validate:"required,uuid"`
	Items             []createItemRequest  `json:"items" validate:"dive"`
	Labor             []createLaborRequest `json:"labor" validate:"dive"`
	DeliveryAddressID string               `json:"delivery_address_id" validate:"omitempty,uuid"`
	DeliveryMethod    string               `json:"delivery_method" validate:"required"`
	PaymentMethod     string               `json:"payment_method" validate:"required"`
	DeliveryCharge    *decimal.Decimal     `json:"delivery_charge" validate:"omitempty,gte=0"`
	Discount          decimal.Decimal      `json:"discount" validate:"gte=0"`
}

type transitionRequest struct {
	Reason         string `json:"reason" validate:"max=500"`
	TrackingNumber string `json:"tracking_number" validate:"max=128"`
	Carrier        string `json:"carrier" validate:"max=128"`
}

type paymentRequest struct {
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	TransactionRef string          `json:"transaction_ref" validate:"max=128"`
}

type correctQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Reason   string          `json:"reason" validate:"required,max=500"`
}

type deductionRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

type rateRequest struct {
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
	Review string `json:"review" validate:"max=2000"`
}

// Create places a new order offer. Buyers order for themselves; admins must
// name the buyer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			Actor:          actor,
			VendorID:       uuid.MustParse(body.VendorID),
			DeliveryMethod: enums.DeliveryMethod(body.DeliveryMethod),
			PaymentMethod:  enums.PaymentMethod(body.PaymentMethod),
			DeliveryCharge: body.DeliveryCharge,
			Discount:       body.Discount,
		}
		switch {
		case body.BuyerID != "":
			input.BuyerID = uuid.MustParse(body.BuyerID)
		case actor.Type == enums.ActorBuyer:
			input.BuyerID = actor.ID
		}
		if body.DeliveryAddressID != "" {
			id := uuid.MustParse(body.DeliveryAddressID)
			input.DeliveryAddressID = &id
		}
		for _, item := range body.Items {
			input.Items = append(input.Items, internalorders.ItemInput{
				MaterialID: uuid.MustParse(item.MaterialID),
				Quantity:   item.Quantity,
			})
		}
		for _, booking := range body.Labor {
			input.Labor = append(input.Labor, internalorders.LaborInput{
				LaborRateID:   uuid.MustParse(booking.LaborRateID),
				Hours:         booking.Hours,
				Days:          booking.Days,
				Workers:       booking.Workers,
				ScheduledDate: booking.ScheduledDate,
			})
		}

		order, err := svc.CreateOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
	}
}

// Detail returns an order to its buyer, its vendor or an admin.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		order, err := loadVisible(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// History returns the ordered status history of an order.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		order, err := loadVisible(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.History(ctx, order.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newHistoryViews(rows))
	}
}

// VendorList lists the calling vendor's orders. Admins pass vendor_id.
func VendorList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		vendorID := actor.ID
		if actor.Type == enums.ActorAdmin {
			raw := strings.TrimSpace(r.URL.Query().Get("vendor_id"))
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id query parameter required").
					WithDetails(map[string]any{"field": "vendor_id"}))
				return
			}
			vendorID = parsed
		} else if actor.Type != enums.ActorVendor {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		rows, err := svc.ListVendorOrders(ctx, vendorID, status, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderViews(rows))
	}
}

func Accept(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.VendorAccept, logg)
}

func Reject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.VendorReject, logg)
}

func StartProcessing(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.StartProcessing, logg)
}

func MarkReady(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.MarkReady, logg)
}

func Dispatch(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Dispatch, logg)
}

func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Deliver, logg)
}

func Complete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Complete, logg)
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc.Cancel, logg)
}

type transitionFunc func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error)

// transition adapts one lifecycle operation. The body is optional and only
// carries a reason or dispatch details.
func transition(apply transitionFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body transitionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		order, err := apply(ctx, internalorders.TransitionInput{
			OrderID:        orderID,
			Actor:          actor,
			Reason:         validators.SanitizeString(body.Reason, 500),
			TrackingNumber: validators.SanitizeString(body.TrackingNumber, 128),
			Carrier:        validators.SanitizeString(body.Carrier, 128),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// RecordPayment records money received against an order.
func RecordPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body paymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.RecordPayment(ctx, internalorders.RecordPaymentInput{
			OrderID:        orderID,
			Actor:          actor,
			Amount:         body.Amount,
			TransactionRef: body.TransactionRef,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
	}
}

// CorrectQuantity adjusts one material line and returns the recomputed order.
func CorrectQuantity(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body correctQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.CorrectQuantity(ctx, internalorders.CorrectQuantityInput{
			OrderID:  orderID,
			ItemID:   itemID,
			Actor:    actor,
			Quantity: body.Quantity,
			Reason:   validators.SanitizeString(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// ApplyDeduction posts an admin charge against the vendor's payout.
func ApplyDeduction(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body deductionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.ApplyDeduction(ctx, internalorders.DeductionInput{
			OrderID: orderID,
			Actor:   actor,
			Amount:  body.Amount,
			Reason:  validators.SanitizeString(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// Rate stores the buyer's feedback on a completed order.
func Rate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body rateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Rate(ctx, internalorders.RateInput{
			OrderID: orderID,
			Actor:   actor,
			Rating:  body.Rating,
			Review:  validators.SanitizeString(body.Review, 2000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func loadVisible(r *http.Request, svc internalorders.Service) (*models.Order, error) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		return nil, err
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return nil, err
	}
	order, err := svc.Get(r.Context(), orderID)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
	}
	return order, nil
}

// CanView reports whether actor is a party to the order or an admin.
func CanView(actor types.Actor, order *models.Order) bool {
	return actor.Type == enums.ActorAdmin ||
		actor.Is(enums.ActorBuyer, order.BuyerID) ||
		actor.Is(enums.ActorVendor, order.VendorID)
}
