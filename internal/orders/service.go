package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/clock"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	"github.com/angelmondragon/buildmart-backend/pkg/metrics"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

const (
	expiredOfferReason = "offer expired without vendor response"
	autoCompleteReason = "auto-completed after delivery window"
	defaultSweepLimit  = 200
)

// Service exposes the order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	VendorAccept(ctx context.Context, input TransitionInput) (*models.Order, error)
	VendorReject(ctx context.Context, input TransitionInput) (*models.Order, error)
	StartProcessing(ctx context.Context, input TransitionInput) (*models.Order, error)
	MarkReady(ctx context.Context, input TransitionInput) (*models.Order, error)
	Dispatch(ctx context.Context, input TransitionInput) (*models.Order, error)
	Deliver(ctx context.Context, input TransitionInput) (*models.Order, error)
	Complete(ctx context.Context, input TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, input TransitionInput) (*models.Order, error)
	Expire(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Order, error)
	CorrectQuantity(ctx context.Context, input CorrectQuantityInput) (*models.Order, error)
	ApplyDeduction(ctx context.Context, input DeductionInput) (*models.Order, error)
	Rate(ctx context.Context, input RateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, status *enums.OrderStatus, limit int) ([]models.Order, error)
	ExpireOffers(ctx context.Context, limit int) (SweepResult, error)
	AutoComplete(ctx context.Context, limit int) (SweepResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	pricing PricingLookup
	numbers NumberGenerator
	clock   clock.Clock
	cfg     config.OrdersConfig
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
}

// ServiceParams groups the collaborators of the order service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Pricing PricingLookup
	Numbers NumberGenerator
	Clock   clock.Clock
	Config  config.OrdersConfig
	Metrics *metrics.EngineMetrics
	Logger  *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing lookup required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("order number generator required")
	}
	if params.Clock == nil {
		params.Clock = clock.Real()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		pricing: params.Pricing,
		numbers: params.Numbers,
		clock:   params.Clock,
		cfg:     params.Config,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &models.Order{
		ID:                uuid.New(),
		BuyerID:           input.BuyerID,
		VendorID:          input.VendorID,
		OrderType:         orderTypeFor(input),
		Status:            enums.OrderStatusPending,
		DeliveryAddressID: input.DeliveryAddressID,
		DeliveryCharge:    s.cfg.DeliveryFeeAmount(),
		Discount:          input.Discount,
		PlatformFeeRate:   s.cfg.PlatformFeeRate(),
		OfferedAt:         now,
		Version:           1,
	}
	if input.DeliveryCharge != nil {
		order.DeliveryCharge = *input.DeliveryCharge
	}
	if input.DeliveryMethod == enums.DeliveryMethodPlatformLogistics {
		order.LogisticsFee = s.cfg.LogisticsFeeAmount()
	}
	if s.cfg.OfferTTL > 0 {
		expires := now.Add(s.cfg.OfferTTL)
		order.OfferExpiresAt = &expires
	}

	for i, line := range input.Items {
		price, err := s.pricing.Material(ctx, input.VendorID, line.MaterialID)
		if err != nil {
			return nil, pricingError(err, "material")
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Position:   i + 1,
			MaterialID: price.ID,
			Name:       price.Name,
			Unit:       price.Unit,
			UnitPrice:  price.UnitPrice,
			Quantity:   line.Quantity,
			TaxRate:    price.TaxRate,
		})
	}
	for i, booking := range input.Labor {
		price, err := s.pricing.Labor(ctx, input.VendorID, booking.LaborRateID)
		if err != nil {
			return nil, pricingError(err, "labor rate")
		}
		order.Labor = append(order.Labor, models.OrderLabor{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Position:      i + 1,
			LaborRateID:   price.ID,
			SkillName:     price.SkillName,
			RateBasis:     price.Basis,
			Rate:          price.Rate,
			HoursBooked:   booking.Hours,
			DaysBooked:    booking.Days,
			Workers:       booking.Workers,
			ScheduledDate: booking.ScheduledDate,
		})
	}
	order.Payment = &models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  input.PaymentMethod,
		Status:  enums.PaymentStatusPending,
	}
	order.Delivery = &models.Delivery{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  input.DeliveryMethod,
	}

	if err := Recompute(order); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
	}
	order.OrderNumber = number

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already issued")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		entry := &models.OrderStatusHistory{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Sequence:   order.Version,
			NewStatus:  order.Status,
			ActorID:    input.Actor.IDPtr(),
			ActorType:  input.Actor.Type,
			OccurredAt: now,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				BuyerID:        order.BuyerID,
				VendorID:       order.VendorID,
				OrderType:      order.OrderType,
				GrandTotal:     order.GrandTotal,
				OfferExpiresAt: order.OfferExpiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"vendor_id":    order.VendorID.String(),
	})
	s.logg.Info(logCtx, "order offer created")
	return order, nil
}

func (s *service) VendorAccept(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.OrderEventAccept, func(order *models.Order, now time.Time) error {
		if order.OfferExpiresAt != nil && now.After(*order.OfferExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeExpired, "offer window has passed").
				WithDetails(map[string]any{"offer_expires_at": order.OfferExpiresAt.UTC()})
		}
		order.AcceptedAt = &now
		order.RespondedAt = &now
		if order.ExpectedDeliveryDate == nil && s.cfg.ExpectedDeliveryDays > 0 {
			expected := now.AddDate(0, 0, s.cfg.ExpectedDeliveryDays)
			order.ExpectedDeliveryDate = &expected
		}
		return nil
	})
}

func (s *service) VendorReject(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	return s.transition(ctx, input, enums.OrderEventReject, func(order *models.Order, now time.Time) error {
		reason := strings.TrimSpace(input.Reason)
		order.RejectedAt = &now
		order.RespondedAt = &now
		order.RejectionReason = &reason
		return nil
	})
}

func (s *service) StartProcessing(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.OrderEventStartProcessing, func(order *models.Order, now time.Time) error {
		order.ProcessingAt = &now
		return nil
	})
}

func (s *service) MarkReady(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.OrderEventMarkReady, func(order *models.Order, now time.Time) error {
		order.ReadyAt = &now
		return nil
	})
}

func (s *service) Dispatch(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.OrderEventDispatch, func(order *models.Order, now time.Time) error {
		if order.Delivery == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "order has no delivery record")
		}
		order.Delivery.DispatchedAt = &now
		if tracking := strings.TrimSpace(input.TrackingNumber); tracking != "" {
			order.Delivery.TrackingNumber = &tracking
		}
		if carrier := strings.TrimSpace(input.Carrier); carrier != "" {
			order.Delivery.Carrier = &carrier
		}
		return nil
	})
}

func (s *service) Deliver(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.OrderEventDeliver, func(order *models.Order, now time.Time) error {
		if order.Delivery == nil || order.Delivery.DispatchedAt == nil {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order was never dispatched")
		}
		if now.Before(*order.Delivery.DispatchedAt) {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery cannot precede dispatch")
		}
		order.Delivery.DeliveredAt = &now
		order.ActualDeliveryDate = &now
		return nil
	})
}

func (s *service) Complete(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.OrderEventComplete, func(order *models.Order, now time.Time) error {
		if order.HasActiveDispute {
			return pkgerrors.New(pkgerrors.CodeConflict, "order has an active dispute").
				WithDetails(map[string]any{"dispute_id": order.ActiveDisputeID})
		}
		pending := enums.PayoutStatusPending
		order.CompletedAt = &now
		order.SettlementStatus = &pending
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	return s.transition(ctx, input, enums.OrderEventCancel, func(order *models.Order, now time.Time) error {
		reason := strings.TrimSpace(input.Reason)
		order.CancelledAt = &now
		order.CancellationReason = &reason
		if order.Payment != nil && order.Payment.AmountPaid.IsPositive() {
			order.RefundRequired = true
		}
		return nil
	})
}

func (s *service) Expire(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	input := TransitionInput{OrderID: orderID, Actor: types.SystemActor(), Reason: expiredOfferReason}
	return s.transition(ctx, input, enums.OrderEventExpire, func(order *models.Order, now time.Time) error {
		if order.OfferExpiresAt == nil || !now.After(*order.OfferExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeConflict, "offer has not expired")
		}
		reason := expiredOfferReason
		order.RejectedAt = &now
		order.RejectionReason = &reason
		return nil
	})
}

// transition runs one lifecycle event: load, authorize, Next, mutate, then
// compare-and-set the order together with its history row and outbox event.
func (s *service) transition(ctx context.Context, input TransitionInput, event enums.OrderEvent, mutate func(order *models.Order, now time.Time) error) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := input.Actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorize(order, input.Actor, event); err != nil {
			return err
		}

		previous := order.Status
		target, err := Next(previous, event)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := mutate(order, now); err != nil {
			return err
		}

		expectedVersion := order.Version
		order.Status = target
		order.Version = expectedVersion + 1

		ok, err := repo.Update(ctx, order, previous, expectedVersion)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !ok {
			s.metrics.IncConflict("order_" + string(event))
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "order changed concurrently").
				WithDetails(TransitionDetails{CurrentStatus: previous, Event: event})
		}

		if event == enums.OrderEventDispatch || event == enums.OrderEventDeliver {
			if err := repo.SaveDelivery(ctx, order.Delivery); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery")
			}
		}

		if err := s.appendHistory(ctx, repo, order, previous, event, input.Actor, input.Reason, now); err != nil {
			return err
		}
		if err := s.emitTransition(ctx, tx, order, previous, event, input.Actor, input.Reason, now); err != nil {
			return err
		}

		result = order
		return nil
	})
	s.metrics.ObserveTransition(string(event), err)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   result.ID.String(),
		"event":      string(event),
		"new_status": string(result.Status),
		"actor_type": string(input.Actor.Type),
	})
	s.logg.Info(logCtx, "order transitioned")
	return result, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, order *models.Order, previous enums.OrderStatus, event enums.OrderEvent, actor types.Actor, reason string, now time.Time) error {
	prev := previous
	ev := event
	entry := &models.OrderStatusHistory{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Sequence:       order.Version,
		PreviousStatus: &prev,
		NewStatus:      order.Status,
		Event:          &ev,
		ActorID:        actor.IDPtr(),
		ActorType:      actor.Type,
		Reason:         optionalString(reason),
		OccurredAt:     now,
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}
	return nil
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, order *models.Order, previous enums.OrderStatus, event enums.OrderEvent, actor types.Actor, reason string, now time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		OccurredAt:    now,
		Data: payloads.OrderStateChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			VendorID:       order.VendorID,
			BuyerID:        order.BuyerID,
			Event:          event,
			PreviousStatus: previous,
			NewStatus:      order.Status,
			ActorType:      actor.Type,
			Reason:         reason,
		},
	})
	if err != nil {
		return err
	}

	if event == enums.OrderEventExpire && order.OfferExpiresAt != nil {
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderExpiredEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				VendorID:       order.VendorID,
				OfferExpiresAt: *order.OfferExpiresAt,
			},
		})
		if err != nil {
			return err
		}
	}

	if event == enums.OrderEventCancel && order.RefundRequired && order.Payment != nil {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefundRequired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderRefundRequiredEvent{
				OrderID:    order.ID,
				AmountPaid: order.Payment.AmountPaid,
				Reason:     reason,
			},
		})
	}
	return nil
}

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if err := input.Actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !input.Actor.Is(enums.ActorBuyer, order.BuyerID) && !isStaff(input.Actor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or staff may record payments")
		}
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRejected {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot record payment on a closed order").
				WithDetails(TransitionDetails{CurrentStatus: order.Status})
		}
		payment := order.Payment
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "order has no payment record")
		}

		paid := payment.AmountPaid.Add(input.Amount)
		if paid.GreaterThan(payment.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment exceeds amount due").
				WithDetails(map[string]any{"amount_due": payment.Amount.Sub(payment.AmountPaid).StringFixed(2)})
		}

		now := s.clock.Now()
		payment.AmountPaid = paid
		if ref := strings.TrimSpace(input.TransactionRef); ref != "" {
			payment.TransactionRef = &ref
		}
		if paid.Equal(payment.Amount) {
			payment.Status = enums.PaymentStatusPaid
			payment.PaidAt = &now
		}

		if err := s.touch(ctx, repo, order); err != nil {
			return err
		}
		if err := repo.SavePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentRecorded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data: payloads.OrderPaymentRecordedEvent{
				OrderID:    order.ID,
				Amount:     input.Amount,
				AmountPaid: payment.AmountPaid,
				Status:     payment.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) CorrectQuantity(ctx context.Context, input CorrectQuantityInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and item id required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := input.Actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !input.Actor.Is(enums.ActorVendor, order.VendorID) && input.Actor.Type != enums.ActorAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the vendor or an admin may correct quantities")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is closed").
				WithDetails(TransitionDetails{CurrentStatus: order.Status})
		}

		var item *models.OrderItem
		for i := range order.Items {
			if order.Items[i].ID == input.ItemID {
				item = &order.Items[i]
				break
			}
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}

		item.Quantity = input.Quantity
		if err := Recompute(order); err != nil {
			return err
		}
		if order.Payment != nil && order.Payment.AmountPaid.GreaterThan(order.Payment.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "correction would leave the order overpaid")
		}

		if err := s.touch(ctx, repo, order); err != nil {
			return err
		}
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
		}
		if order.Payment != nil {
			if err := repo.SavePayment(ctx, order.Payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
			}
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": result.ID.String(),
		"item_id":  input.ItemID.String(),
		"reason":   input.Reason,
	})
	s.logg.Info(logCtx, "order quantity corrected")
	return result, nil
}

func (s *service) Rate(ctx context.Context, input RateInput) (*models.Order, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if err := input.Actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !input.Actor.Is(enums.ActorBuyer, order.BuyerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may rate an order")
		}
		if order.Status != enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only completed orders can be rated").
				WithDetails(TransitionDetails{CurrentStatus: order.Status})
		}
		if order.RatedAt != nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyExists, "order already rated")
		}

		now := s.clock.Now()
		rating := input.Rating
		order.Rating = &rating
		order.Review = optionalString(input.Review)
		order.RatedAt = &now
		if err := s.touch(ctx, repo, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.load(ctx, s.repo, orderID)
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order history")
	}
	return rows, nil
}

func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, status *enums.OrderStatus, limit int) ([]models.Order, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	if limit <= 0 || limit > defaultSweepLimit {
		limit = 50
	}
	rows, err := s.repo.ListByVendor(ctx, vendorID, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return rows, nil
}

// ExpireOffers moves pending offers past their expiry to rejected. Orders a
// vendor answered in the meantime lose the compare-and-set and are skipped.
func (s *service) ExpireOffers(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	candidates, err := s.repo.FindExpiredOffers(ctx, s.clock.Now(), limit)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expired offers")
	}
	return s.sweep(ctx, candidates, func(ctx context.Context, order models.Order) error {
		_, err := s.Expire(ctx, order.ID)
		return err
	})
}

// AutoComplete completes delivered orders whose delivery is older than the
// configured window and that carry no active dispute.
func (s *service) AutoComplete(ctx context.Context, limit int) (SweepResult, error) {
	if s.cfg.AutoCompleteAfter <= 0 {
		return SweepResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	cutoff := s.clock.Now().Add(-s.cfg.AutoCompleteAfter)
	candidates, err := s.repo.FindDeliveredBefore(ctx, cutoff, limit)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find delivered orders")
	}
	return s.sweep(ctx, candidates, func(ctx context.Context, order models.Order) error {
		_, err := s.Complete(ctx, TransitionInput{
			OrderID: order.ID,
			Actor:   types.SystemActor(),
			Reason:  autoCompleteReason,
		})
		return err
	})
}

func (s *service) sweep(ctx context.Context, candidates []models.Order, apply func(ctx context.Context, order models.Order) error) (SweepResult, error) {
	var (
		result SweepResult
		errs   error
	)
	for _, order := range candidates {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}
		err := apply(ctx, order)
		switch {
		case err == nil:
			result.Processed++
		case pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict),
			pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition),
			pkgerrors.IsCode(err, pkgerrors.CodeConflict):
			result.Skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}
	return result, errs
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// touch bumps the order version for changes that keep the status.
func (s *service) touch(ctx context.Context, repo Repository, order *models.Order) error {
	expected := order.Version
	order.Version = expected + 1
	ok, err := repo.Update(ctx, order, order.Status, expected)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	if !ok {
		s.metrics.IncConflict("order_update")
		return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "order changed concurrently")
	}
	return nil
}

func authorize(order *models.Order, actor types.Actor, event enums.OrderEvent) error {
	vendor := actor.Is(enums.ActorVendor, order.VendorID)
	buyer := actor.Is(enums.ActorBuyer, order.BuyerID)
	admin := actor.Type == enums.ActorAdmin
	system := actor.Type == enums.ActorSystem

	var allowed bool
	switch event {
	case enums.OrderEventAccept, enums.OrderEventReject:
		allowed = vendor
	case enums.OrderEventStartProcessing, enums.OrderEventMarkReady, enums.OrderEventDispatch, enums.OrderEventDeliver:
		allowed = vendor || admin
	case enums.OrderEventComplete:
		allowed = buyer || admin || system
	case enums.OrderEventCancel:
		allowed = buyer || vendor || admin || system
	case enums.OrderEventExpire:
		allowed = system
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not "+humanEvent(event)+" this order")
	}
	return nil
}

func validateCreate(input CreateOrderInput) error {
	if err := input.Actor.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}
	if input.BuyerID == uuid.Nil || input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer and vendor are required")
	}
	if !input.Actor.Is(enums.ActorBuyer, input.BuyerID) && input.Actor.Type != enums.ActorAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "orders are placed by their buyer")
	}
	if len(input.Items) == 0 && len(input.Labor) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item or labor booking")
	}
	if !input.DeliveryMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Discount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must not be negative")
	}
	if input.DeliveryCharge != nil && input.DeliveryCharge.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery charge must not be negative")
	}
	for _, item := range input.Items {
		if item.MaterialID == uuid.Nil || !item.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "each item needs a material and a positive quantity")
		}
	}
	for _, booking := range input.Labor {
		if booking.LaborRateID == uuid.Nil || booking.Workers < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "each labor booking needs a rate and at least one worker")
		}
		if !booking.Hours.Valid && !booking.Days.Valid {
			return pkgerrors.New(pkgerrors.CodeValidation, "each labor booking needs hours or days")
		}
	}
	return nil
}

func orderTypeFor(input CreateOrderInput) enums.OrderType {
	switch {
	case len(input.Items) > 0 && len(input.Labor) > 0:
		return enums.OrderTypeCombined
	case len(input.Labor) > 0:
		return enums.OrderTypeLabor
	default:
		return enums.OrderTypeMaterial
	}
}

func pricingError(err error, what string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup "+what+" price")
}

func isStaff(actor types.Actor) bool {
	return actor.Type == enums.ActorAdmin || actor.Type == enums.ActorSystem
}

func actorRef(actor types.Actor) *outbox.ActorRef {
	return outbox.ActorOf(actor)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
