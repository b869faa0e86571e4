package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/money"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox/payloads"
)

const maxDeductionReason = 500

// ApplyDeduction charges an amount against the vendor's payout for an order,
// for example a penalty or a refund the vendor absorbs. The payout is
// re-derived, so a deduction larger than the vendor's earnings is rejected.
// Orders already claimed by a settlement run are frozen.
func (s *service) ApplyDeduction(ctx context.Context, input DeductionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deduction amount must be positive")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" || len(reason) > maxDeductionReason {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deduction reason is required and must be at most 500 characters")
	}
	if err := input.Actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}
	if input.Actor.Type != enums.ActorAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may post deductions")
	}

	var (
		result *models.Order
		posted decimal.Decimal
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRejected {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot deduct from a closed order").
				WithDetails(TransitionDetails{CurrentStatus: order.Status})
		}
		if order.SettlementStatus != nil && *order.SettlementStatus != enums.PayoutStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout already batched into a settlement").
				WithDetails(map[string]any{"settlement_status": string(*order.SettlementStatus)})
		}

		posted = money.Round(input.Amount)
		order.Deductions = order.Deductions.Add(posted)
		if err := Recompute(order); err != nil {
			return err
		}
		if err := s.touch(ctx, repo, order); err != nil {
			return err
		}

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeductionApplied,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    s.clock.Now(),
			Data: payloads.OrderDeductionAppliedEvent{
				OrderID:      order.ID,
				VendorID:     order.VendorID,
				Amount:       posted,
				Deductions:   order.Deductions,
				VendorPayout: order.VendorPayout,
				Reason:       reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":      result.ID.String(),
		"amount":        posted.StringFixed(money.Scale),
		"vendor_payout": result.VendorPayout.StringFixed(money.Scale),
	})
	s.logg.Info(logCtx, "order deduction applied")
	return result, nil
}
