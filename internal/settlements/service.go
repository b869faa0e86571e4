package settlements

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	"github.com/angelmondragon/buildmart-backend/pkg/money"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/buildmart-backend/pkg/pagination"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

const maxReferenceLength = 128

// BatchInput selects which payouts a batch run considers.
type BatchInput struct {
	// VendorID restricts the run to one vendor when set.
	VendorID *uuid.UUID
	// AsOf defaults to now. The cutoff is the last cycle boundary at or before it.
	AsOf time.Time
}

// ProcessInput records the external transfer for a pending settlement.
type ProcessInput struct {
	SettlementID     uuid.UUID
	PaymentReference string
	Actor            types.Actor
}

// CorrectiveInput creates a follow-up settlement for a processed one.
type CorrectiveInput struct {
	SettlementID uuid.UUID
	Adjustment   decimal.Decimal
	Notes        string
	Actor        types.Actor
}

// ListParams filters the settlement listing.
type ListParams struct {
	VendorID *uuid.UUID
	Status   *enums.SettlementStatus
	Limit    int
	Cursor   string
}

// ListResult wraps returned settlements and the cursor for the next page.
type ListResult struct {
	Items  []models.Settlement `json:"items"`
	Cursor string              `json:"cursor"`
}

// Service batches completed order payouts into vendor settlements.
type Service interface {
	RunBatch(ctx context.Context, input BatchInput) ([]models.Settlement, error)
	MarkProcessed(ctx context.Context, input ProcessInput) (*models.Settlement, error)
	CreateCorrective(ctx context.Context, input CorrectiveInput) (*models.Settlement, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups the collaborators of the settlement service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Clock   clock.Clock
	Config  config.SettlementConfig
	Metrics *metrics.EngineMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	clock   clock.Clock
	anchor  time.Time
	cycle   time.Duration
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
}

// NewService builds the settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlements repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	anchor, err := params.Config.AnchorTime()
	if err != nil {
		return nil, err
	}
	if params.Config.CycleLength <= 0 {
		return nil, fmt.Errorf("settlement cycle length must be positive")
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
		clock:   params.Clock,
		anchor:  anchor,
		cycle:   params.Config.CycleLength,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// RunBatch settles each vendor in its own transaction. A failing vendor does
// not stop the others; the returned slice holds what was committed and the
// error combines every vendor failure.
func (s *service) RunBatch(ctx context.Context, input BatchInput) ([]models.Settlement, error) {
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	window, err := CycleWindow(asOf.UTC(), s.anchor, s.cycle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "settlement window")
	}

	vendors, err := s.repo.PendingVendors(ctx, window.Cutoff, input.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors with pending payouts")
	}

	var (
		created []models.Settlement
		errs    error
	)
	for _, vendorID := range vendors {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		settlement, err := s.settleVendor(ctx, vendorID, window)
		if err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"vendor_id": vendorID.String()})
			s.logg.Error(logCtx, "settlement batch failed for vendor", err)
			errs = multierr.Append(errs, fmt.Errorf("vendor %s: %w", vendorID, err))
			continue
		}
		if settlement == nil {
			continue
		}
		created = append(created, *settlement)
		s.metrics.ObserveSettlement(settlement.NetAmount, settlement.OrderCount)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cutoff":      window.Cutoff.Format(time.RFC3339),
		"vendors":     len(vendors),
		"settlements": len(created),
	})
	s.logg.Info(logCtx, "settlement batch finished")
	return created, errs
}

func (s *service) settleVendor(ctx context.Context, vendorID uuid.UUID, window Window) (*models.Settlement, error) {
	var settlement *models.Settlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		candidates, err := repo.EligibleOrders(ctx, vendorID, window.Cutoff)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load eligible orders")
		}

		claimed := make([]models.Order, 0, len(candidates))
		for _, order := range candidates {
			ok, err := repo.ClaimOrder(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
			}
			if ok {
				claimed = append(claimed, order)
			}
		}
		if len(claimed) == 0 {
			return nil
		}

		now := s.clock.Now()
		id := uuid.New()
		draft := &models.Settlement{
			ID:               id,
			SettlementNumber: settlementNumber(window.Cutoff, id),
			VendorID:         vendorID,
			CycleStart:       window.Start,
			CutoffAt:         window.Cutoff,
			Status:           enums.SettlementStatusPending,
			SettlementDate:   now,
			OrderCount:       len(claimed),
			Lines:            make([]models.SettlementLine, 0, len(claimed)),
		}
		totals := make([]decimal.Decimal, 0, len(claimed))
		deductions := make([]decimal.Decimal, 0, len(claimed))
		orderIDs := make([]uuid.UUID, 0, len(claimed))
		for _, order := range claimed {
			// Lines carry the gross payout so net = total - deductions equals
			// the sum of the orders' vendor payouts.
			gross := money.Round(order.VendorPayout.Add(order.Deductions))
			completedAt := window.Cutoff
			if order.CompletedAt != nil {
				completedAt = *order.CompletedAt
			}
			draft.Lines = append(draft.Lines, models.SettlementLine{
				ID:           uuid.New(),
				SettlementID: id,
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				Payout:       gross,
				Deductions:   money.Round(order.Deductions),
				CompletedAt:  completedAt,
			})
			totals = append(totals, gross)
			deductions = append(deductions, order.Deductions)
			orderIDs = append(orderIDs, order.ID)
		}
		draft.TotalAmount = money.Sum(totals...)
		draft.Deductions = money.Sum(deductions...)
		draft.NetAmount = money.SettlementNet(draft.TotalAmount, draft.Deductions)

		account, err := repo.PayoutAccount(ctx, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
		}
		if account != nil {
			draft.BankDetails = account.Snapshot()
		} else {
			logCtx := s.logg.WithFields(ctx, map[string]any{"vendor_id": vendorID.String()})
			s.logg.Warn(logCtx, "vendor has no payout account on file")
		}

		if err := repo.Create(ctx, draft); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "settlement already recorded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement")
		}
		settled, err := repo.MarkSettled(ctx, orderIDs, id, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark orders settled")
		}
		if settled != int64(len(orderIDs)) {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "claimed orders changed during settlement").
				WithDetails(map[string]any{"claimed": len(orderIDs), "settled": settled})
		}

		settlement = draft
		return s.emit(ctx, tx, enums.EventSettlementCreated, draft, types.SystemActor())
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// MarkProcessed is the only transition a settlement makes.
func (s *service) MarkProcessed(ctx context.Context, input ProcessInput) (*models.Settlement, error) {
	if err := authorizeOperator(input.Actor); err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(input.PaymentReference)
	if input.SettlementID == uuid.Nil || reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id and payment reference are required")
	}
	if len(reference) > maxReferenceLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference too long").
			WithDetails(map[string]any{"max_length": maxReferenceLength})
	}

	var settlement *models.Settlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.MarkProcessed(ctx, input.SettlementID, reference, s.clock.Now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark settlement processed")
		}
		current, err := s.load(ctx, repo, input.SettlementID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "settlement already processed").
				WithDetails(map[string]any{"status": current.Status})
		}
		settlement = current
		return s.emit(ctx, tx, enums.EventSettlementProcessed, current, input.Actor)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"settlement_id":     settlement.ID.String(),
		"payment_reference": reference,
	})
	s.logg.Info(logCtx, "settlement processed")
	return settlement, nil
}

// CreateCorrective opens a new pending settlement carrying a signed
// adjustment against a processed one. The processed settlement is untouched.
func (s *service) CreateCorrective(ctx context.Context, input CorrectiveInput) (*models.Settlement, error) {
	if err := authorizeOperator(input.Actor); err != nil {
		return nil, err
	}
	notes := strings.TrimSpace(input.Notes)
	if input.SettlementID == uuid.Nil || notes == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id and notes are required")
	}
	adjustment := money.Round(input.Adjustment)
	if adjustment.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment must be non-zero")
	}

	var corrective *models.Settlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		original, err := s.load(ctx, repo, input.SettlementID)
		if err != nil {
			return err
		}
		if original.Status != enums.SettlementStatusProcessed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only processed settlements can be corrected").
				WithDetails(map[string]any{"status": original.Status})
		}

		bank := original.BankDetails
		account, err := repo.PayoutAccount(ctx, original.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
		}
		if account != nil {
			bank = account.Snapshot()
		}

		id := uuid.New()
		originalID := original.ID
		corrective = &models.Settlement{
			ID:                   id,
			SettlementNumber:     settlementNumber(original.CutoffAt, id),
			VendorID:             original.VendorID,
			CycleStart:           original.CycleStart,
			CutoffAt:             original.CutoffAt,
			TotalAmount:          decimal.Zero,
			Deductions:           decimal.Zero,
			Adjustment:           adjustment,
			NetAmount:            adjustment,
			BankDetails:          bank,
			Status:               enums.SettlementStatusPending,
			SettlementDate:       s.clock.Now(),
			CorrectsSettlementID: &originalID,
			Notes:                &notes,
		}
		if err := repo.Create(ctx, corrective); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create corrective settlement")
		}
		return s.emit(ctx, tx, enums.EventSettlementCreated, corrective, input.Actor)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"settlement_id": corrective.ID.String(),
		"corrects":      input.SettlementID.String(),
		"adjustment":    adjustment.StringFixed(2),
	})
	s.logg.Info(logCtx, "corrective settlement created")
	return corrective, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	return s.load(ctx, s.repo, id)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	after, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid settlement status")
	}
	rows, next, err := s.repo.List(ctx, listParams{
		VendorID: params.VendorID,
		Status:   params.Status,
		Limit:    params.Limit,
		After:    after,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
	}
	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.Encode(*next)
	}
	return result, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Settlement, error) {
	settlement, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement")
	}
	return settlement, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, settlement *models.Settlement, actor types.Actor) error {
	payload := payloads.SettlementEvent{
		SettlementID:     settlement.ID,
		SettlementNumber: settlement.SettlementNumber,
		VendorID:         settlement.VendorID,
		Status:           settlement.Status,
		NetAmount:        settlement.NetAmount,
		OrderCount:       settlement.OrderCount,
	}
	if settlement.PaymentReference != nil {
		payload.PaymentReference = *settlement.PaymentReference
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSettlement,
		AggregateID:   settlement.ID,
		Actor:         outbox.ActorOf(actor),
		OccurredAt:    s.clock.Now(),
		Data:          payload,
	})
}

func authorizeOperator(actor types.Actor) error {
	if err := actor.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}
	if actor.Type != enums.ActorAdmin && actor.Type != enums.ActorSystem {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only operators may manage settlements")
	}
	return nil
}

func settlementNumber(cutoff time.Time, id uuid.UUID) string {
	return fmt.Sprintf("STL-%s-%s", cutoff.UTC().Format("20060102"), strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10]))
}
