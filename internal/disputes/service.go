package disputes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/internal/orders"
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
	"github.com/angelmondragon/buildmart-backend/pkg/redis"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

const (
	lockScope         = "dispute_order"
	defaultLockTTL    = 10 * time.Second
	lockRetryDelay    = 50 * time.Millisecond
	maxDescription    = 4000
	maxEvidenceURLLen = 2048
)

// Service exposes the dispute resolution workflow.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Dispute, error)
	Assign(ctx context.Context, input AssignInput) (*models.Dispute, error)
	AddEvidence(ctx context.Context, input EvidenceInput) (*models.DisputeEvidence, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error)
	Escalate(ctx context.Context, input EscalateInput) (*models.Dispute, error)
	Get(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	Timeline(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeTimelineEntry, error)
	ActiveForOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
}

// ServiceParams groups the collaborators of the dispute service.
type ServiceParams struct {
	Repo    Repository
	Orders  orders.Repository
	Issues  IssueLinker
	Tx      txRunner
	Outbox  outboxPublisher
	Locks   LockStore
	Clock   clock.Clock
	Config  config.DisputesConfig
	Metrics *metrics.EngineMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	orders  orders.Repository
	issues  IssueLinker
	tx      txRunner
	outbox  outboxPublisher
	locks   LockStore
	clock   clock.Clock
	lockTTL time.Duration
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
}

// NewService builds the dispute service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock store required")
	}
	if params.Clock == nil {
		params.Clock = clock.Real()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	ttl := params.Config.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		issues:  params.Issues,
		tx:      params.Tx,
		outbox:  params.Outbox,
		locks:   params.Locks,
		clock:   params.Clock,
		lockTTL: ttl,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Dispute, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if input.IssueID != nil && s.issues == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "issue linker not configured")
	}

	lock, err := s.lockOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lock)

	var dispute *models.Dispute
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !isParty(input.Actor, order) && input.Actor.Type != enums.ActorAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the order's buyer, vendor or an admin may open a dispute")
		}
		switch order.Status {
		case enums.OrderStatusPending, enums.OrderStatusRejected, enums.OrderStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot be disputed in its current status").
				WithDetails(orders.TransitionDetails{CurrentStatus: order.Status})
		}
		if input.DisputedAmount.GreaterThan(order.GrandTotal) {
			return pkgerrors.New(pkgerrors.CodeValidation, "disputed amount exceeds order total").
				WithDetails(map[string]any{"grand_total": order.GrandTotal.StringFixed(money.Scale)})
		}

		now := s.clock.Now()
		priority := PriorityFor(input.DisputedAmount, input.Reason)
		if input.Priority != nil {
			priority = *input.Priority
		}
		dispute = &models.Dispute{
			ID:             uuid.New(),
			OrderID:        order.ID,
			IssueID:        input.IssueID,
			BuyerID:        order.BuyerID,
			VendorID:       order.VendorID,
			Reason:         input.Reason,
			Description:    strings.TrimSpace(input.Description),
			Status:         enums.DisputeStatusOpen,
			Priority:       priority,
			DisputedAmount: money.Round(input.DisputedAmount),
			RaisedBy:       input.Actor.ID,
			RaisedByRole:   input.Actor.Type,
			Version:        1,
		}

		claimed, err := orderRepo.MarkDisputeOpened(ctx, order.ID, dispute.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order dispute")
		}
		if !claimed {
			s.metrics.IncConflict("dispute_open")
			return activeDisputeExists(order.ActiveDisputeID)
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, dispute); err != nil {
			if db.IsUniqueViolation(err, "") {
				return activeDisputeExists(nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		description := "Dispute opened: " + string(input.Reason)
		metadata := map[string]any{
			"priority":        string(priority),
			"disputed_amount": dispute.DisputedAmount.StringFixed(money.Scale),
		}
		if input.IssueID != nil {
			linked, err := s.issues.MarkEscalated(ctx, tx, *input.IssueID, dispute.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link issue")
			}
			if !linked {
				return s.unlinkedIssue(ctx, tx, *input.IssueID)
			}
			description = "Escalated from issue " + input.IssueID.String()
			metadata["issue_id"] = input.IssueID.String()
		}

		if err := s.appendTimeline(ctx, repo, dispute, input.Actor, ActionCreated, description, metadata, now); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventDisputeOpened, dispute, input.Actor, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDisputeOpened(string(dispute.Priority))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"dispute_id": dispute.ID.String(),
		"order_id":   dispute.OrderID.String(),
		"priority":   string(dispute.Priority),
	})
	s.logg.Info(logCtx, "dispute opened")
	return dispute, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Dispute, error) {
	if input.AssigneeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignee required")
	}
	return s.mutate(ctx, input.DisputeID, input.Actor, func(tx *gorm.DB, dispute *models.Dispute, now time.Time) (string, string, map[string]any, error) {
		if input.Actor.Type != enums.ActorAdmin {
			return "", "", nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may assign disputes")
		}
		target, err := assignTarget(dispute.Status)
		if err != nil {
			return "", "", nil, err
		}
		assignee := input.AssigneeID
		dispute.Status = target
		dispute.AssignedTo = &assignee
		dispute.AssignedAt = &now
		return ActionAssigned, "Assigned to " + assignee.String(), map[string]any{"assignee_id": assignee.String()}, nil
	}, enums.EventDisputeAssigned)
}

func (s *service) Escalate(ctx context.Context, input EscalateInput) (*models.Dispute, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escalation reason required")
	}
	return s.mutate(ctx, input.DisputeID, input.Actor, func(tx *gorm.DB, dispute *models.Dispute, now time.Time) (string, string, map[string]any, error) {
		if !isDisputeParty(input.Actor, dispute) && input.Actor.Type != enums.ActorAdmin {
			return "", "", nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor may not escalate this dispute")
		}
		if err := escalateAllowed(dispute.Status); err != nil {
			return "", "", nil, err
		}
		previous := dispute.Priority
		dispute.Status = enums.DisputeStatusEscalated
		dispute.Priority = enums.DisputePriorityCritical
		dispute.EscalationReason = &reason
		dispute.EscalatedAt = &now
		return ActionEscalated, reason, map[string]any{"previous_priority": string(previous)}, nil
	}, enums.EventDisputeEscalated)
}

func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error) {
	return s.mutate(ctx, input.DisputeID, input.Actor, func(tx *gorm.DB, dispute *models.Dispute, now time.Time) (string, string, map[string]any, error) {
		if input.Actor.Type != enums.ActorAdmin {
			return "", "", nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may resolve disputes")
		}
		if err := resolveAllowed(dispute.Status, input.Outcome); err != nil {
			return "", "", nil, err
		}
		refund, err := refundFor(input.Outcome, input.RefundAmount, dispute.DisputedAmount)
		if err != nil {
			return "", "", nil, err
		}

		orderRepo := s.orders.WithTx(tx)
		cleared, err := orderRepo.ClearDispute(ctx, dispute.OrderID, dispute.ID, now)
		if err != nil {
			return "", "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear order dispute")
		}
		if !cleared {
			return "", "", nil, pkgerrors.New(pkgerrors.CodeConflict, "order no longer references this dispute")
		}
		if refund.Valid && refund.Decimal.IsPositive() {
			if err := orderRepo.FlagRefund(ctx, dispute.OrderID, now); err != nil {
				return "", "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order refund")
			}
		}

		actorID := input.Actor.ID
		dispute.Status = input.Outcome
		dispute.RefundAmount = refund
		dispute.ResolutionNote = optionalString(input.Note)
		dispute.ResolvedAt = &now
		dispute.ResolvedBy = &actorID

		metadata := map[string]any{"outcome": string(input.Outcome)}
		if refund.Valid {
			metadata["refund_amount"] = refund.Decimal.StringFixed(money.Scale)
		}
		description := "Resolved as " + string(input.Outcome)
		if note := strings.TrimSpace(input.Note); note != "" {
			description += ": " + note
		}
		return ActionResolved, description, metadata, nil
	}, enums.EventDisputeResolved)
}

func (s *service) AddEvidence(ctx context.Context, input EvidenceInput) (*models.DisputeEvidence, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid evidence type")
	}
	raw := strings.TrimSpace(input.URL)
	if len(raw) > maxEvidenceURLLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "evidence url too long")
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "evidence url must be absolute")
	}

	var evidence *models.DisputeEvidence
	_, err = s.mutate(ctx, input.DisputeID, input.Actor, func(tx *gorm.DB, dispute *models.Dispute, now time.Time) (string, string, map[string]any, error) {
		if !isDisputeParty(input.Actor, dispute) && input.Actor.Type != enums.ActorAdmin {
			return "", "", nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor may not add evidence to this dispute")
		}
		if dispute.Status.IsTerminal() {
			return "", "", nil, invalidTransition(dispute.Status, ActionEvidenceAdded, "dispute is closed")
		}
		evidence = &models.DisputeEvidence{
			ID:           uuid.New(),
			DisputeID:    dispute.ID,
			Type:         input.Type,
			URL:          raw,
			UploadedBy:   input.Actor.ID,
			UploaderRole: input.Actor.Type,
			Description:  optionalString(input.Description),
			UploadedAt:   now,
		}
		if err := s.repo.WithTx(tx).AddEvidence(ctx, evidence); err != nil {
			return "", "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store evidence")
		}
		dispute.Evidence = append(dispute.Evidence, *evidence)
		return ActionEvidenceAdded, string(input.Type) + " evidence added", map[string]any{"evidence_id": evidence.ID.String()}, nil
	}, "")
	if err != nil {
		return nil, err
	}
	return evidence, nil
}

func (s *service) Get(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	if disputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	return s.load(ctx, s.repo, disputeID)
}

func (s *service) Timeline(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeTimelineEntry, error) {
	if _, err := s.Get(ctx, disputeID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTimeline(ctx, disputeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dispute timeline")
	}
	return rows, nil
}

func (s *service) ActiveForOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	dispute, err := s.repo.FindActiveForOrder(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order has no active dispute")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active dispute")
	}
	return dispute, nil
}

type mutation func(tx *gorm.DB, dispute *models.Dispute, now time.Time) (action, description string, metadata map[string]any, err error)

// mutate applies one state change under a version compare-and-set and writes
// its timeline entry. An empty eventType skips the outbox.
func (s *service) mutate(ctx context.Context, disputeID uuid.UUID, actor types.Actor, apply mutation, eventType enums.OutboxEventType) (*models.Dispute, error) {
	if disputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	if err := actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}

	var result *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dispute, err := s.load(ctx, repo, disputeID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		action, description, metadata, err := apply(tx, dispute, now)
		if err != nil {
			return err
		}

		expected := dispute.Version
		dispute.Version = expected + 1
		ok, err := repo.Update(ctx, dispute, expected)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute")
		}
		if !ok {
			s.metrics.IncConflict("dispute_" + action)
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "dispute changed concurrently")
		}

		if err := s.appendTimeline(ctx, repo, dispute, actor, action, description, metadata, now); err != nil {
			return err
		}
		if eventType != "" {
			if err := s.emit(ctx, tx, eventType, dispute, actor, now); err != nil {
				return err
			}
		}
		result = dispute
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"dispute_id": result.ID.String(),
		"status":     string(result.Status),
	})
	s.logg.Info(logCtx, "dispute updated")
	return result, nil
}

func (s *service) appendTimeline(ctx context.Context, repo Repository, dispute *models.Dispute, actor types.Actor, action, description string, metadata map[string]any, now time.Time) error {
	entry := &models.DisputeTimelineEntry{
		ID:          uuid.New(),
		DisputeID:   dispute.ID,
		Sequence:    dispute.Version,
		ActorID:     actor.IDPtr(),
		ActorType:   actor.Type,
		Action:      action,
		Description: description,
		Metadata:    metadata,
		OccurredAt:  now,
	}
	if err := repo.AppendTimeline(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append dispute timeline")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, dispute *models.Dispute, actor types.Actor, now time.Time) error {
	payload := payloads.DisputeEvent{
		DisputeID:      dispute.ID,
		OrderID:        dispute.OrderID,
		IssueID:        dispute.IssueID,
		Reason:         dispute.Reason,
		Status:         dispute.Status,
		Priority:       dispute.Priority,
		DisputedAmount: dispute.DisputedAmount,
	}
	if dispute.RefundAmount.Valid {
		refund := dispute.RefundAmount.Decimal
		payload.RefundAmount = &refund
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDispute,
		AggregateID:   dispute.ID,
		Actor:         outbox.ActorOf(actor),
		OccurredAt:    now,
		Data:          payload,
	})
}

func (s *service) load(ctx context.Context, repo Repository, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := repo.FindByID(ctx, disputeID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	return dispute, nil
}

func (s *service) unlinkedIssue(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) error {
	escalated, err := s.issues.IsEscalated(ctx, tx, issueID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load issue")
	}
	if escalated {
		return pkgerrors.New(pkgerrors.CodeAlreadyExists, "issue already escalated to a dispute")
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "issue is no longer open")
}

// lockOrder serialises dispute creation for one order across API instances.
// A held lock is waited on for up to one TTL, after which the holder's lock
// has expired, so a concurrent loser reaches the dispute flag check and gets
// ALREADY_EXISTS. CONCURRENCY_CONFLICT only surfaces when the lock keeps
// changing hands for a whole TTL; callers may retry it.
func (s *service) lockOrder(ctx context.Context, orderID uuid.UUID) (*redis.Lock, error) {
	key := s.locks.LockKey(lockScope, orderID.String())
	var lock *redis.Lock
	backoff := retry.WithMaxDuration(s.lockTTL, retry.NewConstant(lockRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		obtained, err := redis.Obtain(ctx, s.locks, key, s.lockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		lock = obtained
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "dispute creation in progress for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire dispute lock")
	}
	return lock, nil
}

func (s *service) release(ctx context.Context, lock *redis.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "lock_key", lock.Key()), "failed to release dispute lock")
	}
}

func validateCreate(input CreateInput) error {
	if err := input.Actor.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute reason")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" || len(description) > maxDescription {
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required and must be at most 4000 characters")
	}
	if !input.DisputedAmount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "disputed amount must be positive")
	}
	if input.Priority != nil && !input.Priority.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute priority")
	}
	return nil
}

// refundFor validates the refund carried by an outcome. A full refund defaults
// to the disputed amount.
func refundFor(outcome enums.DisputeStatus, requested *decimal.Decimal, disputed decimal.Decimal) (decimal.NullDecimal, error) {
	if !outcome.CarriesRefund() {
		if requested != nil {
			return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "refund amount only applies to refund outcomes")
		}
		return decimal.NullDecimal{}, nil
	}
	amount := disputed
	if requested != nil {
		amount = *requested
	} else if outcome == enums.DisputeStatusResolvedPartialRefund {
		return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "partial refund requires an amount")
	}
	if err := money.CheckRefund(amount, disputed); err != nil {
		return decimal.NullDecimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
			WithDetails(map[string]any{"disputed_amount": disputed.StringFixed(money.Scale)})
	}
	return decimal.NewNullDecimal(money.Round(amount)), nil
}

func activeDisputeExists(disputeID *uuid.UUID) error {
	err := pkgerrors.New(pkgerrors.CodeAlreadyExists, "order already has an active dispute")
	if disputeID != nil {
		return err.WithDetails(map[string]any{"dispute_id": disputeID.String()})
	}
	return err
}

func isParty(actor types.Actor, order *models.Order) bool {
	return actor.Is(enums.ActorBuyer, order.BuyerID) || actor.Is(enums.ActorVendor, order.VendorID)
}

func isDisputeParty(actor types.Actor, dispute *models.Dispute) bool {
	return actor.Is(enums.ActorBuyer, dispute.BuyerID) || actor.Is(enums.ActorVendor, dispute.VendorID)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
