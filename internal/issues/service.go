package issues

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/internal/disputes"
	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/clock"
	"github.com/angelmondragon/buildmart-backend/pkg/db"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

var reasonByIssueType = map[string]enums.DisputeReason{
	"damaged":         enums.DisputeReasonDamagedItems,
	"damaged_items":   enums.DisputeReasonDamagedItems,
	"quality":         enums.DisputeReasonQualityIssue,
	"quality_issue":   enums.DisputeReasonQualityIssue,
	"late":            enums.DisputeReasonLateDelivery,
	"late_delivery":   enums.DisputeReasonLateDelivery,
	"missing":         enums.DisputeReasonMissingItems,
	"missing_items":   enums.DisputeReasonMissingItems,
	"incomplete":      enums.DisputeReasonIncompleteWork,
	"incomplete_work": enums.DisputeReasonIncompleteWork,
	"pricing":         enums.DisputeReasonWrongPricing,
	"wrong_pricing":   enums.DisputeReasonWrongPricing,
	"no_show":         enums.DisputeReasonVendorNoShow,
	"vendor_no_show":  enums.DisputeReasonVendorNoShow,
}

// ReasonForIssueType maps a free-form issue type onto a dispute reason.
// Unknown types fall back to other.
func ReasonForIssueType(issueType string) enums.DisputeReason {
	if reason, ok := reasonByIssueType[strings.ToLower(strings.TrimSpace(issueType))]; ok {
		return reason
	}
	return enums.DisputeReasonOther
}

// ReportInput files an issue against an order.
type ReportInput struct {
	OrderID     uuid.UUID
	Actor       types.Actor
	Description string
	IssueType   string
}

// ResolveInput closes an issue without a dispute.
type ResolveInput struct {
	IssueID    uuid.UUID
	Actor      types.Actor
	Resolution string
}

// EscalateInput turns an open issue into a dispute.
type EscalateInput struct {
	IssueID        uuid.UUID
	Actor          types.Actor
	DisputedAmount decimal.Decimal
	Priority       *enums.DisputePriority
}

// Service exposes the issue tracker.
type Service interface {
	Report(ctx context.Context, input ReportInput) (*models.OrderIssue, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.OrderIssue, error)
	Escalate(ctx context.Context, input EscalateInput) (*models.Dispute, error)
	Get(ctx context.Context, issueID uuid.UUID) (*models.OrderIssue, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderIssue, error)
}

type disputeOpener interface {
	Create(ctx context.Context, input disputes.CreateInput) (*models.Dispute, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups the collaborators of the issue service.
type ServiceParams struct {
	Repo     Repository
	Orders   orders.Repository
	Disputes disputeOpener
	Tx       txRunner
	Outbox   outboxPublisher
	Clock    clock.Clock
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	orders   orders.Repository
	disputes disputeOpener
	tx       txRunner
	outbox   outboxPublisher
	clock    clock.Clock
	logg     *logger.Logger
}

// NewService builds the issue service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("issues repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Disputes == nil {
		return nil, fmt.Errorf("dispute service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Clock == nil {
		params.Clock = clock.Real()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		disputes: params.Disputes,
		tx:       params.Tx,
		outbox:   params.Outbox,
		clock:    params.Clock,
		logg:     params.Logger,
	}, nil
}

func (s *service) Report(ctx context.Context, input ReportInput) (*models.OrderIssue, error) {
	if err := input.Actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}
	description := strings.TrimSpace(input.Description)
	issueType := strings.ToLower(strings.TrimSpace(input.IssueType))
	if input.OrderID == uuid.Nil || description == "" || issueType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id, description and issue type are required")
	}

	var issue *models.OrderIssue
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.loadOrder(ctx, s.orders.WithTx(tx), input.OrderID)
		if err != nil {
			return err
		}
		if !isParty(input.Actor, order) && input.Actor.Type != enums.ActorAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not report issues on this order")
		}
		if order.Status == enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "issues can only be reported after the vendor responds").
				WithDetails(orders.TransitionDetails{CurrentStatus: order.Status})
		}

		issue = &models.OrderIssue{
			ID:           uuid.New(),
			OrderID:      order.ID,
			ReporterID:   input.Actor.ID,
			ReporterRole: input.Actor.Type,
			Description:  description,
			IssueType:    issueType,
			Status:       enums.IssueStatusOpen,
		}
		if err := s.repo.WithTx(tx).Create(ctx, issue); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create issue")
		}
		return s.emit(ctx, tx, enums.EventIssueReported, issue, input.Actor)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"issue_id":   issue.ID.String(),
		"order_id":   issue.OrderID.String(),
		"issue_type": issue.IssueType,
	})
	s.logg.Info(logCtx, "order issue reported")
	return issue, nil
}

func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.OrderIssue, error) {
	if err := input.Actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor identity invalid")
	}
	resolution := strings.TrimSpace(input.Resolution)
	if resolution == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution required")
	}

	var issue *models.OrderIssue
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, input.IssueID)
		if err != nil {
			return err
		}
		order, err := s.loadOrder(ctx, s.orders.WithTx(tx), loaded.OrderID)
		if err != nil {
			return err
		}
		if !isParty(input.Actor, order) && input.Actor.Type != enums.ActorAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not resolve this issue")
		}
		if loaded.Status != enums.IssueStatusOpen {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "issue is not open").
				WithDetails(map[string]any{"status": loaded.Status})
		}

		now := s.clock.Now()
		resolvedBy := input.Actor.ID
		loaded.Resolution = &resolution
		loaded.ResolvedBy = &resolvedBy
		loaded.ResolvedAt = &now
		ok, err := repo.Resolve(ctx, loaded)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve issue")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "issue changed concurrently")
		}
		loaded.Status = enums.IssueStatusResolved
		issue = loaded
		return s.emit(ctx, tx, enums.EventIssueResolved, issue, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Escalate opens a dispute from an open issue. The dispute service flips the
// issue and the order's dispute flag in one transaction.
func (s *service) Escalate(ctx context.Context, input EscalateInput) (*models.Dispute, error) {
	if input.IssueID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue id required")
	}
	issue, err := s.load(ctx, s.repo, input.IssueID)
	if err != nil {
		return nil, err
	}
	if issue.EscalatedToDispute {
		details := map[string]any{"status": issue.Status}
		if issue.DisputeID != nil {
			details["dispute_id"] = issue.DisputeID.String()
		}
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyExists, "issue already escalated to a dispute").WithDetails(details)
	}
	if issue.Status != enums.IssueStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "only open issues can be escalated").
			WithDetails(map[string]any{"status": issue.Status})
	}

	issueID := issue.ID
	dispute, err := s.disputes.Create(ctx, disputes.CreateInput{
		OrderID:        issue.OrderID,
		Actor:          input.Actor,
		Reason:         ReasonForIssueType(issue.IssueType),
		Description:    issue.Description,
		DisputedAmount: input.DisputedAmount,
		IssueID:        &issueID,
		Priority:       input.Priority,
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"issue_id":   issue.ID.String(),
		"dispute_id": dispute.ID.String(),
	})
	s.logg.Info(logCtx, "order issue escalated")
	return dispute, nil
}

func (s *service) Get(ctx context.Context, issueID uuid.UUID) (*models.OrderIssue, error) {
	return s.load(ctx, s.repo, issueID)
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderIssue, error) {
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list issues")
	}
	return rows, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, issue *models.OrderIssue, actor types.Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateIssue,
		AggregateID:   issue.ID,
		Actor:         outbox.ActorOf(actor),
		OccurredAt:    s.clock.Now(),
		Data: payloads.IssueEvent{
			IssueID:   issue.ID,
			OrderID:   issue.OrderID,
			IssueType: issue.IssueType,
			Status:    issue.Status,
		},
	})
}

func (s *service) load(ctx context.Context, repo Repository, issueID uuid.UUID) (*models.OrderIssue, error) {
	issue, err := repo.FindByID(ctx, issueID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "issue not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load issue")
	}
	return issue, nil
}

func (s *service) loadOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func isParty(actor types.Actor, order *models.Order) bool {
	return actor.Is(enums.ActorBuyer, order.BuyerID) || actor.Is(enums.ActorVendor, order.VendorID)
}
